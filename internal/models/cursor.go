package models

import "time"

// BatchCursor is the persisted resume point into a manifest. It is
// mutated only by the batch processor and written back after every
// batch, so an interruption loses at most one batch of work.
type BatchCursor struct {
	NextIndex  int       `json:"next_index" bson:"next_index"`
	TotalCases int       `json:"total_cases" bson:"total_cases"`
	Created    int       `json:"created" bson:"created"`
	Updated    int       `json:"updated" bson:"updated"`
	Failed     int       `json:"failed" bson:"failed"`
	Processed  int       `json:"processed" bson:"processed"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// NeedsContinue reports whether unprocessed cases remain.
func (c *BatchCursor) NeedsContinue() bool {
	return c.NextIndex < c.TotalCases
}

// Remaining returns the number of cases left to process.
func (c *BatchCursor) Remaining() int {
	if c.NextIndex >= c.TotalCases {
		return 0
	}
	return c.TotalCases - c.NextIndex
}
