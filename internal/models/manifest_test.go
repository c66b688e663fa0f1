package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManifestSlice(t *testing.T) {
	m := &Manifest{CaseIDs: []string{"a", "b", "c", "d", "e"}}

	assert.Equal(t, []string{"a", "b", "c"}, m.Slice(0, 3))
	assert.Equal(t, []string{"d", "e"}, m.Slice(3, 3))
	assert.Nil(t, m.Slice(5, 3))
	assert.Nil(t, m.Slice(-1, 3))
	assert.Nil(t, m.Slice(0, 0))
}

func TestManifestTotalCases(t *testing.T) {
	m := &Manifest{CaseIDs: []string{"a", "b"}}
	assert.Equal(t, 2, m.TotalCases())

	empty := &Manifest{}
	assert.Zero(t, empty.TotalCases())
}

func TestBatchCursorNeedsContinue(t *testing.T) {
	c := &BatchCursor{NextIndex: 3, TotalCases: 10}
	assert.True(t, c.NeedsContinue())
	assert.Equal(t, 7, c.Remaining())

	c.NextIndex = 10
	assert.False(t, c.NeedsContinue())
	assert.Zero(t, c.Remaining())

	c.NextIndex = 12 // overshoot must not go negative
	assert.Zero(t, c.Remaining())
}

func TestPushRecentCaseRingBound(t *testing.T) {
	s := &ProgressSnapshot{}
	for i := 0; i < MaxRecentCases+5; i++ {
		s.PushRecentCase("case", "created")
	}
	assert.Len(t, s.RecentCases, MaxRecentCases)
}

func TestPushRecentCaseMostRecentFirst(t *testing.T) {
	s := &ProgressSnapshot{}
	s.PushRecentCase("first", "created")
	s.PushRecentCase("second", "updated")

	assert.Equal(t, "second", s.RecentCases[0].CaseID)
	assert.Equal(t, "first", s.RecentCases[1].CaseID)
}

func TestPercent(t *testing.T) {
	assert.InDelta(t, 50.0, Percent(5, 10), 0.001)
	assert.Zero(t, Percent(5, 0))
	assert.InDelta(t, 100.0, Percent(10, 10), 0.001)
}
