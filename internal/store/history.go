package store

import (
	"context"
	"fmt"
	"time"

	"github.com/surgimedia/casesync/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// HistoryStore is the append-only sync history log. A record moves
// from started to exactly one terminal status; repeating the same
// terminal update is a no-op, and only the explicit Amend path may
// touch a record after that.
type HistoryStore interface {
	LogStart(ctx context.Context, source string) (string, error)
	LogUpdate(ctx context.Context, recordID, status string, processed, failed int, details models.SyncDetails) error
	Amend(ctx context.Context, recordID, status string, processed, failed int, details models.SyncDetails) error
	Get(ctx context.Context, recordID string) (*models.SyncLogRecord, error)
	List(ctx context.Context, limit int) ([]models.SyncLogRecord, error)
	Delete(ctx context.Context, recordID string) error
	DeleteAll(ctx context.Context) (int64, error)
}

// maxHistoryPageSize bounds the list view.
const maxHistoryPageSize = 100

// MongoHistoryStore is the MongoDB-backed history log.
type MongoHistoryStore struct {
	collection *mongo.Collection
}

// NewMongoHistoryStore creates a history store over the given
// collection.
func NewMongoHistoryStore(db *mongo.Database, collectionName string) *MongoHistoryStore {
	return &MongoHistoryStore{collection: db.Collection(collectionName)}
}

// logDocument is the raw persisted shape. Details stays an open
// document so records written by older engine generations remain
// readable; models.NormalizeDetails folds their field names on read.
type logDocument struct {
	ID             primitive.ObjectID     `bson:"_id,omitempty"`
	StartedAt      time.Time              `bson:"started_at"`
	CompletedAt    *time.Time             `bson:"completed_at,omitempty"`
	Status         string                 `bson:"status"`
	Source         string                 `bson:"source"`
	ItemsProcessed int                    `bson:"items_processed"`
	ItemsFailed    int                    `bson:"items_failed"`
	Details        map[string]interface{} `bson:"details"`
}

func (d *logDocument) toRecord() models.SyncLogRecord {
	return models.SyncLogRecord{
		ID:             d.ID.Hex(),
		StartedAt:      d.StartedAt,
		CompletedAt:    d.CompletedAt,
		Status:         d.Status,
		Source:         d.Source,
		ItemsProcessed: d.ItemsProcessed,
		ItemsFailed:    d.ItemsFailed,
		Details:        models.NormalizeDetails(d.Details),
	}
}

// LogStart appends a new record in the started state and returns its ID.
func (s *MongoHistoryStore) LogStart(ctx context.Context, source string) (string, error) {
	doc := logDocument{
		StartedAt: time.Now().UTC(),
		Status:    models.LogStatusStarted,
		Source:    source,
		Details:   map[string]interface{}{},
	}

	result, err := s.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to insert sync log record: %w", err)
	}
	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted ID type %T", result.InsertedID)
	}
	return id.Hex(), nil
}

// LogUpdate writes status and counters in a single conditional update.
// The filter only matches non-terminal records, so the terminal
// transition happens at most once even with concurrent writers; a
// repeat of the same terminal status is absorbed as a no-op.
func (s *MongoHistoryStore) LogUpdate(ctx context.Context, recordID, status string, processed, failed int, details models.SyncDetails) error {
	oid, err := primitive.ObjectIDFromHex(recordID)
	if err != nil {
		return fmt.Errorf("invalid record ID %q: %w", recordID, err)
	}

	set := bson.M{
		"status":          status,
		"items_processed": processed,
		"items_failed":    failed,
		"details":         details,
	}
	if models.IsTerminalLogStatus(status) {
		now := time.Now().UTC()
		set["completed_at"] = now
	}

	filter := bson.M{
		"_id": oid,
		"status": bson.M{"$in": []string{
			models.LogStatusStarted,
		}},
	}

	result, err := s.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update sync log record: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	// Nothing matched: either the record is gone or already terminal.
	record, err := s.Get(ctx, recordID)
	if err != nil {
		return err
	}
	if record.Status == status {
		return nil // idempotent repeat of the same terminal status
	}
	return fmt.Errorf("sync log record %s already terminal with status %s", recordID, record.Status)
}

// Amend rewrites a terminal record. Used only when a paused run
// resumes and completes, folding the continuation's counts into the
// original record.
func (s *MongoHistoryStore) Amend(ctx context.Context, recordID, status string, processed, failed int, details models.SyncDetails) error {
	oid, err := primitive.ObjectIDFromHex(recordID)
	if err != nil {
		return fmt.Errorf("invalid record ID %q: %w", recordID, err)
	}

	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"status":          status,
		"items_processed": processed,
		"items_failed":    failed,
		"details":         details,
		"completed_at":    now,
	}}

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to amend sync log record: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrRecordNotFound
	}
	return nil
}

// Get loads a single record with normalized details.
func (s *MongoHistoryStore) Get(ctx context.Context, recordID string) (*models.SyncLogRecord, error) {
	oid, err := primitive.ObjectIDFromHex(recordID)
	if err != nil {
		return nil, fmt.Errorf("invalid record ID %q: %w", recordID, err)
	}

	var doc logDocument
	err = s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync log record: %w", err)
	}

	record := doc.toRecord()
	return &record, nil
}

// List returns records most recent first, bounded by limit.
func (s *MongoHistoryStore) List(ctx context.Context, limit int) ([]models.SyncLogRecord, error) {
	if limit <= 0 || limit > maxHistoryPageSize {
		limit = maxHistoryPageSize
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync log records: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.SyncLogRecord{}
	for cursor.Next(ctx) {
		var doc logDocument
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		records = append(records, doc.toRecord())
	}
	return records, cursor.Err()
}

// Delete removes a single record.
func (s *MongoHistoryStore) Delete(ctx context.Context, recordID string) error {
	oid, err := primitive.ObjectIDFromHex(recordID)
	if err != nil {
		return fmt.Errorf("invalid record ID %q: %w", recordID, err)
	}

	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete sync log record: %w", err)
	}
	if result.DeletedCount == 0 {
		return models.ErrRecordNotFound
	}
	return nil
}

// DeleteAll removes every record and returns how many were deleted.
func (s *MongoHistoryStore) DeleteAll(ctx context.Context) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to delete sync log records: %w", err)
	}
	return result.DeletedCount, nil
}
