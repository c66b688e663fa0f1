package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/surgimedia/casesync/internal/gallery"
	"github.com/surgimedia/casesync/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EntityStore upserts imported catalog entities by natural key:
// procedures by slug, cases by case_id.
type EntityStore interface {
	UpsertProcedure(ctx context.Context, procedure gallery.Procedure) (created bool, err error)
	UpsertCase(ctx context.Context, detail *gallery.CaseDetail) (created bool, err error)
	CaseExists(ctx context.Context, caseID string) (bool, error)
}

// MongoEntityStore is the MongoDB-backed entity store.
type MongoEntityStore struct {
	procedures *mongo.Collection
	cases      *mongo.Collection
}

// NewMongoEntityStore creates an entity store over the procedure and
// case collections.
func NewMongoEntityStore(db *mongo.Database, procedureCollection, caseCollection string) *MongoEntityStore {
	return &MongoEntityStore{
		procedures: db.Collection(procedureCollection),
		cases:      db.Collection(caseCollection),
	}
}

// UpsertProcedure writes a procedure taxonomy entry keyed by slug.
func (s *MongoEntityStore) UpsertProcedure(ctx context.Context, procedure gallery.Procedure) (bool, error) {
	filter := bson.M{"slug": procedure.Slug}
	update := bson.M{"$set": procedure}
	opts := options.Update().SetUpsert(true)

	result, err := s.procedures.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		// A concurrent writer beat us to the insert; the entry exists.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to upsert procedure %s: %w", procedure.Slug, err)
	}
	return result.UpsertedCount > 0, nil
}

// UpsertCase writes a case entity keyed by case_id.
func (s *MongoEntityStore) UpsertCase(ctx context.Context, detail *gallery.CaseDetail) (bool, error) {
	if detail == nil || detail.CaseID == "" {
		return false, errors.New("case detail has no case_id")
	}

	filter := bson.M{"case_id": detail.CaseID}
	update := bson.M{"$set": detail}
	opts := options.Update().SetUpsert(true)

	result, err := s.cases.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to upsert case %s: %w", detail.CaseID, err)
	}
	return result.UpsertedCount > 0, nil
}

// CaseExists checks whether a case was already imported.
func (s *MongoEntityStore) CaseExists(ctx context.Context, caseID string) (bool, error) {
	count, err := s.cases.CountDocuments(ctx, bson.M{"case_id": caseID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check case %s: %w", caseID, err)
	}
	return count > 0, nil
}

func isPrerequisiteMissing(err error) bool {
	return errors.Is(err, models.ErrPrerequisiteMissing)
}
