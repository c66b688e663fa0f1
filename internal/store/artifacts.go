package store

import (
	"context"
	"fmt"
	"time"

	"github.com/surgimedia/casesync/internal/gallery"
	"github.com/surgimedia/casesync/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Artifact document names. One document per artifact, upserted in
// place, so each run overwrites the previous run's state.
const (
	artifactProcedures = "procedures"
	artifactManifest   = "manifest"
	artifactCursor     = "cursor"
	artifactRunState   = "run_state"
)

// ArtifactStore persists the durable run artifacts: the fetched
// procedures document, the manifest, and the batch cursor. All three
// must survive process restarts so a paused run can resume.
type ArtifactStore interface {
	SaveProcedures(ctx context.Context, procedures []gallery.Procedure) error
	LoadProcedures(ctx context.Context) ([]gallery.Procedure, error)
	SaveManifest(ctx context.Context, manifest *models.Manifest) error
	LoadManifest(ctx context.Context) (*models.Manifest, error)
	SaveCursor(ctx context.Context, cursor *models.BatchCursor) error
	LoadCursor(ctx context.Context) (*models.BatchCursor, error)
	SaveRunState(ctx context.Context, state *models.SyncRunState) error
	LoadRunState(ctx context.Context) (*models.SyncRunState, error)
	Clear(ctx context.Context) error
}

// MongoArtifactStore stores artifacts as single named documents in a
// dedicated collection.
type MongoArtifactStore struct {
	collection *mongo.Collection
}

// NewMongoArtifactStore creates an artifact store backed by the given
// collection.
func NewMongoArtifactStore(db *mongo.Database, collectionName string) *MongoArtifactStore {
	return &MongoArtifactStore{collection: db.Collection(collectionName)}
}

func (s *MongoArtifactStore) save(ctx context.Context, name string, payload interface{}) error {
	filter := bson.M{"name": name}
	update := bson.M{"$set": bson.M{
		"name":       name,
		"payload":    payload,
		"updated_at": time.Now().UTC(),
	}}
	opts := options.Update().SetUpsert(true)

	if _, err := s.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save %s artifact: %w", name, err)
	}
	return nil
}

func (s *MongoArtifactStore) load(ctx context.Context, name string, out interface{}) error {
	var doc struct {
		Payload bson.Raw `bson:"payload"`
	}
	err := s.collection.FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return fmt.Errorf("%w: %s", models.ErrPrerequisiteMissing, name)
	}
	if err != nil {
		return fmt.Errorf("failed to load %s artifact: %w", name, err)
	}
	if err := bson.Unmarshal(doc.Payload, out); err != nil {
		return fmt.Errorf("failed to decode %s artifact: %w", name, err)
	}
	return nil
}

// SaveProcedures writes the Stage 1 procedures artifact.
func (s *MongoArtifactStore) SaveProcedures(ctx context.Context, procedures []gallery.Procedure) error {
	return s.save(ctx, artifactProcedures, bson.M{"procedures": procedures})
}

// LoadProcedures reads the Stage 1 artifact; a missing artifact maps
// to ErrPrerequisiteMissing.
func (s *MongoArtifactStore) LoadProcedures(ctx context.Context) ([]gallery.Procedure, error) {
	var payload struct {
		Procedures []gallery.Procedure `bson:"procedures"`
	}
	if err := s.load(ctx, artifactProcedures, &payload); err != nil {
		return nil, err
	}
	return payload.Procedures, nil
}

// SaveManifest writes the Stage 2 manifest artifact.
func (s *MongoArtifactStore) SaveManifest(ctx context.Context, manifest *models.Manifest) error {
	return s.save(ctx, artifactManifest, manifest)
}

// LoadManifest reads the manifest; a missing artifact maps to
// ErrPrerequisiteMissing.
func (s *MongoArtifactStore) LoadManifest(ctx context.Context) (*models.Manifest, error) {
	var manifest models.Manifest
	if err := s.load(ctx, artifactManifest, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// SaveCursor persists the batch cursor. Called after every batch.
func (s *MongoArtifactStore) SaveCursor(ctx context.Context, cursor *models.BatchCursor) error {
	cursor.UpdatedAt = time.Now().UTC()
	return s.save(ctx, artifactCursor, cursor)
}

// LoadCursor reads the persisted cursor. Unlike the stage artifacts a
// missing cursor is not an error: it means the run starts from zero.
func (s *MongoArtifactStore) LoadCursor(ctx context.Context) (*models.BatchCursor, error) {
	var cursor models.BatchCursor
	err := s.load(ctx, artifactCursor, &cursor)
	if err != nil {
		if isPrerequisiteMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	return &cursor, nil
}

// SaveRunState persists the run's identity and accumulated context.
func (s *MongoArtifactStore) SaveRunState(ctx context.Context, state *models.SyncRunState) error {
	return s.save(ctx, artifactRunState, state)
}

// LoadRunState reads the persisted run state; nil means no run is in
// flight.
func (s *MongoArtifactStore) LoadRunState(ctx context.Context) (*models.SyncRunState, error) {
	var state models.SyncRunState
	err := s.load(ctx, artifactRunState, &state)
	if err != nil {
		if isPrerequisiteMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

// Clear removes all run artifacts. Called when a run completes so a
// later run cannot resume stale state.
func (s *MongoArtifactStore) Clear(ctx context.Context) error {
	_, err := s.collection.DeleteMany(ctx, bson.M{
		"name": bson.M{"$in": []string{artifactProcedures, artifactManifest, artifactCursor, artifactRunState}},
	})
	if err != nil {
		return fmt.Errorf("failed to clear artifacts: %w", err)
	}
	return nil
}
