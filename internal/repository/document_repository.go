package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-sync-api/internal/models"
	appErrors "github.com/noah-isme/sis-sync-api/pkg/errors"
)

// DocumentRepository is the document-store mirror of the canonical entities,
// backed by Redis with JSON values under deterministic natural keys.
// Documents have no TTL; they live until an upsert replaces them.
type DocumentRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewDocumentRepository constructs a document repository.
func NewDocumentRepository(client *redis.Client, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{client: client, logger: logger}
}

func schoolKey(schoolUUID string) string {
	return fmt.Sprintf("doc:school:%s", schoolUUID)
}

func classKey(lmsID, externalID string) string {
	return fmt.Sprintf("doc:class:%s:%s", lmsID, externalID)
}

func courseKey(lmsID, schoolID, externalID string) string {
	return fmt.Sprintf("doc:course:%s:%s:%s", lmsID, schoolID, externalID)
}

func activityKey(schoolUUID, classID, studentUUID string) string {
	return fmt.Sprintf("doc:activity:%s:%s:%s", schoolUUID, classID, studentUUID)
}

func aggregateKey(classID string) string {
	return fmt.Sprintf("doc:aggregate:%s", classID)
}

func (r *DocumentRepository) get(ctx context.Context, key string, dest interface{}) error {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return appErrors.ErrNotFound
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal document %s: %w", key, err)
	}
	return nil
}

func (r *DocumentRepository) put(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// GetSchool returns the school document or ErrNotFound.
func (r *DocumentRepository) GetSchool(ctx context.Context, schoolUUID string) (*models.SchoolDocument, error) {
	var doc models.SchoolDocument
	if err := r.get(ctx, schoolKey(schoolUUID), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// PutSchool writes the school document.
func (r *DocumentRepository) PutSchool(ctx context.Context, doc *models.SchoolDocument) error {
	return r.put(ctx, schoolKey(doc.UUID), doc)
}

// PutClass mirrors a class under its natural key.
func (r *DocumentRepository) PutClass(ctx context.Context, doc *models.ClassDocument) error {
	return r.put(ctx, classKey(doc.LMSID, doc.ExternalID), doc)
}

// PutCourse mirrors a course under its natural key.
func (r *DocumentRepository) PutCourse(ctx context.Context, doc *models.CourseDocument) error {
	return r.put(ctx, courseKey(doc.LMSID, doc.SchoolID, doc.ExternalID), doc)
}

// GetActivity returns a class activity document or ErrNotFound.
func (r *DocumentRepository) GetActivity(ctx context.Context, schoolUUID, classID, studentUUID string) (*models.ClassActivity, error) {
	var doc models.ClassActivity
	if err := r.get(ctx, activityKey(schoolUUID, classID, studentUUID), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// PutActivity writes a class activity document under its natural key.
func (r *DocumentRepository) PutActivity(ctx context.Context, doc *models.ClassActivity) error {
	return r.put(ctx, activityKey(doc.SchoolUUID, doc.ClassID, doc.StudentUUID), doc)
}

// ListActivitiesByClass scans the class's activity documents. Used by the
// aggregate recomputation after score and activity syncs.
func (r *DocumentRepository) ListActivitiesByClass(ctx context.Context, schoolUUID, classID string) ([]models.ClassActivity, error) {
	pattern := activityKey(schoolUUID, classID, "*")
	var docs []models.ClassActivity
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		var doc models.ClassActivity
		if err := r.get(ctx, iter.Val(), &doc); err != nil {
			r.logger.Sugar().Warnw("skipping unreadable activity document", "key", iter.Val(), "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	return docs, nil
}

// GetAggregate returns the class-level aggregate document or ErrNotFound.
func (r *DocumentRepository) GetAggregate(ctx context.Context, classID string) (*models.ClassAggregate, error) {
	var agg models.ClassAggregate
	if err := r.get(ctx, aggregateKey(classID), &agg); err != nil {
		return nil, err
	}
	return &agg, nil
}

// PutAggregate writes the class-level aggregate document.
func (r *DocumentRepository) PutAggregate(ctx context.Context, agg *models.ClassAggregate) error {
	return r.put(ctx, aggregateKey(agg.ClassID), agg)
}
