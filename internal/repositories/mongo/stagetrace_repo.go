package mongo

import (
	"context"
	"time"

	"github.com/mirelio/echodesk/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type StageTraceRepository interface {
	Insert(ctx context.Context, t *models.StageTrace) error
	ListByFeedback(ctx context.Context, feedbackID string) ([]models.StageTrace, error)
}

type stageTraceRepo struct {
	col *mongo.Collection
	ttl time.Duration
}

func NewStageTraceRepo(db *mongo.Database, ttl time.Duration) StageTraceRepository {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &stageTraceRepo{col: db.Collection("stage_traces"), ttl: ttl}
}

func (r *stageTraceRepo) Insert(ctx context.Context, t *models.StageTrace) error {
	if t.At.IsZero() {
		t.At = time.Now().UTC()
	}
	t.ExpiresAt = t.At.Add(r.ttl)
	_, err := r.col.InsertOne(ctx, t)
	return err
}

func (r *stageTraceRepo) ListByFeedback(ctx context.Context, feedbackID string) ([]models.StageTrace, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"feedback_id": feedbackID},
		options.Find().SetSort(bson.D{{Key: "at", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.StageTrace
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
