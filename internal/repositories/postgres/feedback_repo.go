package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/mirelio/echodesk/internal/models"
	"github.com/mirelio/echodesk/internal/utils"
	"gorm.io/gorm"
)

type FeedbackRepository interface {
	Insert(ctx context.Context, f *models.Feedback) error
	GetWithResults(ctx context.Context, id string) (*models.Feedback, error)
	ListPage(ctx context.Context, page, perPage int, category string) ([]models.Feedback, int64, error)
	// UpdateStatus applies the monotonic transition processing -> status.
	// A feedback already in a terminal state is left untouched; the call is
	// idempotent and only fails when the row does not exist.
	UpdateStatus(ctx context.Context, id string, status models.ProcessingStatus) error
	InsertSentiment(ctx context.Context, r *models.SentimentResult) error
	InsertResponse(ctx context.Context, r *models.GeneratedResponse) error
	InsertAudio(ctx context.Context, a *models.AudioArtifact) error
	GetAudio(ctx context.Context, audioID string) (*models.AudioArtifact, error)
	Stats(ctx context.Context) (*DashboardStats, error)
}

type DashboardStats struct {
	TotalFeedback      int64             `json:"total_feedback"`
	SentimentBreakdown map[string]int64  `json:"sentiment_breakdown"`
	CategoryBreakdown  map[string]int64  `json:"category_breakdown"`
	RecentFeedback     []models.Feedback `json:"recent_feedback"`
}

type feedbackRepo struct {
	db *gorm.DB
}

func NewFeedbackRepo(db *gorm.DB) FeedbackRepository {
	return &feedbackRepo{db: db}
}

func (r *feedbackRepo) Insert(ctx context.Context, f *models.Feedback) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	f.UpdatedAt = f.CreatedAt
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *feedbackRepo) GetWithResults(ctx context.Context, id string) (*models.Feedback, error) {
	var f models.Feedback
	err := r.db.WithContext(ctx).
		Preload("Sentiment").
		Preload("Response").
		Preload("Audio").
		Where("id = ?", id).
		Take(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &f, err
}

func (r *feedbackRepo) ListPage(ctx context.Context, page, perPage int, category string) ([]models.Feedback, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Feedback{})
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Feedback
	err := q.
		Preload("Sentiment").
		Preload("Response").
		Preload("Audio").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&rows).Error
	return rows, total, err
}

func (r *feedbackRepo) UpdateStatus(ctx context.Context, id string, status models.ProcessingStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Feedback{}).
		Where("id = ? AND processing_status = ?", id, models.StatusProcessing).
		Updates(map[string]any{
			"processing_status": status,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.Feedback{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return utils.ErrNotFound
		}
		// already terminal: keep the transition idempotent
	}
	return nil
}

func (r *feedbackRepo) InsertSentiment(ctx context.Context, s *models.SentimentResult) error {
	if s.ProcessedAt.IsZero() {
		s.ProcessedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *feedbackRepo) InsertResponse(ctx context.Context, g *models.GeneratedResponse) error {
	if g.GeneratedAt.IsZero() {
		g.GeneratedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *feedbackRepo) InsertAudio(ctx context.Context, a *models.AudioArtifact) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *feedbackRepo) GetAudio(ctx context.Context, audioID string) (*models.AudioArtifact, error) {
	var a models.AudioArtifact
	err := r.db.WithContext(ctx).Where("id = ?", audioID).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &a, err
}

func (r *feedbackRepo) Stats(ctx context.Context) (*DashboardStats, error) {
	out := &DashboardStats{
		SentimentBreakdown: map[string]int64{},
		CategoryBreakdown:  map[string]int64{},
	}

	if err := r.db.WithContext(ctx).Model(&models.Feedback{}).Count(&out.TotalFeedback).Error; err != nil {
		return nil, err
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var sentiments []bucket
	if err := r.db.WithContext(ctx).
		Model(&models.SentimentResult{}).
		Select("sentiment AS key, COUNT(id) AS count").
		Group("sentiment").
		Scan(&sentiments).Error; err != nil {
		return nil, err
	}
	for _, b := range sentiments {
		out.SentimentBreakdown[b.Key] = b.Count
	}

	var categories []bucket
	if err := r.db.WithContext(ctx).
		Model(&models.Feedback{}).
		Select("category AS key, COUNT(id) AS count").
		Group("category").
		Scan(&categories).Error; err != nil {
		return nil, err
	}
	for _, b := range categories {
		key := b.Key
		if key == "" {
			key = "uncategorized"
		}
		out.CategoryBreakdown[key] = b.Count
	}

	err := r.db.WithContext(ctx).
		Preload("Sentiment").
		Preload("Response").
		Preload("Audio").
		Order("created_at DESC").
		Limit(5).
		Find(&out.RecentFeedback).Error
	return out, err
}
