package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// SentimentResult is immutable once written; zero-or-one per Feedback.
type SentimentResult struct {
	ID              string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	FeedbackID      string         `gorm:"column:feedback_id;type:uuid;uniqueIndex" json:"feedback_id"`
	Sentiment       SentimentLabel `gorm:"column:sentiment;type:text;index" json:"sentiment"`
	ConfidenceScore float64        `gorm:"column:confidence_score;type:double precision" json:"confidence_score"`
	Scores          datatypes.JSON `gorm:"column:scores;type:jsonb" json:"scores,omitempty"`
	KeyPhrases      pq.StringArray `gorm:"column:key_phrases;type:text[]" json:"key_phrases,omitempty"`
	Source          string         `gorm:"column:source;type:text" json:"source"` // analyzer | fallback
	ProcessedAt     time.Time      `gorm:"column:processed_at;type:timestamptz" json:"processed_at"`
}

func (SentimentResult) TableName() string { return "sentiment_results" }

type GeneratedResponse struct {
	ID           string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	FeedbackID   string    `gorm:"column:feedback_id;type:uuid;uniqueIndex" json:"feedback_id"`
	ResponseText string    `gorm:"column:response_text;type:text" json:"response_text"`
	ModelUsed    string    `gorm:"column:model_used;type:text;index" json:"model_used"`
	GeneratedAt  time.Time `gorm:"column:generated_at;type:timestamptz" json:"generated_at"`
}

func (GeneratedResponse) TableName() string { return "generated_responses" }

type StorageKind string

const (
	StorageLocal      StorageKind = "local"
	StorageRemoteBlob StorageKind = "remote-blob"
)

// AudioArtifact absence is a valid terminal state for a completed Feedback.
type AudioArtifact struct {
	ID              string      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	FeedbackID      string      `gorm:"column:feedback_id;type:uuid;uniqueIndex" json:"feedback_id"`
	Locator         string      `gorm:"column:locator;type:text" json:"locator"`
	StorageKind     StorageKind `gorm:"column:storage_kind;type:text" json:"storage_kind"`
	VoiceName       string      `gorm:"column:voice_name;type:text" json:"voice_name"`
	EmotionStyle    string      `gorm:"column:emotion_style;type:text" json:"emotion_style"`
	DurationSeconds float64     `gorm:"column:duration_seconds;type:double precision" json:"duration_seconds"`
	FileSize        int64       `gorm:"column:file_size;type:bigint" json:"file_size"`
	CreatedAt       time.Time   `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (AudioArtifact) TableName() string { return "audio_artifacts" }
