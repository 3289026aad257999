package models

import "time"

type ProcessingStatus string

const (
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// Terminal reports whether s admits no further transitions.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Feedback struct {
	ID               string           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Text             string           `gorm:"column:text;type:text" json:"text"`
	Category         string           `gorm:"column:category;type:text;index" json:"category"`
	ProcessingStatus ProcessingStatus `gorm:"column:processing_status;type:text;index" json:"processing_status"`
	CreatedAt        time.Time        `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`

	Sentiment *SentimentResult   `gorm:"foreignKey:FeedbackID" json:"sentiment_result,omitempty"`
	Response  *GeneratedResponse `gorm:"foreignKey:FeedbackID" json:"generated_response,omitempty"`
	Audio     *AudioArtifact     `gorm:"foreignKey:FeedbackID" json:"audio_artifact,omitempty"`
}

func (Feedback) TableName() string { return "feedback" }
