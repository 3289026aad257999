package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StageTrace is a short-lived audit record of one pipeline stage transition.
type StageTrace struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FeedbackID string             `bson:"feedback_id" json:"feedback_id"`
	Stage      string             `bson:"stage" json:"stage"`     // sentiment|response|synthesis|finalize
	Outcome    string             `bson:"outcome" json:"outcome"` // ok|fallback|skipped|failed
	Detail     string             `bson:"detail,omitempty" json:"detail,omitempty"`
	ElapsedMS  int64              `bson:"elapsed_ms" json:"elapsed_ms"`
	At         time.Time          `bson:"at" json:"at"`
	ExpiresAt  time.Time          `bson:"expires_at" json:"-"` // for TTL index
}
