package sentiment

import (
	"context"

	"github.com/mirelio/echodesk/internal/models"
)

// Result is the best-effort outcome of one sentiment analysis. The pipeline
// requires a Result to exist before the response stage runs, so providers
// that fail are substituted by the Lexical fallback.
type Result struct {
	Label      models.SentimentLabel
	Confidence float64 // in [0,1]
	Scores     map[string]float64
	KeyPhrases []string
	Source     string // analyzer | fallback
}

type Provider interface {
	Analyze(ctx context.Context, text string) (*Result, error)
	Close() error
}
