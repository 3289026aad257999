package respond

import (
	"context"

	"github.com/mirelio/echodesk/internal/models"
)

type Request struct {
	Text       string
	Sentiment  models.SentimentLabel
	Confidence float64
	KeyPhrases []string
}

type Response struct {
	Text  string
	Model string
}

// Provider generates a customer-facing reply. A failure here is terminal for
// the submission; callers needing retries should wrap the Provider.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Close() error
}
