package sentiment

import (
	"context"
	"time"

	language "cloud.google.com/go/language/apiv2"
	languagepb "cloud.google.com/go/language/apiv2/languagepb"

	"github.com/mirelio/echodesk/internal/models"
)

const requestTimeout = 10 * time.Second

type GoogleLanguage struct {
	c *language.Client

	// MaxKeyPhrases bounds the entities copied into Result.KeyPhrases.
	MaxKeyPhrases int
}

func NewGoogleLanguage(ctx context.Context) (*GoogleLanguage, error) {
	c, err := language.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleLanguage{c: c, MaxKeyPhrases: 10}, nil
}

func (g *GoogleLanguage) Close() error { return g.c.Close() }

func (g *GoogleLanguage) Analyze(ctx context.Context, text string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	doc := &languagepb.Document{
		Source: &languagepb.Document_Content{Content: text},
		Type:   languagepb.Document_PLAIN_TEXT,
	}

	resp, err := g.c.AnalyzeSentiment(ctx, &languagepb.AnalyzeSentimentRequest{Document: doc})
	if err != nil {
		return nil, err
	}

	score := float64(resp.GetDocumentSentiment().GetScore()) // in [-1,1]
	label, confidence := labelFromScore(score)

	res := &Result{
		Label:      label,
		Confidence: confidence,
		Scores:     scoreBreakdown(score),
		Source:     "analyzer",
	}

	// Entity extraction is best-effort; sentiment alone is enough for the
	// downstream stages.
	if ents, err := g.c.AnalyzeEntities(ctx, &languagepb.AnalyzeEntitiesRequest{Document: doc}); err == nil {
		for _, e := range ents.GetEntities() {
			if len(res.KeyPhrases) >= g.MaxKeyPhrases {
				break
			}
			if name := e.GetName(); name != "" {
				res.KeyPhrases = append(res.KeyPhrases, name)
			}
		}
	}

	return res, nil
}

func labelFromScore(score float64) (models.SentimentLabel, float64) {
	confidence := score
	if confidence < 0 {
		confidence = -confidence
	}
	if confidence > 1 {
		confidence = 1
	}
	switch {
	case score > 0.25:
		return models.SentimentPositive, confidence
	case score < -0.25:
		return models.SentimentNegative, confidence
	default:
		// a near-zero score is a confident "neutral"
		return models.SentimentNeutral, 1 - confidence
	}
}

func scoreBreakdown(score float64) map[string]float64 {
	pos := (score + 1) / 2
	return map[string]float64{
		"positive": pos,
		"negative": 1 - pos,
		"neutral":  1 - (pos-0.5)*(pos-0.5)*4,
	}
}
