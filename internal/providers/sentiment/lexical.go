package sentiment

import (
	"strings"

	"github.com/mirelio/echodesk/internal/models"
)

var positiveWords = []string{"good", "great", "excellent", "amazing", "love", "perfect", "wonderful"}
var negativeWords = []string{"bad", "terrible", "awful", "hate", "horrible", "worst", "disappointing"}

// Lexical is a deterministic keyword polarity scorer used when the analyzer
// collaborator is unavailable. Same input always yields the same Result.
func Lexical(text string) *Result {
	lower := strings.ToLower(text)

	var pos, neg int
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			neg++
		}
	}

	label := models.SentimentNeutral
	confidence := 0.6
	switch {
	case pos > neg:
		label = models.SentimentPositive
		confidence = 0.8
	case neg > pos:
		label = models.SentimentNegative
		confidence = 0.8
	}

	scores := map[string]float64{
		"positive": 0.3,
		"negative": 0.3,
		"neutral":  0.3,
	}
	scores[string(label)] = confidence

	return &Result{
		Label:      label,
		Confidence: confidence,
		Scores:     scores,
		Source:     "fallback",
	}
}
