package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mirelio/echodesk/internal/utils"
)

const (
	MinTextLength = 10
	MaxTextLength = 5000
)

var validCategories = map[string]bool{
	"general":   true,
	"service":   true,
	"product":   true,
	"support":   true,
	"billing":   true,
	"technical": true,
}

var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)data:.*base64`),
	regexp.MustCompile(`(?i)<iframe[^>]*>`),
	regexp.MustCompile(`(?i)<object[^>]*>`),
	regexp.MustCompile(`(?i)<embed[^>]*>`),
}

// Submission validates and normalizes a feedback submission. It returns the
// trimmed text and the lowercased category (defaulting to "general").
func Submission(text, category string) (string, string, error) {
	const op = "validate.Submission"

	text = strings.TrimSpace(text)
	if len(text) < MinTextLength {
		return "", "", utils.E(utils.CodeInvalidArgument, op,
			fmt.Sprintf("feedback text must be at least %d characters", MinTextLength), nil)
	}
	if len(text) > MaxTextLength {
		return "", "", utils.E(utils.CodeInvalidArgument, op,
			fmt.Sprintf("feedback text must not exceed %d characters", MaxTextLength), nil)
	}
	for _, p := range suspiciousPatterns {
		if p.MatchString(text) {
			return "", "", utils.E(utils.CodeInvalidArgument, op, "feedback contains inappropriate content", nil)
		}
	}

	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = "general"
	}
	if !validCategories[category] {
		return "", "", utils.E(utils.CodeInvalidArgument, op, "unknown category", nil)
	}

	return text, category, nil
}

// CategoryFilter normalizes an optional listing filter. Unknown values are
// dropped rather than rejected, matching the listing endpoint's behavior.
func CategoryFilter(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	if validCategories[category] {
		return category
	}
	return ""
}

// Pagination clamps page and per-page query values to their allowed ranges.
func Pagination(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
