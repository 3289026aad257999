package speech

import (
	"context"
	"strings"
)

type Request struct {
	Text        string
	Voice       string
	Style       string
	StyleDegree float64
}

type Clip struct {
	Audio           []byte
	DurationSeconds float64 // 0 when the synthesizer does not report one
}

// Provider renders a reply to audio. Failure is non-terminal: the pipeline
// completes without an artifact.
type Provider interface {
	Synthesize(ctx context.Context, req Request) (*Clip, error)
	Close() error
}

// EstimateDuration approximates playback length from the text, roughly 150
// words per minute with a one second floor.
func EstimateDuration(text string) float64 {
	words := len(strings.Fields(text))
	d := float64(words) / 2.5
	if d < 1 {
		return 1
	}
	return d
}
