package pipeline

import "github.com/mirelio/echodesk/internal/models"

// VoiceProfile carries the synthesis parameters derived from a sentiment
// result. Derivation is a pure function of (label, confidence).
type VoiceProfile struct {
	Voice       string
	Style       string
	StyleDegree float64
}

// DeriveVoiceProfile maps a sentiment label and confidence to a voice, an
// emotion style, and a style intensity. All bands use strict comparison: a
// confidence exactly at a cut point falls into the band below it.
func DeriveVoiceProfile(label models.SentimentLabel, confidence float64) VoiceProfile {
	p := VoiceProfile{
		Voice:       "en-US-AriaNeural",
		StyleDegree: styleDegree(confidence),
	}

	switch label {
	case models.SentimentPositive:
		p.Voice = "en-US-JennyNeural"
		switch {
		case confidence > 0.8:
			p.Style = "excited"
		case confidence > 0.6:
			p.Style = "cheerful"
		default:
			p.Style = "friendly"
		}
	case models.SentimentNegative:
		switch {
		case confidence > 0.8:
			p.Style = "sad"
		case confidence > 0.6:
			p.Style = "empathetic"
		default:
			p.Style = "calm"
		}
	default:
		switch {
		case confidence > 0.7:
			p.Style = "narration-professional"
		case confidence > 0.5:
			p.Style = "assistant"
		default:
			p.Style = "chat"
		}
	}

	return p
}

func styleDegree(confidence float64) float64 {
	switch {
	case confidence > 0.9:
		return 1.3
	case confidence > 0.7:
		return 1.2
	case confidence > 0.5:
		return 1.1
	default:
		return 1.0
	}
}
