package speech

import (
	"context"
	"fmt"
	"strings"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
)

const requestTimeout = 20 * time.Second

type GoogleTTS struct {
	c *texttospeech.Client

	LanguageCode string
}

func NewGoogleTTS(ctx context.Context) (*GoogleTTS, error) {
	c, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleTTS{c: c, LanguageCode: "en-US"}, nil
}

func (g *GoogleTTS) Close() error { return g.c.Close() }

func (g *GoogleTTS) Synthesize(ctx context.Context, req Request) (*Clip, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := g.c.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Ssml{Ssml: BuildSSML(req)},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.LanguageCode,
			Name:         req.Voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	})
	if err != nil {
		return nil, err
	}

	return &Clip{Audio: resp.GetAudioContent()}, nil
}

// BuildSSML wraps the text in an expressive SSML document. The style degree
// rides on the express-as element; synthesizers without style support ignore
// the extension namespace and fall back to plain prosody.
func BuildSSML(req Request) string {
	return fmt.Sprintf(
		`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xmlns:mstts="https://www.w3.org/2001/mstts" xml:lang="en-US">`+
			`<voice name="%s"><mstts:express-as style="%s" styledegree="%.1f">`+
			`<prosody rate="medium" pitch="medium">%s</prosody>`+
			`</mstts:express-as></voice></speak>`,
		req.Voice, req.Style, req.StyleDegree, EscapeSSML(req.Text))
}

func EscapeSSML(text string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(text)
}
