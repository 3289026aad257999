package respond

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
)

const requestTimeout = 30 * time.Second

type VertexGemini struct {
	client    *vertexgenai.Client
	model     *vertexgenai.GenerativeModel
	modelName string
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	m := c.GenerativeModel(modelName)
	m.SetMaxOutputTokens(200)
	m.SetTemperature(0.7)

	return &VertexGemini{client: c, model: m, modelName: modelName}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	full := strings.Builder{}

	it := v.model.GenerateContentStream(ctx, vertexgenai.Text(buildPrompt(req)))
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if t, ok := part.(vertexgenai.Text); ok {
					full.WriteString(string(t))
				}
			}
		}
	}

	text := strings.TrimSpace(full.String())
	if text == "" {
		return nil, errors.New("model returned no text")
	}
	return &Response{Text: text, Model: v.modelName}, nil
}

func buildPrompt(req Request) string {
	b := strings.Builder{}
	b.WriteString("You are an expert customer service representative known for empathetic, personalized responses.\n\n")
	b.WriteString("Generate a professional, empathetic reply to this customer feedback.\n\n")
	fmt.Fprintf(&b, "Customer Feedback: %q\n\n", req.Text)
	fmt.Fprintf(&b, "Analysis Context:\n- Overall Sentiment: %s (confidence: %.2f)\n", req.Sentiment, req.Confidence)
	if len(req.KeyPhrases) > 0 {
		n := len(req.KeyPhrases)
		if n > 5 {
			n = 5
		}
		fmt.Fprintf(&b, "- Key Topics: %s\n", strings.Join(req.KeyPhrases[:n], ", "))
	}
	b.WriteString("\nKeep the reply concise but meaningful (2-3 sentences), address the sentiment and key points, and end with appropriate next steps or appreciation. Reply with the response text only.")
	return b.String()
}
