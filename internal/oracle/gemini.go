// Package oracle implements the AI capabilities the bot consults: code
// detection for text and images, and weekly challenge generation. It talks to
// the Gemini REST API through google.golang.org/api.
//
// Every method returns an error instead of guessing; the fallbacks (heuristic
// scoring, fail-open images, canned challenges) belong to the callers.
package oracle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gl "google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"
)

// ConfidenceThreshold is the minimum confidence for a positive detection.
const ConfidenceThreshold = 0.5

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("oracle: empty model response")

const detectionSystemPrompt = "You are a programming code detection expert. " +
	"Analyze the input and determine if it contains any programming code, code snippets, " +
	"terminal output, IDE screenshots, or code-related content. " +
	`Respond with JSON in this format: {"contains_code": boolean, "confidence": number between 0 and 1}`

// generator is the single call the oracle needs from the API client.
type generator interface {
	Generate(ctx context.Context, model string, req *gl.GenerateContentRequest) (string, error)
}

type serviceGenerator struct{ svc *gl.Service }

func (g serviceGenerator) Generate(ctx context.Context, model string, req *gl.GenerateContentRequest) (string, error) {
	resp, err := g.svc.Models.GenerateContent(modelName(model), req).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

// Gemini is the Gemini-backed oracle.
type Gemini struct {
	gen            generator
	TextModel      string
	ChallengeModel string
}

// NewGemini builds a client authenticated with apiKey.
func NewGemini(ctx context.Context, apiKey, textModel, challengeModel string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("oracle: GEMINI_API_KEY is empty")
	}
	svc, err := gl.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("oracle: create service: %w", err)
	}
	return &Gemini{gen: serviceGenerator{svc: svc}, TextModel: textModel, ChallengeModel: challengeModel}, nil
}

type detection struct {
	ContainsCode bool    `json:"contains_code"`
	Confidence   float64 `json:"confidence"`
}

// DetectCodeInText asks the text model whether text contains code.
func (g *Gemini) DetectCodeInText(ctx context.Context, text string) (bool, error) {
	req := detectionRequest(&gl.Part{Text: text},
		&gl.Part{Text: "Does this message contain programming code or code-related content?"})
	return g.detect(ctx, req)
}

// DetectCodeInImage asks the text model whether the image shows code.
func (g *Gemini) DetectCodeInImage(ctx context.Context, data []byte, mime string) (bool, error) {
	if mime == "" {
		mime = "image/png"
	}
	req := detectionRequest(
		&gl.Part{InlineData: &gl.Blob{MimeType: mime, Data: base64.StdEncoding.EncodeToString(data)}},
		&gl.Part{Text: "Does this image contain programming code, code snippets, terminal output, or code-related content?"},
	)
	return g.detect(ctx, req)
}

func (g *Gemini) detect(ctx context.Context, req *gl.GenerateContentRequest) (bool, error) {
	raw, err := g.gen.Generate(ctx, g.TextModel, req)
	if err != nil {
		return false, err
	}
	return parseDetection(raw)
}

func detectionRequest(parts ...*gl.Part) *gl.GenerateContentRequest {
	return &gl.GenerateContentRequest{
		SystemInstruction: &gl.Content{Parts: []*gl.Part{{Text: detectionSystemPrompt}}},
		Contents:          []*gl.Content{{Role: "user", Parts: parts}},
		GenerationConfig:  &gl.GenerationConfig{ResponseMimeType: "application/json"},
	}
}

// parseDetection decodes the model's JSON verdict. Models sometimes wrap
// JSON in a ```json fence, which is stripped first.
func parseDetection(raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, ErrEmptyResponse
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var d detection
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &d); err != nil {
		return false, fmt.Errorf("oracle: decode verdict: %w", err)
	}
	return d.ContainsCode && d.Confidence > ConfidenceThreshold, nil
}

func modelName(m string) string {
	if strings.HasPrefix(m, "models/") || strings.HasPrefix(m, "tunedModels/") {
		return m
	}
	return "models/" + m
}

func responseText(resp *gl.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil {
				b.WriteString(p.Text)
			}
		}
		// First candidate only.
		break
	}
	return b.String()
}
