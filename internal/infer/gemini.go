package infer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiEngine calls the Gemini API, constrained to JSON output.
type GeminiEngine struct {
	apiKey string
	model  string
}

func NewGeminiEngine(apiKey, model string) *GeminiEngine {
	return &GeminiEngine{
		apiKey: strings.TrimSpace(apiKey),
		model:  strings.TrimSpace(model),
	}
}

func (e *GeminiEngine) Name() string { return "gemini" }

func (e *GeminiEngine) Infer(ctx context.Context, req Request) (string, error) {
	if e.apiKey == "" {
		return "", fmt.Errorf("gemini api key is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.apiKey))
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0.1),
		ResponseMIMEType: "application/json",
	}
	if req.System != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		// The genai client does not expose HTTP status codes directly;
		// transient failures are identified by message.
		if isTransientGemini(err) {
			return "", &RetryableError{StatusCode: 0, Message: err.Error()}
		}
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini response contains no text parts")
	}
	return sb.String(), nil
}

func isTransientGemini(err error) bool {
	msg := err.Error()
	for _, marker := range []string{"500", "502", "503", "504", "429", "deadline", "unavailable"} {
		if strings.Contains(strings.ToLower(msg), marker) {
			return true
		}
	}
	return false
}

func ptrFloat32(f float32) *float32 { return &f }
