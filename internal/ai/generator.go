package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

var (
	// ErrUnavailable means no generator is configured (missing API key).
	ErrUnavailable = errors.New("ai: generator unavailable")
	// ErrEmptyCompletion is returned when the model answers with no text.
	ErrEmptyCompletion = errors.New("ai: empty completion")
)

// Completion is the raw text produced for a prompt.
type Completion struct {
	Text  string
	Model string
}

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Completion, error)
}

// GenAIGenerator calls the Gemini API.
type GenAIGenerator struct {
	client      *genai.Client
	model       string
	timeout     time.Duration
	temperature float32
}

// NewGenAIGenerator creates a client for apiKey. An empty key yields
// ErrUnavailable so callers can degrade instead of failing at startup.
func NewGenAIGenerator(ctx context.Context, apiKey, model string, timeout time.Duration) (*GenAIGenerator, error) {
	if apiKey == "" {
		return nil, ErrUnavailable
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIGenerator{client: client, model: model, timeout: timeout, temperature: 0.4}, nil
}

// Model returns the configured model name.
func (g *GenAIGenerator) Model() string { return g.model }

// Generate sends prompt as a single user turn.
func (g *GenAIGenerator) Generate(ctx context.Context, prompt string) (Completion, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	})
	if err != nil {
		return Completion{}, fmt.Errorf("GenAI generate failed: %w", err)
	}

	return completion(resp, g.model)
}

// completion keeps the response text as generated. A whitespace-only answer
// is ErrEmptyCompletion.
func completion(resp *genai.GenerateContentResponse, model string) (Completion, error) {
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return Completion{}, ErrEmptyCompletion
	}
	if resp.ModelVersion != "" {
		model = resp.ModelVersion
	}
	return Completion{Text: text, Model: model}, nil
}
