// Package assistant answers help-desk questions about the service with a
// tuned Gemini model and rewrites transcript pronouns for the normalizer.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/logging"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/tracing"
)

// Fallback answers returned instead of an error
const (
	UnprocessableAnswer = "Could not process the response. Please rephrase your question."
	UnavailableAnswer   = "Service temporarily unavailable. Please try again later."
)

// ErrEmptyResponse is returned when the model produced no usable text
var ErrEmptyResponse = errors.New("model returned no text")

// Generator produces text for a prompt
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// AnswerCache stores answers keyed by question
type AnswerCache interface {
	GetAnswer(ctx context.Context, question string) (string, bool, error)
	SetAnswer(ctx context.Context, question, answer string, ttl time.Duration) error
}

// Gemini is a Generator backed by the Gemini API
type Gemini struct {
	client *genai.Client
}

// NewGemini creates a Gemini generator
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Gemini{client: client}, nil
}

// Generate sends a single-turn prompt and joins the text parts of the first candidate
func (g *Gemini) Generate(ctx context.Context, model, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Assistant answers questions about the service
type Assistant struct {
	gen      Generator
	model    string
	cache    AnswerCache
	cacheTTL time.Duration
	logger   *logging.Logger
}

// New creates an assistant. gen may be nil when no API key is configured,
// in which case every question gets UnavailableAnswer. cache is optional.
func New(gen Generator, model string, cache AnswerCache, cacheTTL time.Duration, logger *logging.Logger) *Assistant {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Assistant{
		gen:      gen,
		model:    model,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Answer returns the model's answer to question. Failures are reported as
// one of the fallback answers rather than an error.
func (a *Assistant) Answer(ctx context.Context, question string) string {
	span, ctx := tracing.StartSpan(ctx, "assistant.answer")
	defer span.Finish()

	if a.cache != nil {
		cached, ok, err := a.cache.GetAnswer(ctx, question)
		if err != nil {
			a.logger.WithError(err).Warn("Assistant cache lookup failed")
		} else if ok {
			tracing.SetTag(span, "cache_hit", true)
			return cached
		}
	}

	if a.gen == nil {
		return UnavailableAnswer
	}

	answer, err := a.gen.Generate(ctx, a.model, question)
	if err != nil {
		tracing.LogError(span, err)
		if errors.Is(err, ErrEmptyResponse) {
			a.logger.Warn("Assistant returned an empty response")
			return UnprocessableAnswer
		}
		a.logger.WithError(err).Error("Assistant request failed")
		return UnavailableAnswer
	}

	if a.cache != nil {
		if err := a.cache.SetAnswer(ctx, question, answer, a.cacheTTL); err != nil {
			a.logger.WithError(err).Warn("Failed to cache assistant answer")
		}
	}

	return answer
}
