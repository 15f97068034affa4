// Package summarizer calls the model service that produces extractive and
// abstractive summaries.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/config"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/metrics"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/tracing"
	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

// ErrInvalidSentenceCount is returned for an extractive request without a
// positive sentence count
var ErrInvalidSentenceCount = errors.New("extractive summaries need a positive sentence count")

// Summarizer produces a summary of text
type Summarizer interface {
	Summarize(ctx context.Context, text string, mode models.SummaryMode, numSentences int) (string, error)
}

// Client talks to the summarization service over HTTP
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a summarization client
func NewClient(cfg config.SummarizerConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

type summarizeRequest struct {
	Text         string             `json:"text"`
	Mode         models.SummaryMode `json:"mode"`
	NumSentences int                `json:"num_sentences,omitempty"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
	Error   string `json:"error,omitempty"`
}

// Summarize asks the service for a summary. numSentences is required for
// extractive summaries and ignored for abstractive ones.
func (c *Client) Summarize(ctx context.Context, text string, mode models.SummaryMode, numSentences int) (summary string, err error) {
	span, ctx := tracing.StartSpan(ctx, "summarizer.summarize")
	tracing.SetTag(span, "mode", string(mode))
	start := time.Now()
	defer func() {
		tracing.FinishSpan(span, err)
		metrics.RecordSummary(string(mode), err == nil, time.Since(start).Seconds())
	}()

	req := summarizeRequest{Text: text, Mode: mode}
	switch mode {
	case models.SummaryExtractive:
		if numSentences <= 0 {
			return "", ErrInvalidSentenceCount
		}
		req.NumSentences = numSentences
	case models.SummaryAbstractive:
	default:
		return "", fmt.Errorf("unknown summary mode %q", mode)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/summarize", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("summarizer request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read summarizer response: %w", err)
	}

	var out summarizeResponse
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if json.Unmarshal(raw, &out) == nil && out.Error != "" {
			return "", fmt.Errorf("summarizer returned %d: %s", resp.StatusCode, out.Error)
		}
		return "", fmt.Errorf("summarizer returned %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to decode summarizer response: %w", err)
	}
	return strings.TrimSpace(out.Summary), nil
}
