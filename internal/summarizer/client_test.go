package summarizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/config"
	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

func TestSummarize(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/summarize", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		got = map[string]interface{}{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]string{"summary": " short version "})
	}))
	defer srv.Close()

	c := NewClient(config.SummarizerConfig{BaseURL: srv.URL + "/", Timeout: time.Second})

	summary, err := c.Summarize(context.Background(), "long text", models.SummaryExtractive, 3)
	require.NoError(t, err)
	assert.Equal(t, "short version", summary)
	assert.Equal(t, "long text", got["text"])
	assert.Equal(t, "extractive", got["mode"])
	assert.Equal(t, float64(3), got["num_sentences"])

	_, err = c.Summarize(context.Background(), "long text", models.SummaryAbstractive, 3)
	require.NoError(t, err)
	assert.Equal(t, "abstractive", got["mode"])
	_, hasCount := got["num_sentences"]
	assert.False(t, hasCount)
}

func TestSummarizeValidation(t *testing.T) {
	c := NewClient(config.SummarizerConfig{BaseURL: "http://127.0.0.1:1"})

	_, err := c.Summarize(context.Background(), "text", models.SummaryExtractive, 0)
	assert.ErrorIs(t, err, ErrInvalidSentenceCount)

	_, err = c.Summarize(context.Background(), "text", models.SummaryMode("bullet"), 3)
	assert.ErrorContains(t, err, "unknown summary mode")
}

func TestSummarizeServiceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "CUDA out of memory"}`))
	}))
	defer srv.Close()

	c := NewClient(config.SummarizerConfig{BaseURL: srv.URL})
	_, err := c.Summarize(context.Background(), "text", models.SummaryAbstractive, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "CUDA out of memory")

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer bad.Close()

	c = NewClient(config.SummarizerConfig{BaseURL: bad.URL})
	_, err = c.Summarize(context.Background(), "text", models.SummaryAbstractive, 0)
	assert.ErrorContains(t, err, "failed to decode")
}
