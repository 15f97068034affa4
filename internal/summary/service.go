// Package summary produces per-language transcripts and summaries for a
// video, rejecting videos longer than the configured ceiling up front.
package summary

import (
	"context"
	"errors"
	"fmt"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/logging"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/metrics"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/summarizer"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/transcription"
	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

var (
	// ErrLengthExceeded is returned for videos over the duration ceiling
	ErrLengthExceeded = errors.New("video too long")
	// ErrCatalogFault is returned when every language failed with an
	// unexpected caption service error
	ErrCatalogFault = errors.New("caption service failed")
	// ErrVideoLookup is returned when the video metadata cannot be read
	ErrVideoLookup = errors.New("failed to look up video")
)

// VideoSource reads video metadata
type VideoSource interface {
	Open(ctx context.Context, videoURL string) (*models.VideoInfo, error)
}

// TranscriptSource resolves per-language transcripts
type TranscriptSource interface {
	GetTranscripts(ctx context.Context, videoURL string, langs []string) (*models.TranscriptSet, error)
}

// Request is a summary request for one video
type Request struct {
	VideoURL     string
	Languages    []string
	NumSentences int
}

// Service orchestrates transcript resolution and summarization
type Service struct {
	videos       VideoSource
	transcripts  TranscriptSource
	summarizer   summarizer.Summarizer
	maxDuration  float64
	defaultLangs []string
	defaultCount int
	logger       *logging.Logger
}

// Options configures a Service
type Options struct {
	MaxDurationSeconds float64
	DefaultLanguages   []string
	DefaultSentences   int
}

// NewService creates a summary service
func NewService(videos VideoSource, transcripts TranscriptSource, s summarizer.Summarizer, opts Options, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	if len(opts.DefaultLanguages) == 0 {
		opts.DefaultLanguages = []string{"en", "hi", "mr"}
	}
	if opts.DefaultSentences <= 0 {
		opts.DefaultSentences = 5
	}
	return &Service{
		videos:       videos,
		transcripts:  transcripts,
		summarizer:   s,
		maxDuration:  opts.MaxDurationSeconds,
		defaultLangs: opts.DefaultLanguages,
		defaultCount: opts.DefaultSentences,
		logger:       logger,
	}
}

// CheckLength opens the video and fails with ErrLengthExceeded when it runs
// longer than the ceiling. A ceiling of zero disables the check.
func (s *Service) CheckLength(ctx context.Context, videoURL string) (*models.VideoInfo, error) {
	info, err := s.videos.Open(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVideoLookup, err)
	}

	rejected := s.maxDuration > 0 && info.LengthSeconds > s.maxDuration
	metrics.RecordVideoDuration(info.LengthSeconds, rejected)
	if rejected {
		return info, fmt.Errorf("%w: %.0fs exceeds %.0fs", ErrLengthExceeded, info.LengthSeconds, s.maxDuration)
	}
	return info, nil
}

// Summarize resolves transcripts for the requested languages and summarizes
// each available one. Unavailable languages get empty fields; a summarizer
// failure for one language leaves its summaries empty but keeps the
// transcript.
func (s *Service) Summarize(ctx context.Context, req Request) (*models.SummarySet, error) {
	if _, err := transcription.ExtractVideoID(req.VideoURL); err != nil {
		return nil, err
	}
	langs := req.Languages
	if len(langs) == 0 {
		langs = s.defaultLangs
	}
	count := req.NumSentences
	if count <= 0 {
		count = s.defaultCount
	}

	if _, err := s.CheckLength(ctx, req.VideoURL); err != nil {
		return nil, err
	}

	transcripts, err := s.transcripts.GetTranscripts(ctx, req.VideoURL, langs)
	if err != nil {
		return nil, err
	}
	if allFailed(transcripts) {
		return nil, ErrCatalogFault
	}

	out := &models.SummarySet{}
	for _, t := range transcripts.Results() {
		result := models.SummaryResult{Language: t.Language, Source: t.Source}
		if t.Source.Available() {
			result.Transcript = t.Text
			result.Extractive, result.Abstractive = s.summarizeOne(ctx, t, count)
		}
		out.Add(result)
	}
	return out, nil
}

func (s *Service) summarizeOne(ctx context.Context, t models.TranscriptResult, count int) (string, string) {
	log := s.logger.WithLanguage(t.Language)

	extractive, err := s.summarizer.Summarize(ctx, t.Text, models.SummaryExtractive, count)
	if err != nil {
		log.WithError(err).Error("extractive summary failed")
		metrics.RecordError("summary", "extractive")
		return "", ""
	}
	abstractive, err := s.summarizer.Summarize(ctx, t.Text, models.SummaryAbstractive, 0)
	if err != nil {
		log.WithError(err).Error("abstractive summary failed")
		metrics.RecordError("summary", "abstractive")
		return "", ""
	}
	return extractive, abstractive
}

func allFailed(set *models.TranscriptSet) bool {
	if set.Len() == 0 {
		return false
	}
	for _, r := range set.Results() {
		if r.Source != models.SourceError {
			return false
		}
	}
	return true
}
