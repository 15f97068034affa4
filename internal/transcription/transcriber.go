// Package transcription turns a video's caption tracks into cleaned,
// per-language transcript text, falling back to speech recognition when a
// video has no captions.
package transcription

import (
	"context"
	"errors"
	"net/url"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/captions"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/logging"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/metrics"
	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

// ErrInvalidVideoURL is returned when a URL carries no video id
var ErrInvalidVideoURL = errors.New("video url has no v= parameter")

// Transcriber resolves transcripts for a video
type Transcriber struct {
	catalog    captions.Catalog
	normalizer *Normalizer
	speech     *SpeechFallback
	logger     *logging.Logger
}

// NewTranscriber creates a transcriber. speech may be nil, in which case
// Transcribe fails when no caption track is available.
func NewTranscriber(catalog captions.Catalog, normalizer *Normalizer, speech *SpeechFallback, logger *logging.Logger) *Transcriber {
	if logger == nil {
		logger = logging.Nop()
	}
	if normalizer == nil {
		normalizer = NewNormalizer(nil, nil, logger)
	}
	return &Transcriber{
		catalog:    catalog,
		normalizer: normalizer,
		speech:     speech,
		logger:     logger,
	}
}

// ExtractVideoID returns the v query parameter of an absolute http(s) URL
func ExtractVideoID(videoURL string) (string, error) {
	u, err := url.Parse(videoURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidVideoURL
	}
	id := u.Query().Get("v")
	if id == "" {
		return "", ErrInvalidVideoURL
	}
	return id, nil
}

// GetTranscripts resolves one transcript per requested language. The catalog
// is listed once; a listing that reports disabled or missing captions marks
// every language not_available and any other listing fault marks every
// language error. The only error returned is ErrInvalidVideoURL.
func (t *Transcriber) GetTranscripts(ctx context.Context, videoURL string, langs []string) (*models.TranscriptSet, error) {
	videoID, err := ExtractVideoID(videoURL)
	if err != nil {
		return nil, err
	}
	langs = models.DedupeLanguages(langs)
	log := t.logger.WithVideoID(videoID)

	set := models.NewTranscriptSet()
	listing, err := t.catalog.List(ctx, videoID)
	if err != nil {
		status := classifyListingError(err)
		log.WithError(err).WithField("status", string(status)).Warn("caption listing failed")
		metrics.RecordCaptionListing(string(status))
		for _, lang := range langs {
			set.Put(models.Unavailable(lang, status))
			metrics.RecordTranscriptResult(lang, string(status))
		}
		return set, nil
	}
	metrics.RecordCaptionListing("ok")

	for _, lang := range langs {
		result := t.resolve(ctx, listing, lang)
		log.WithLanguage(lang).WithField("source_type", string(result.Source)).Info("transcript resolved")
		metrics.RecordTranscriptResult(lang, string(result.Source))
		set.Put(result)
	}
	return set, nil
}

// ListAvailability reports, without fetching any text, which kind of caption
// source exists for each language: manual, then auto_generated, then
// translated when the language is one of the video's translation targets.
func (t *Transcriber) ListAvailability(ctx context.Context, videoURL string, langs []string) (*models.Availability, error) {
	videoID, err := ExtractVideoID(videoURL)
	if err != nil {
		return nil, err
	}
	langs = models.DedupeLanguages(langs)

	avail := models.NewAvailability()
	listing, err := t.catalog.List(ctx, videoID)
	if err != nil {
		status := classifyListingError(err)
		t.logger.WithVideoID(videoID).WithError(err).Warn("caption listing failed")
		metrics.RecordCaptionListing(string(status))
		for _, lang := range langs {
			avail.Set(lang, status)
		}
		return avail, nil
	}
	metrics.RecordCaptionListing("ok")

	for _, lang := range langs {
		switch {
		case listing.HasManual(lang):
			avail.Set(lang, models.SourceManual)
		case listing.HasGenerated(lang):
			avail.Set(lang, models.SourceAutoGenerated)
		case listing.CanTranslateTo(lang):
			avail.Set(lang, models.SourceTranslated)
		default:
			avail.Set(lang, models.SourceNotAvailable)
		}
	}
	return avail, nil
}
