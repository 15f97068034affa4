package transcription

import (
	"context"
	"errors"
	"fmt"
	"unicode"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/captions"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/metrics"
	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

// translationPreference orders translation sources ahead of catalog order
var translationPreference = []string{"en-GB", "en-US", "en"}

// Candidates expands a requested language into the locale codes tried for it
func Candidates(lang string) []string {
	if lang == "en" {
		return []string{"en", "en-GB", "en-US"}
	}
	return []string{lang}
}

// attempt is one way of obtaining a transcript for a language
type attempt struct {
	source    models.SourceType
	candidate string
	track     captions.Track
	// target is set for translation attempts
	target string
}

func (a attempt) kind() string {
	switch a.source {
	case models.SourceManual:
		return "manual"
	case models.SourceAutoGenerated:
		return "generated"
	}
	return "translated"
}

// run fetches the attempt's track, translating it first when needed
func (a attempt) run(ctx context.Context) ([]models.TranscriptEntry, error) {
	track := a.track
	if a.target != "" {
		translated, err := track.Translate(a.target)
		if err != nil {
			return nil, fmt.Errorf("failed to translate %s to %s: %w", track.LanguageCode(), a.target, err)
		}
		track = translated
	}
	return track.Fetch(ctx)
}

// planAttempts builds the ordered attempt list for lang: manual tracks for
// each candidate, then generated tracks for each candidate, then every track
// translatable into lang with the preferred English locales first.
func planAttempts(listing *captions.Listing, lang string) []attempt {
	candidates := Candidates(lang)
	var plan []attempt

	for _, c := range candidates {
		if t, ok := listing.Manual(c); ok {
			plan = append(plan, attempt{source: models.SourceManual, candidate: c, track: t})
		}
	}
	for _, c := range candidates {
		if t, ok := listing.Generated(c); ok {
			plan = append(plan, attempt{source: models.SourceAutoGenerated, candidate: c, track: t})
		}
	}

	sources := listing.TranslatableTo(lang)
	ordered := make([]captions.Track, 0, len(sources))
	for _, code := range translationPreference {
		for _, t := range sources {
			if t.LanguageCode() == code {
				ordered = append(ordered, t)
			}
		}
	}
	for _, t := range sources {
		if !preferred(t.LanguageCode()) {
			ordered = append(ordered, t)
		}
	}
	for _, t := range ordered {
		plan = append(plan, attempt{
			source:    models.SourceTranslated,
			candidate: t.LanguageCode(),
			track:     t,
			target:    lang,
		})
	}

	return plan
}

// hasContent reports whether text has at least one letter or digit
func hasContent(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}

func preferred(code string) bool {
	for _, p := range translationPreference {
		if p == code {
			return true
		}
	}
	return false
}

// resolve consumes the attempt list for lang until the first attempt that
// yields non-empty text.
func (t *Transcriber) resolve(ctx context.Context, listing *captions.Listing, lang string) models.TranscriptResult {
	for _, a := range planAttempts(listing, lang) {
		entries, err := a.run(ctx)
		if err == nil && len(entries) == 0 {
			err = errors.New("track has no entries")
		}
		t.logger.LogTranscriptAttempt(listing.VideoID, lang, a.kind(), a.candidate, err)
		metrics.RecordTranscriptAttempt(a.kind(), err == nil)
		if err != nil {
			continue
		}

		text := t.normalizer.Normalize(ctx, JoinEntries(lang, entries), lang)
		if !hasContent(text) {
			// A track that normalizes to nothing does not count as a transcript
			continue
		}
		return models.TranscriptResult{Language: lang, Text: text, Source: a.source}
	}
	return models.Unavailable(lang, models.SourceNotAvailable)
}

// classifyListingError maps a catalog listing failure to the status every
// requested language receives.
func classifyListingError(err error) models.SourceType {
	if errors.Is(err, captions.ErrTranscriptsDisabled) || errors.Is(err, captions.ErrNoTranscriptFound) {
		return models.SourceNotAvailable
	}
	return models.SourceError
}
