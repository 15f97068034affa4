// Package captions lists and fetches the caption tracks published for a video.
package captions

import (
	"context"
	"errors"

	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

// Listing errors. Disabled and not-found are "nothing to use" conditions;
// any other listing error is treated as a fault by callers.
var (
	ErrTranscriptsDisabled = errors.New("transcripts are disabled for this video")
	ErrNoTranscriptFound   = errors.New("no transcript found for this video")
	ErrNotTranslatable     = errors.New("transcript is not translatable")
	ErrVideoUnavailable    = errors.New("video is unavailable")
	ErrTooManyRequests     = errors.New("caption service is rate limiting requests")
	ErrResponseTooLarge    = errors.New("caption service response is too large")
)

// Track is one caption track of a video
type Track interface {
	LanguageCode() string
	Kind() models.TrackKind
	// TranslationLanguages lists the codes this track can be translated into
	TranslationLanguages() []string
	Fetch(ctx context.Context) ([]models.TranscriptEntry, error)
	Translate(lang string) (Track, error)
}

// Catalog lists the caption tracks of a video
type Catalog interface {
	List(ctx context.Context, videoID string) (*Listing, error)
}

// Listing is the set of tracks available for one video
type Listing struct {
	VideoID string

	manual               []Track
	generated            []Track
	translationLanguages []string
}

// NewListing splits tracks by kind, keeping catalog order within each kind.
// translationLanguages is the video-wide set of translation targets.
func NewListing(videoID string, tracks []Track, translationLanguages []string) *Listing {
	l := &Listing{
		VideoID:              videoID,
		translationLanguages: translationLanguages,
	}
	for _, t := range tracks {
		if t.Kind() == models.TrackAutoGenerated {
			l.generated = append(l.generated, t)
		} else {
			l.manual = append(l.manual, t)
		}
	}
	return l
}

// HasManual reports whether a manual track exists for lang
func (l *Listing) HasManual(lang string) bool {
	_, ok := l.Manual(lang)
	return ok
}

// HasGenerated reports whether an auto-generated track exists for lang
func (l *Listing) HasGenerated(lang string) bool {
	_, ok := l.Generated(lang)
	return ok
}

// Manual returns the manual track for lang
func (l *Listing) Manual(lang string) (Track, bool) {
	return find(l.manual, lang)
}

// Generated returns the auto-generated track for lang
func (l *Listing) Generated(lang string) (Track, bool) {
	return find(l.generated, lang)
}

// Tracks returns manual tracks followed by auto-generated ones
func (l *Listing) Tracks() []Track {
	out := make([]Track, 0, len(l.manual)+len(l.generated))
	out = append(out, l.manual...)
	return append(out, l.generated...)
}

// TranslatableTo returns, in catalog order, the tracks that can be
// translated into lang
func (l *Listing) TranslatableTo(lang string) []Track {
	var out []Track
	for _, t := range l.Tracks() {
		for _, target := range t.TranslationLanguages() {
			if target == lang {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// CanTranslateTo reports whether lang is one of the video's translation targets
func (l *Listing) CanTranslateTo(lang string) bool {
	for _, target := range l.translationLanguages {
		if target == lang {
			return true
		}
	}
	return false
}

// TranslationLanguages returns the video's translation targets
func (l *Listing) TranslationLanguages() []string {
	out := make([]string, len(l.translationLanguages))
	copy(out, l.translationLanguages)
	return out
}

func find(tracks []Track, lang string) (Track, bool) {
	for _, t := range tracks {
		if t.LanguageCode() == lang {
			return t, true
		}
	}
	return nil, false
}
