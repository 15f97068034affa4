// Package captionstest provides an in-memory caption catalog.
package captionstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/captions"
	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

// Track is a caption track whose content is held in memory
type Track struct {
	Lang      string
	TrackKind models.TrackKind
	Entries   []models.TranscriptEntry
	FetchErr  error

	// Translations maps a target language to the translated entries. A
	// target present with nil entries is advertised but fails to fetch.
	Translations map[string][]models.TranscriptEntry

	fetches *int
}

// LanguageCode implements captions.Track
func (t *Track) LanguageCode() string { return t.Lang }

// Kind implements captions.Track
func (t *Track) Kind() models.TrackKind { return t.TrackKind }

// TranslationLanguages implements captions.Track
func (t *Track) TranslationLanguages() []string {
	out := make([]string, 0, len(t.Translations))
	for lang := range t.Translations {
		out = append(out, lang)
	}
	return out
}

// Fetch implements captions.Track
func (t *Track) Fetch(_ context.Context) ([]models.TranscriptEntry, error) {
	if t.fetches != nil {
		*t.fetches++
	}
	if t.FetchErr != nil {
		return nil, t.FetchErr
	}
	return t.Entries, nil
}

// Translate implements captions.Track
func (t *Track) Translate(lang string) (captions.Track, error) {
	entries, ok := t.Translations[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s", captions.ErrNotTranslatable, lang)
	}
	translated := &Track{
		Lang:      lang,
		TrackKind: t.TrackKind,
		Entries:   entries,
		fetches:   t.fetches,
	}
	if entries == nil {
		translated.FetchErr = fmt.Errorf("translation to %s failed", lang)
	}
	return translated, nil
}

// Video describes what the catalog returns for one video id
type Video struct {
	Tracks               []*Track
	TranslationLanguages []string
	// ListErr is returned by List instead of a listing
	ListErr error
}

// Catalog is a captions.Catalog over fixed videos that counts calls
type Catalog struct {
	mu      sync.Mutex
	videos  map[string]*Video
	lists   int
	fetches int
}

// NewCatalog creates a catalog serving videos keyed by id
func NewCatalog(videos map[string]*Video) *Catalog {
	return &Catalog{videos: videos}
}

// List implements captions.Catalog
func (c *Catalog) List(_ context.Context, videoID string) (*captions.Listing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists++

	v, ok := c.videos[videoID]
	if !ok {
		return nil, captions.ErrVideoUnavailable
	}
	if v.ListErr != nil {
		return nil, v.ListErr
	}

	tracks := make([]captions.Track, 0, len(v.Tracks))
	for _, t := range v.Tracks {
		t.fetches = &c.fetches
		tracks = append(tracks, t)
	}
	return captions.NewListing(videoID, tracks, v.TranslationLanguages), nil
}

// Lists returns how many times List was called
func (c *Catalog) Lists() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lists
}

// Fetches returns how many track fetches were attempted
func (c *Catalog) Fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

// Entries builds transcript entries from plain lines
func Entries(lines ...string) []models.TranscriptEntry {
	out := make([]models.TranscriptEntry, 0, len(lines))
	for i, l := range lines {
		out = append(out, models.TranscriptEntry{Text: l, Start: float64(i), Duration: 1})
	}
	return out
}
