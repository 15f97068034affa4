package transcription

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/captions"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/captions/captionstest"
	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

const videoURL = "https://www.youtube.com/watch?v=vid123"

var (
	englishLines = captionstest.Entries("Hello everyone and welcome to the show.", "Today we talk about caption tracks.")
	hindiLines   = captionstest.Entries("नमस्ते दोस्तों।", "आज हम बात करेंगे।")
)

func newTestTranscriber(t *testing.T, catalog captions.Catalog) *Transcriber {
	t.Helper()
	seg, err := NewPunktSegmenter()
	require.NoError(t, err)
	return NewTranscriber(catalog, NewNormalizer(seg, nil, nil), nil, nil)
}

func statuses(set *models.TranscriptSet) map[string]models.SourceType {
	out := make(map[string]models.SourceType)
	for _, r := range set.Results() {
		out[r.Language] = r.Source
	}
	return out
}

func TestCandidates(t *testing.T) {
	assert.Equal(t, []string{"en", "en-GB", "en-US"}, Candidates("en"))
	assert.Equal(t, []string{"hi"}, Candidates("hi"))
	assert.Equal(t, []string{"en-GB"}, Candidates("en-GB"))
}

func TestGetTranscriptsMixedSources(t *testing.T) {
	catalog := captionstest.NewCatalog(map[string]*captionstest.Video{
		"vid123": {Tracks: []*captionstest.Track{
			{Lang: "en", TrackKind: models.TrackManual, Entries: englishLines},
			{Lang: "hi", TrackKind: models.TrackAutoGenerated, Entries: hindiLines},
		}},
	})
	tr := newTestTranscriber(t, catalog)

	set, err := tr.GetTranscripts(context.Background(), videoURL, []string{"en", "hi", "mr"})
	require.NoError(t, err)

	assert.Equal(t, map[string]models.SourceType{
		"en": models.SourceManual,
		"hi": models.SourceAutoGenerated,
		"mr": models.SourceNotAvailable,
	}, statuses(set))

	var order []string
	for _, r := range set.Results() {
		order = append(order, r.Language)
		assert.Equal(t, r.Text == "", !r.Source.Available(), r.Language)
	}
	assert.Equal(t, []string{"en", "hi", "mr"}, order)
	assert.Equal(t, 1, catalog.Lists())

	hi, _ := set.Get("hi")
	assert.Equal(t, "नमस्ते दोस्तों. आज हम बात करेंगे", hi.Text)

	raw, err := set.MarshalJSON()
	require.NoError(t, err)
	assert.Regexp(t, `^\{"en":\{.*\},"hi":\{.*\},"mr":\{"text":"","source_type":"not_available"\}\}$`, string(raw))
}

func TestManualPreferredOverOtherSources(t *testing.T) {
	catalog := captionstest.NewCatalog(map[string]*captionstest.Video{
		"vid123": {Tracks: []*captionstest.Track{
			{Lang: "en", TrackKind: models.TrackAutoGenerated, Entries: captionstest.Entries("this generated track should never be picked")},
			{Lang: "de", TrackKind: models.TrackManual, Entries: captionstest.Entries("Guten Tag"),
				Translations: map[string][]models.TranscriptEntry{"en": captionstest.Entries("this translated track should never be picked")}},
			{Lang: "en", TrackKind: models.TrackManual, Entries: englishLines},
		}},
	})
	tr := newTestTranscriber(t, catalog)

	set, err := tr.GetTranscripts(context.Background(), videoURL, []string{"en"})
	require.NoError(t, err)

	en, ok := set.Get("en")
	require.True(t, ok)
	assert.Equal(t, models.SourceManual, en.Source)
	assert.Equal(t, "Hello everyone and welcome to the show. Today we talk about caption tracks.", en.Text)
	assert.Equal(t, 1, catalog.Fetches())
}

func TestGeneratedPreferredOverTranslation(t *testing.T) {
	catalog := captionstest.NewCatalog(map[string]*captionstest.Video{
		"vid123": {Tracks: []*captionstest.Track{
			{Lang: "en", TrackKind: models.TrackManual, Entries: englishLines,
				Translations: map[string][]models.TranscriptEntry{"hi": captionstest.Entries("अनुवाद")}},
			{Lang: "hi", TrackKind: models.TrackAutoGenerated, Entries: hindiLines},
		}},
	})
	tr := newTestTranscriber(t, catalog)

	set, err := tr.GetTranscripts(context.Background(), videoURL, []string{"hi"})
	require.NoError(t, err)
	hi, _ := set.Get("hi")
	assert.Equal(t, models.SourceAutoGenerated, hi.Source)
	assert.NotContains(t, hi.Text, "अनुवाद")
}

func TestEnglishCandidateOrder(t *testing.T) {
	failing := errors.New("fetch failed")
	catalog := captionstest.NewCatalog(map[string]*captionstest.Video{
		"vid123": {Tracks: []*captionstest.Track{
			{Lang: "en-US", TrackKind: models.TrackManual, Entries: captionstest.Entries("The American English track is the one that works.")},
			{Lang: "en-GB", TrackKind: models.TrackManual, FetchErr: failing},
			{Lang: "en", TrackKind: models.TrackManual, FetchErr: failing},
		}},
	})
	tr := newTestTranscriber(t, catalog)

	plan := planAttempts(mustList(t, catalog), "en")
	var order []string
	for _, a := range plan {
		order = append(order, a.candidate)
	}
	assert.Equal(t, []string{"en", "en-GB", "en-US"}, order)

	set, err := tr.GetTranscripts(context.Background(), videoURL, []string{"en"})
	require.NoError(t, err)
	en, _ := set.Get("en")
	assert.Equal(t, models.SourceManual, en.Source)
	assert.Equal(t, "The American English track is the one that works.", en.Text)
	assert.Equal(t, 3, catalog.Fetches())
}

func TestFetchFailureFallsThroughToGenerated(t *testing.T) {
	catalog := captionstest.NewCatalog(map[string]*captionstest.Video{
		"vid123": {Tracks: []*captionstest.Track{
			{Lang: "en", TrackKind: models.TrackManual, FetchErr: errors.New("timeout")},
			{Lang: "en-GB", TrackKind: models.TrackAutoGenerated, Entries: englishLines},
		}},
	})
	tr := newTestTranscriber(t, catalog)

	set, err := tr.GetTranscripts(context.Background(), videoURL, []string{"en"})
	require.NoError(t, err)
	en, _ := set.Get("en")
	assert.Equal(t, models.SourceAutoGenerated, en.Source)
}

func TestTranslatedSource(t *testing.T) {
	catalog := captionstest.NewCatalog(map[string]*captionstest.Video{
		"vid123": {Tracks: []*captionstest.Track{
			{Lang: "de", TrackKind: models.TrackManual, Entries: captionstest.Entries("Hallo"),
				Translations: map[string][]models.TranscriptEntry{"mr": captionstest.Entries("from german")}},
			{Lang: "en", TrackKind: models.TrackAutoGenerated, Entries: englishLines,
				Translations: map[string][]models.TranscriptEntry{"mr": captionstest.Entries("नमस्कार मित्रांनो।")}},
		}},
	})
	tr := newTestTranscriber(t, catalog)

	set, err := tr.GetTranscripts(context.Background(), videoURL, []string{"mr"})
	require.NoError(t, err)
	mr, _ := set.Get("mr")
	assert.Equal(t, models.SourceTranslated, mr.Source)
	assert.Equal(t, "नमस्कार मित्रांनो", mr.Text)
}

func TestTranslationFailureTriesNextSource(t *testing.T) {
	catalog := captionstest.NewCatalog(map[string]*captionstest.Video{
		"vid123": {Tracks: []*captionstest.Track{
			{Lang: "fr", TrackKind: models.TrackManual, Entries: captionstest.Entries("Bonjour"),
				Translations: map[string][]models.TranscriptEntry{"hi": captionstest.Entries("फ्रेंच से")}},
			{Lang: "en-GB", TrackKind: models.TrackManual, Entries: englishLines,
				Translations: map[string][]models.TranscriptEntry{"hi": nil}},
		}},
	})
	tr := newTestTranscriber(t, catalog)

	plan := planAttempts(mustList(t, catalog), "hi")
	require.Len(t, plan, 2)
	assert.Equal(t, "en-GB", plan[0].candidate)
	assert.Equal(t, "fr", plan[1].candidate)

	set, err := tr.GetTranscripts(context.Background(), videoURL, []string{"hi"})
	require.NoError(t, err)
	hi, _ := set.Get("hi")
	assert.Equal(t, models.SourceTranslated, hi.Source)
	assert.Equal(t, "फ्रेंच से", hi.Text)
}

func TestListingFailures(t *testing.T) {
	tests := []struct {
		name    string
		listErr error
		want    models.SourceType
	}{
		{"transcripts disabled", captions.ErrTranscriptsDisabled, models.SourceNotAvailable},
		{"no transcript found", captions.ErrNoTranscriptFound, models.SourceNotAvailable},
		{"wrapped not found", errors.Join(errors.New("listing"), captions.ErrNoTranscriptFound), models.SourceNotAvailable},
		{"unexpected fault", errors.New("connection reset"), models.SourceError},
		{"video unavailable", captions.ErrVideoUnavailable, models.SourceError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := captionstest.NewCatalog(map[string]*captionstest.Video{
				"vid123": {
					ListErr: tt.listErr,
					Tracks:  []*captionstest.Track{{Lang: "en", TrackKind: models.TrackManual, Entries: englishLines}},
				},
			})
			tr := newTestTranscriber(t, catalog)

			set, err := tr.GetTranscripts(context.Background(), videoURL, []string{"en", "hi", "mr"})
			require.NoError(t, err)
			require.Equal(t, 3, set.Len())
			for _, r := range set.Results() {
				assert.Equal(t, tt.want, r.Source, r.Language)
				assert.Empty(t, r.Text)
			}
			assert.Equal(t, 1, catalog.Lists())
			assert.Equal(t, 0, catalog.Fetches())
		})
	}
}

func TestEmptyTranscriptIsNotAvailable(t *testing.T) {
	catalog := captionstest.NewCatalog(map[string]*captionstest.Video{
		"vid123": {Tracks: []*captionstest.Track{
			{Lang: "hi", TrackKind: models.TrackManual, Entries: captionstest.Entries("[संगीत]", "[तालियाँ]")},
			{Lang: "en", TrackKind: models.TrackManual, Entries: captionstest.Entries("um ok", "[Music]")},
		}},
	})
	tr := newTestTranscriber(t, catalog)

	set, err := tr.GetTranscripts(context.Background(), videoURL, []string{"hi", "en"})
	require.NoError(t, err)
	for _, r := range set.Results() {
		assert.Equal(t, models.SourceNotAvailable, r.Source, r.Language)
		assert.Empty(t, r.Text)
	}
}

func TestDuplicateLanguagesResolvedOnce(t *testing.T) {
	catalog := captionstest.NewCatalog(map[string]*captionstest.Video{
		"vid123": {Tracks: []*captionstest.Track{{Lang: "en", TrackKind: models.TrackManual, Entries: englishLines}}},
	})
	tr := newTestTranscriber(t, catalog)

	set, err := tr.GetTranscripts(context.Background(), videoURL, []string{"en", "en"})
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
	assert.Equal(t, 1, catalog.Fetches())
}

func TestGetTranscriptsInvalidURL(t *testing.T) {
	tr := newTestTranscriber(t, captionstest.NewCatalog(nil))
	_, err := tr.GetTranscripts(context.Background(), "https://example.com/video", []string{"en"})
	assert.ErrorIs(t, err, ErrInvalidVideoURL)
}

func TestListAvailability(t *testing.T) {
	catalog := captionstest.NewCatalog(map[string]*captionstest.Video{
		"vid123": {
			Tracks: []*captionstest.Track{
				{Lang: "en", TrackKind: models.TrackManual, Entries: englishLines},
				{Lang: "hi", TrackKind: models.TrackAutoGenerated, Entries: hindiLines},
			},
			TranslationLanguages: []string{"mr", "ta"},
		},
	})
	tr := newTestTranscriber(t, catalog)

	avail, err := tr.ListAvailability(context.Background(), videoURL, []string{"en", "hi", "mr", "fr"})
	require.NoError(t, err)

	assert.Equal(t, models.SourceManual, avail.Status("en"))
	assert.Equal(t, models.SourceAutoGenerated, avail.Status("hi"))
	assert.Equal(t, models.SourceTranslated, avail.Status("mr"))
	assert.Equal(t, models.SourceNotAvailable, avail.Status("fr"))
	assert.Equal(t, map[string]bool{"en": true, "hi": true, "mr": true, "fr": false}, avail.Available())
	assert.Equal(t, 0, catalog.Fetches())

	raw, err := avail.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"en":"manual","hi":"auto_generated","mr":"translated","fr":"not_available"}`, string(raw))
}

func TestListAvailabilityListingFault(t *testing.T) {
	catalog := captionstest.NewCatalog(map[string]*captionstest.Video{
		"vid123": {ListErr: errors.New("boom")},
	})
	tr := newTestTranscriber(t, catalog)

	avail, err := tr.ListAvailability(context.Background(), videoURL, []string{"en", "hi"})
	require.NoError(t, err)
	assert.Equal(t, models.SourceError, avail.Status("en"))
	assert.Equal(t, map[string]bool{"en": false, "hi": false}, avail.Available())
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch?feature=share&v=abc123&t=42", "abc123", false},
		{"https://www.youtube.com/watch?v=abc#t=10", "abc", false},
		{"http://youtube.com/watch?v=xyz", "xyz", false},
		{"youtube.com/watch?v=xyz", "", true},
		{"https://www.youtube.com/watch?v=xyz%zz", "", true},
		{"--batch-file=/etc/passwd#v=abc", "", true},
		{"https://x/watch?nav=abc", "", true},
		{"https://www.youtube.com/watch#v=abc", "", true},
		{"https://www.youtube.com/watch?v=-abc_123", "-abc_123", false},
		{"file:///etc/passwd?v=abc", "", true},
		{"https://youtu.be/abc123", "", true},
		{"https://www.youtube.com/watch?v=", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractVideoID(tt.url)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidVideoURL, tt.url)
			continue
		}
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.want, got, tt.url)
	}
}

func mustList(t *testing.T, catalog captions.Catalog) *captions.Listing {
	t.Helper()
	l, err := catalog.List(context.Background(), "vid123")
	require.NoError(t, err)
	return l
}
