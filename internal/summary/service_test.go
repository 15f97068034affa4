package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/captions"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/captions/captionstest"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/transcription"
	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

const videoURL = "https://www.youtube.com/watch?v=vid123"

type stubVideos struct {
	length float64
	err    error
	opens  int
}

func (s *stubVideos) Open(_ context.Context, url string) (*models.VideoInfo, error) {
	s.opens++
	if s.err != nil {
		return nil, s.err
	}
	return &models.VideoInfo{ID: "vid123", URL: url, LengthSeconds: s.length}, nil
}

type mockSummarizer struct {
	mock.Mock
}

func (m *mockSummarizer) Summarize(ctx context.Context, text string, mode models.SummaryMode, n int) (string, error) {
	args := m.Called(ctx, text, mode, n)
	return args.String(0), args.Error(1)
}

func mixedCatalog() *captionstest.Catalog {
	return captionstest.NewCatalog(map[string]*captionstest.Video{
		"vid123": {Tracks: []*captionstest.Track{
			{Lang: "en", TrackKind: models.TrackManual, Entries: captionstest.Entries("Welcome to this long talk about summarization.")},
			{Lang: "hi", TrackKind: models.TrackAutoGenerated, Entries: captionstest.Entries("नमस्ते दोस्तों")},
		}},
	})
}

func newService(t *testing.T, videos *stubVideos, catalog captions.Catalog, s *mockSummarizer) *Service {
	t.Helper()
	seg, err := transcription.NewPunktSegmenter()
	require.NoError(t, err)
	tr := transcription.NewTranscriber(catalog, transcription.NewNormalizer(seg, nil, nil), nil, nil)
	return NewService(videos, tr, s, Options{MaxDurationSeconds: 7600}, nil)
}

func TestSummarizeRejectsLongVideos(t *testing.T) {
	for _, langs := range [][]string{{"en"}, {"en", "hi", "mr"}} {
		videos := &stubVideos{length: 8000}
		catalog := mixedCatalog()
		sum := &mockSummarizer{}
		svc := newService(t, videos, catalog, sum)

		_, err := svc.Summarize(context.Background(), Request{VideoURL: videoURL, Languages: langs, NumSentences: 5})

		assert.ErrorIs(t, err, ErrLengthExceeded)
		assert.Equal(t, 1, videos.opens)
		assert.Zero(t, catalog.Lists(), "no transcript work before the length check")
		sum.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestSummarizeAtCeilingIsAllowed(t *testing.T) {
	sum := &mockSummarizer{}
	sum.On("Summarize", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("s", nil)
	svc := newService(t, &stubVideos{length: 7600}, mixedCatalog(), sum)

	_, err := svc.Summarize(context.Background(), Request{VideoURL: videoURL, Languages: []string{"en"}})
	assert.NoError(t, err)
}

func TestSummarizeMixedLanguages(t *testing.T) {
	sum := &mockSummarizer{}
	en := "Welcome to this long talk about summarization."
	sum.On("Summarize", mock.Anything, en, models.SummaryExtractive, 2).Return("en extractive", nil)
	sum.On("Summarize", mock.Anything, en, models.SummaryAbstractive, 0).Return("en abstractive", nil)
	sum.On("Summarize", mock.Anything, "नमस्ते दोस्तों", models.SummaryExtractive, 2).Return("hi extractive", nil)
	sum.On("Summarize", mock.Anything, "नमस्ते दोस्तों", models.SummaryAbstractive, 0).Return("hi abstractive", nil)

	svc := newService(t, &stubVideos{length: 600}, mixedCatalog(), sum)

	set, err := svc.Summarize(context.Background(), Request{VideoURL: videoURL, Languages: []string{"en", "hi", "mr"}, NumSentences: 2})
	require.NoError(t, err)
	sum.AssertExpectations(t)

	results := set.Results()
	require.Len(t, results, 3)
	assert.Equal(t, models.SummaryResult{Language: "en", Transcript: en, Extractive: "en extractive", Abstractive: "en abstractive", Source: models.SourceManual}, results[0])
	assert.Equal(t, models.SourceAutoGenerated, results[1].Source)
	assert.Equal(t, "hi abstractive", results[1].Abstractive)
	assert.Equal(t, models.SummaryResult{Language: "mr", Source: models.SourceNotAvailable}, results[2])

	raw, err := set.MarshalJSON()
	require.NoError(t, err)
	assert.Regexp(t, `^\{"en":.*"hi":.*"mr":\{"transcript":"","extractive":"","abstractive":"","source_type":"not_available"\}\}$`, string(raw))
}

func TestSummarizeSummarizerFailureKeepsTranscript(t *testing.T) {
	sum := &mockSummarizer{}
	sum.On("Summarize", mock.Anything, "नमस्ते दोस्तों", models.SummaryExtractive, 5).Return("", errors.New("model crashed"))
	sum.On("Summarize", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("ok", nil)

	svc := newService(t, &stubVideos{length: 600}, mixedCatalog(), sum)
	set, err := svc.Summarize(context.Background(), Request{VideoURL: videoURL, Languages: []string{"en", "hi"}})
	require.NoError(t, err)

	hi, ok := set.Get("hi")
	require.True(t, ok)
	assert.Equal(t, "नमस्ते दोस्तों", hi.Transcript)
	assert.Empty(t, hi.Extractive)
	assert.Empty(t, hi.Abstractive)

	en, _ := set.Get("en")
	assert.Equal(t, "ok", en.Extractive)
}

func TestSummarizeListingFailures(t *testing.T) {
	sum := &mockSummarizer{}

	faulty := captionstest.NewCatalog(map[string]*captionstest.Video{"vid123": {ListErr: errors.New("connection refused")}})
	svc := newService(t, &stubVideos{length: 60}, faulty, sum)
	_, err := svc.Summarize(context.Background(), Request{VideoURL: videoURL})
	assert.ErrorIs(t, err, ErrCatalogFault)

	disabled := captionstest.NewCatalog(map[string]*captionstest.Video{"vid123": {ListErr: captions.ErrTranscriptsDisabled}})
	svc = newService(t, &stubVideos{length: 60}, disabled, sum)
	set, err := svc.Summarize(context.Background(), Request{VideoURL: videoURL})
	require.NoError(t, err)

	var langs []string
	for _, r := range set.Results() {
		langs = append(langs, r.Language)
		assert.Equal(t, models.SourceNotAvailable, r.Source)
		assert.Empty(t, r.Transcript)
	}
	assert.Equal(t, []string{"en", "hi", "mr"}, langs)
	sum.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSummarizeInputErrors(t *testing.T) {
	videos := &stubVideos{length: 60}
	svc := newService(t, videos, mixedCatalog(), &mockSummarizer{})

	_, err := svc.Summarize(context.Background(), Request{VideoURL: "https://example.com/nothing"})
	assert.ErrorIs(t, err, transcription.ErrInvalidVideoURL)
	assert.Zero(t, videos.opens)

	videos.err = errors.New("yt-dlp: private video")
	_, err = svc.Summarize(context.Background(), Request{VideoURL: videoURL})
	assert.ErrorIs(t, err, ErrVideoLookup)
}
