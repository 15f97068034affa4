package captions

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/config"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/tracing"
	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

const (
	playerResponseMarker = "ytInitialPlayerResponse = "
	maxWatchPageBytes    = 4 << 20
	maxTimedTextBytes    = 2 << 20
)

var tagRe = regexp.MustCompile(`<[^>]*>`)

// YouTube is a Catalog backed by the public watch page and timedtext endpoint
type YouTube struct {
	client         *http.Client
	baseURL        string
	userAgent      string
	acceptLanguage string
}

// NewYouTube creates a YouTube catalog
func NewYouTube(cfg config.CaptionsConfig) *YouTube {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YouTube{
		client:         &http.Client{Timeout: timeout},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:      cfg.UserAgent,
		acceptLanguage: cfg.AcceptLanguage,
	}
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions *struct {
		Renderer struct {
			CaptionTracks        []captionTrack        `json:"captionTracks"`
			TranslationLanguages []translationLanguage `json:"translationLanguages"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type captionTrack struct {
	BaseURL        string `json:"baseUrl"`
	LanguageCode   string `json:"languageCode"`
	Kind           string `json:"kind"` // "asr" = auto-generated
	IsTranslatable bool   `json:"isTranslatable"`
}

type translationLanguage struct {
	LanguageCode string `json:"languageCode"`
}

type timedText struct {
	Lines []timedLine `xml:"text"`
}

type timedLine struct {
	Start    float64 `xml:"start,attr"`
	Duration float64 `xml:"dur,attr"`
	Text     string  `xml:",chardata"`
}

// List scrapes the watch page of videoID and returns its caption tracks
func (y *YouTube) List(ctx context.Context, videoID string) (listing *Listing, err error) {
	span, ctx := tracing.StartSpan(ctx, "captions.list")
	tracing.SetTag(span, "video_id", videoID)
	defer func() { tracing.FinishSpan(span, err) }()

	body, err := y.get(ctx, y.baseURL+"/watch?v="+url.QueryEscape(videoID), maxWatchPageBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch watch page: %w", err)
	}

	raw, err := findPlayerResponse(body)
	if err != nil {
		return nil, err
	}

	var resp playerResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode player response: %w", err)
	}

	if resp.Captions == nil {
		status := resp.PlayabilityStatus.Status
		if status != "" && status != "OK" {
			return nil, fmt.Errorf("%w: %s", ErrVideoUnavailable, resp.PlayabilityStatus.Reason)
		}
		return nil, ErrTranscriptsDisabled
	}

	renderer := resp.Captions.Renderer
	if len(renderer.CaptionTracks) == 0 {
		return nil, ErrNoTranscriptFound
	}

	targets := make([]string, 0, len(renderer.TranslationLanguages))
	for _, tl := range renderer.TranslationLanguages {
		targets = append(targets, tl.LanguageCode)
	}

	tracks := make([]Track, 0, len(renderer.CaptionTracks))
	for _, ct := range renderer.CaptionTracks {
		t := &youtubeTrack{
			yt:      y,
			baseURL: strings.Replace(ct.BaseURL, "&fmt=srv3", "", 1),
			lang:    ct.LanguageCode,
			kind:    models.TrackManual,
		}
		if ct.Kind == "asr" {
			t.kind = models.TrackAutoGenerated
		}
		if ct.IsTranslatable {
			t.targets = targets
		}
		tracks = append(tracks, t)
	}

	return NewListing(videoID, tracks, targets), nil
}

func (y *YouTube) get(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if y.userAgent != "" {
		req.Header.Set("User-Agent", y.userAgent)
	}
	if y.acceptLanguage != "" {
		req.Header.Set("Accept-Language", y.acceptLanguage)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrTooManyRequests
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, limit)
	}
	return body, nil
}

// findPlayerResponse locates the inline script that assigns the player
// response and returns its JSON object.
func findPlayerResponse(page []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse watch page: %w", err)
	}

	var raw []byte
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, playerResponseMarker)
		if idx < 0 {
			return true
		}
		raw = extractJSON([]byte(text[idx+len(playerResponseMarker):]))
		return raw == nil
	})
	if raw == nil {
		return nil, errors.New("player response not found in watch page")
	}
	return raw, nil
}

// extractJSON returns the balanced JSON object at the start of b
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

type youtubeTrack struct {
	yt      *YouTube
	baseURL string
	lang    string
	kind    models.TrackKind
	targets []string
	tlang   string
}

func (t *youtubeTrack) LanguageCode() string { return t.lang }

func (t *youtubeTrack) Kind() models.TrackKind { return t.kind }

func (t *youtubeTrack) TranslationLanguages() []string { return t.targets }

// Translate returns a track that fetches this one machine-translated into lang
func (t *youtubeTrack) Translate(lang string) (Track, error) {
	if len(t.targets) == 0 {
		return nil, ErrNotTranslatable
	}
	for _, target := range t.targets {
		if target == lang {
			return &youtubeTrack{
				yt:      t.yt,
				baseURL: t.baseURL,
				lang:    lang,
				kind:    t.kind,
				tlang:   lang,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotTranslatable, lang)
}

// Fetch downloads the timed text entries of the track
func (t *youtubeTrack) Fetch(ctx context.Context) (entries []models.TranscriptEntry, err error) {
	span, ctx := tracing.StartSpan(ctx, "captions.fetch")
	tracing.SetTag(span, "language", t.lang)
	tracing.SetTag(span, "translated", t.tlang != "")
	defer func() { tracing.FinishSpan(span, err) }()

	rawURL := t.baseURL
	if t.tlang != "" {
		rawURL += "&tlang=" + url.QueryEscape(t.tlang)
	}

	body, err := t.yt.get(ctx, rawURL, maxTimedTextBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch timedtext: %w", err)
	}

	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("failed to parse timedtext: %w", err)
	}

	entries = make([]models.TranscriptEntry, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		text := strings.TrimSpace(tagRe.ReplaceAllString(html.UnescapeString(line.Text), ""))
		if text == "" {
			continue
		}
		entries = append(entries, models.TranscriptEntry{
			Text:     text,
			Start:    line.Start,
			Duration: line.Duration,
		})
	}
	return entries, nil
}
