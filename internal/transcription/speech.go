package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/logging"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/metrics"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/tracing"
	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

// Transcription paths
const (
	PathCaptions = "captions"
	PathSpeech   = "speech"
)

// ErrNoSpeechFallback is returned when captions are missing and no speech
// recognizer is configured
var ErrNoSpeechFallback = errors.New("no captions available and speech fallback is disabled")

// Result is a single transcription of a video
type Result struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// AudioSource downloads the audio-only stream of a video into dir
type AudioSource interface {
	DownloadAudio(ctx context.Context, videoURL, dir string) (string, error)
}

// AudioConverter converts an audio file to a mono waveform at sampleRate
type AudioConverter interface {
	ConvertToWAV(ctx context.Context, input, output string, sampleRate int) error
}

// Recognizer produces text from a waveform file
type Recognizer interface {
	Recognize(ctx context.Context, wavPath string) (string, error)
}

// SpeechFallback transcribes a video from its audio
type SpeechFallback struct {
	audio      AudioSource
	converter  AudioConverter
	recognizer Recognizer
	tempDir    string
	sampleRate int
	logger     *logging.Logger
}

// NewSpeechFallback creates a speech fallback writing scratch files under tempDir
func NewSpeechFallback(audio AudioSource, converter AudioConverter, recognizer Recognizer, tempDir string, sampleRate int, logger *logging.Logger) *SpeechFallback {
	if logger == nil {
		logger = logging.Nop()
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &SpeechFallback{
		audio:      audio,
		converter:  converter,
		recognizer: recognizer,
		tempDir:    tempDir,
		sampleRate: sampleRate,
		logger:     logger,
	}
}

// Transcribe downloads the audio of videoURL, converts it and runs the
// recognizer. Scratch files are removed before returning.
func (s *SpeechFallback) Transcribe(ctx context.Context, videoURL string) (text string, err error) {
	span, ctx := tracing.StartSpan(ctx, "speech.transcribe")
	defer func() { tracing.FinishSpan(span, err) }()

	if err := os.MkdirAll(s.tempDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	workDir, err := os.MkdirTemp(s.tempDir, "stt-"+uuid.NewString()[:8]+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	audioPath, err := s.audio.DownloadAudio(ctx, videoURL, workDir)
	if err != nil {
		return "", fmt.Errorf("failed to download audio: %w", err)
	}

	wavPath := filepath.Join(workDir, "audio.wav")
	if err := s.converter.ConvertToWAV(ctx, audioPath, wavPath, s.sampleRate); err != nil {
		return "", fmt.Errorf("failed to convert audio: %w", err)
	}

	text, err = s.recognizer.Recognize(ctx, wavPath)
	if err != nil {
		return "", fmt.Errorf("failed to recognize speech: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Transcribe returns the caption text of videoURL in lang when a manual or
// auto-generated track exists for exactly that code, and otherwise runs the
// speech fallback. Neither path is normalized.
func (t *Transcriber) Transcribe(ctx context.Context, videoURL, lang string) (*Result, error) {
	videoID, err := ExtractVideoID(videoURL)
	if err != nil {
		return nil, err
	}
	if lang == "" {
		lang = "en"
	}
	log := t.logger.WithVideoID(videoID).WithLanguage(lang)

	start := time.Now()
	entries, err := t.directFetch(ctx, videoID, lang)
	if err == nil {
		metrics.RecordTranscription(PathCaptions, true, time.Since(start).Seconds())
		return &Result{Text: joinCapitalized(entries), Source: PathCaptions}, nil
	}
	log.WithError(err).Info("captions unavailable, falling back to speech recognition")

	if t.speech == nil {
		metrics.RecordTranscription(PathSpeech, false, 0)
		return nil, ErrNoSpeechFallback
	}

	start = time.Now()
	text, err := t.speech.Transcribe(ctx, videoURL)
	metrics.RecordTranscription(PathSpeech, err == nil, time.Since(start).Seconds())
	if err != nil {
		log.WithError(err).Error("speech transcription failed")
		return nil, err
	}
	return &Result{Text: text, Source: PathSpeech}, nil
}

// directFetch is the availability check: the manual track for lang, else the
// generated one, fetched without translation or locale expansion.
func (t *Transcriber) directFetch(ctx context.Context, videoID, lang string) ([]models.TranscriptEntry, error) {
	listing, err := t.catalog.List(ctx, videoID)
	if err != nil {
		return nil, err
	}
	track, ok := listing.Manual(lang)
	if !ok {
		track, ok = listing.Generated(lang)
	}
	if !ok {
		return nil, fmt.Errorf("no caption track for %s", lang)
	}
	entries, err := track.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("caption track is empty")
	}
	return entries, nil
}

func joinCapitalized(entries []models.TranscriptEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if text := strings.TrimSpace(e.Text); text != "" {
			parts = append(parts, capitalize(text))
		}
	}
	return strings.Join(parts, ". ")
}
