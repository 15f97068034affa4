package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// FFmpeg wraps FFmpeg operations
type FFmpeg struct {
	exec        Executor
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpeg creates a new FFmpeg instance
func NewFFmpeg(exec Executor, ffmpegPath, ffprobePath string) *FFmpeg {
	return &FFmpeg{
		exec:        exec,
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// ProbeResult holds the parts of ffprobe output we use
type ProbeResult struct {
	Format  FormatInfo   `json:"format"`
	Streams []StreamInfo `json:"streams"`
}

// FormatInfo holds format information
type FormatInfo struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// StreamInfo holds stream information
type StreamInfo struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Duration returns the container duration in seconds
func (p *ProbeResult) Duration() float64 {
	d, _ := strconv.ParseFloat(p.Format.Duration, 64)
	return d
}

// AudioStream returns the first audio stream
func (p *ProbeResult) AudioStream() (StreamInfo, bool) {
	for _, s := range p.Streams {
		if s.CodecType == "audio" {
			return s, true
		}
	}
	return StreamInfo{}, false
}

// Probe extracts metadata from a media file
func (f *FFmpeg) Probe(ctx context.Context, inputPath string) (*ProbeResult, error) {
	out, err := f.exec.Execute(ctx, f.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var result ProbeResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return &result, nil
}

// ConvertToWAV decodes input into a mono 16-bit PCM WAV at sampleRate and
// checks that the result holds some audio.
func (f *FFmpeg) ConvertToWAV(ctx context.Context, input, output string, sampleRate int) error {
	args := []string{
		"-i", input,
		"-vn",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y", // overwrite output
		output,
	}
	if _, err := f.exec.Execute(ctx, f.ffmpegPath, args...); err != nil {
		return fmt.Errorf("ffmpeg failed: %w", err)
	}

	probe, err := f.Probe(ctx, output)
	if err != nil {
		return err
	}
	if _, ok := probe.AudioStream(); !ok || probe.Duration() <= 0 {
		return errors.New("converted audio is empty")
	}
	return nil
}
