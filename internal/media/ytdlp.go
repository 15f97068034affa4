package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

// YtDlp reads video metadata and audio through the yt-dlp binary
type YtDlp struct {
	exec Executor
	path string
}

// NewYtDlp creates a yt-dlp wrapper for the binary at path
func NewYtDlp(exec Executor, path string) *YtDlp {
	return &YtDlp{exec: exec, path: path}
}

type ytDlpInfo struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"`
	WebpageURL string  `json:"webpage_url"`
}

// Open fetches the metadata of videoURL without downloading it
func (y *YtDlp) Open(ctx context.Context, videoURL string) (*models.VideoInfo, error) {
	out, err := y.exec.Execute(ctx, y.path, "-j", "--no-playlist", "--skip-download", "--no-warnings", "--", videoURL)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp metadata failed: %w", err)
	}

	line := lastLineWithPrefix(out, "{")
	if line == "" {
		return nil, fmt.Errorf("no JSON in yt-dlp output: %s", strings.TrimSpace(out))
	}

	var info ytDlpInfo
	if err := json.Unmarshal([]byte(line), &info); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}

	url := info.WebpageURL
	if url == "" {
		url = videoURL
	}
	return &models.VideoInfo{
		ID:            info.ID,
		URL:           url,
		Title:         info.Title,
		LengthSeconds: info.Duration,
	}, nil
}

// DownloadAudio downloads the best audio-only stream of videoURL into dir
// and returns the file path.
func (y *YtDlp) DownloadAudio(ctx context.Context, videoURL, dir string) (string, error) {
	out, err := y.exec.Execute(ctx, y.path,
		"-f", "bestaudio",
		"--no-playlist",
		"--no-warnings",
		"-o", filepath.Join(dir, "audio.%(ext)s"),
		"--print", "after_move:filepath",
		"--", videoURL,
	)
	if err != nil {
		return "", fmt.Errorf("yt-dlp audio download failed: %w", err)
	}

	path := lastLineWithPrefix(out, dir)
	if path == "" {
		return "", errors.New("yt-dlp did not report the downloaded file")
	}
	return path, nil
}

func lastLineWithPrefix(out, prefix string) string {
	var found string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && strings.HasPrefix(line, prefix) {
			found = line
		}
	}
	return found
}
