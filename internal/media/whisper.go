package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Whisper runs the whisper.cpp command line recognizer
type Whisper struct {
	exec      Executor
	binary    string
	modelPath string
	threads   int
	language  string
}

// NewWhisper creates a recognizer using the given binary and model.
// An empty language lets whisper detect it.
func NewWhisper(exec Executor, binary, modelPath string, threads int, language string) *Whisper {
	if threads <= 0 {
		threads = 4
	}
	if language == "" {
		language = "auto"
	}
	return &Whisper{
		exec:      exec,
		binary:    binary,
		modelPath: modelPath,
		threads:   threads,
		language:  language,
	}
}

// Recognize transcribes wavPath and returns plain text
func (w *Whisper) Recognize(ctx context.Context, wavPath string) (string, error) {
	// whisper appends .txt to the prefix
	outputPrefix := strings.TrimSuffix(wavPath, filepath.Ext(wavPath))

	args := []string{
		"-m", w.modelPath,
		"-f", wavPath,
		"-otxt",
		"-l", w.language,
		"-t", strconv.Itoa(w.threads),
		"-np", // no progress output
		"--output-file", outputPrefix,
	}
	if _, err := w.exec.Execute(ctx, w.binary, args...); err != nil {
		return "", fmt.Errorf("whisper transcribe: %w", err)
	}

	txtPath := outputPrefix + ".txt"
	data, err := os.ReadFile(txtPath)
	if err != nil {
		return "", fmt.Errorf("failed to read whisper output: %w", err)
	}
	defer os.Remove(txtPath)

	return strings.Join(strings.Fields(string(data)), " "), nil
}
