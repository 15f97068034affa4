package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create temporary config file
	content := `
server:
  port: 9090
  host: "127.0.0.1"

database:
  driver: "sqlite"
  sqlitePath: "/tmp/test.sqlite3"

transcription:
  maxDurationSeconds: 7600
  defaultLanguages: ["en", "hi"]

summarizer:
  timeout: "90s"
`

	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	// Load config
	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify loaded values
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/test.sqlite3", cfg.Database.SQLitePath)
	assert.Equal(t, 7600.0, cfg.Transcription.MaxDurationSeconds)
	assert.Equal(t, []string{"en", "hi"}, cfg.Transcription.DefaultLanguages)
	assert.Equal(t, 90*time.Second, cfg.Summarizer.Timeout)

	// Defaults fill whatever the file leaves out
	assert.Equal(t, 16000, cfg.Transcription.SampleRate)
	assert.Equal(t, 5, cfg.Summarizer.DefaultSentences)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error when loading nonexistent file")
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 7200.0, cfg.Transcription.MaxDurationSeconds)
	assert.Equal(t, []string{"en", "hi", "mr"}, cfg.Transcription.DefaultLanguages)
	assert.Equal(t, 3, cfg.RateLimit.AnonymousDailySummaries)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}
