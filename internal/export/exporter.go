package export

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/logging"
	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

// ErrExportNotFound is returned for keys outside the caller's exports
var ErrExportNotFound = errors.New("export not found")

// ObjectStore is the subset of storage used for exports
type ObjectStore interface {
	UploadBytes(ctx context.Context, objectName string, data []byte) error
	GetURL(ctx context.Context, objectName string) (string, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, objectName string) error
}

// Result describes a stored export
type Result struct {
	Key      string `json:"key"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Exporter renders documents and uploads them
type Exporter struct {
	store  ObjectStore
	logger *logging.Logger
}

// NewExporter creates an exporter
func NewExporter(store ObjectStore, logger *logging.Logger) *Exporter {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Exporter{store: store, logger: logger}
}

// Export renders doc, stores it under the user's prefix and returns a download URL
func (e *Exporter) Export(ctx context.Context, userID string, doc models.ExportDocument, format models.ExportFormat) (*Result, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}

	data, err := Render(doc, format)
	if err != nil {
		return nil, err
	}

	filename := Filename(doc.Title, format)
	key := path.Join(userPrefix(userID), uuid.New().String(), filename)

	start := time.Now()
	err = e.store.UploadBytes(ctx, key, data)
	e.logger.LogStorageOperation("upload", "exports", key, int64(len(data)), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	url, err := e.store.GetURL(ctx, key)
	if err != nil {
		// Nobody can reach the object without a URL
		if derr := e.store.Delete(ctx, key); derr != nil {
			e.logger.WithError(derr).WithField("key", key).Warn("Failed to remove unreachable export")
		}
		return nil, err
	}

	return &Result{Key: key, Filename: filename, URL: url}, nil
}

// List returns the user's stored exports with fresh download URLs
func (e *Exporter) List(ctx context.Context, userID string) ([]Result, error) {
	keys, err := e.store.List(ctx, userPrefix(userID)+"/")
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(keys))
	for _, key := range keys {
		url, err := e.store.GetURL(ctx, key)
		if err != nil {
			return nil, err
		}
		out = append(out, Result{Key: key, Filename: path.Base(key), URL: url})
	}
	return out, nil
}

// Delete removes one of the user's exports
func (e *Exporter) Delete(ctx context.Context, userID, key string) error {
	if !strings.HasPrefix(key, userPrefix(userID)+"/") || path.Clean(key) != key {
		return ErrExportNotFound
	}

	start := time.Now()
	err := e.store.Delete(ctx, key)
	e.logger.LogStorageOperation("delete", "exports", key, 0, time.Since(start), err)
	return err
}

func userPrefix(userID string) string {
	return path.Join("exports", userID)
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Filename builds a file name from a title
func Filename(title string, format models.ExportFormat) string {
	base := strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if base == "" {
		base = "summary"
	}
	if len(base) > 64 {
		base = strings.TrimRight(base[:64], "-")
	}
	return base + "." + string(format)
}
