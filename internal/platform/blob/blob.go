// Package blob provides durable object storage for finished research
// artifacts. Keys are derived deterministically from the task ID so a
// reader holding only the task record can always locate the artifact.
package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/spf13/afero"
)

// ContentTypeMarkdown is the content type of research artifacts.
const ContentTypeMarkdown = "text/markdown"

// artifactPrefix is the fixed key prefix for research artifacts.
const artifactPrefix = "research"

// ErrObjectNotFound is returned when a requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ArtifactKey derives the blob key for a task's research artifact from the
// task identifier alone: a fixed prefix, the identifier, and a markdown
// extension. Duplicate worker attempts for the same task therefore overwrite
// the same object.
func ArtifactKey(taskID string) string {
	return path.Join(artifactPrefix, taskID+".md")
}

// Store defines the interface for artifact persistence.
type Store interface {
	// Put writes an object under the given key, overwriting any existing
	// object with that key.
	Put(ctx context.Context, key, contentType string, body []byte) error

	// Get retrieves the object stored under the given key.
	// Returns ErrObjectNotFound if no such object exists.
	Get(ctx context.Context, key string) ([]byte, error)
}

// FileStore implements Store on top of an afero filesystem. Production
// wiring passes a base-path OS filesystem; tests pass an in-memory one.
// The content type is carried by the key's extension rather than stored
// out of band.
type FileStore struct {
	fs     afero.Fs
	logger *slog.Logger
}

// NewFileStore creates a filesystem-backed artifact store.
// If logger is nil, a default logger will be used.
func NewFileStore(fs afero.Fs, logger *slog.Logger) *FileStore {
	if fs == nil {
		panic("fs cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &FileStore{
		fs:     fs,
		logger: logger.With(slog.String("component", "blob_store")),
	}
}

// Ensure FileStore implements Store
var _ Store = (*FileStore)(nil)

// Put implements Store.Put.
func (s *FileStore) Put(ctx context.Context, key, contentType string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		s.logger.Error("failed to create object directory",
			slog.String("error", err.Error()),
			slog.String("key", key))
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	if err := afero.WriteFile(s.fs, key, body, 0o644); err != nil {
		s.logger.Error("failed to write object",
			slog.String("error", err.Error()),
			slog.String("key", key))
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}

	s.logger.Info("object written",
		slog.String("key", key),
		slog.String("content_type", contentType),
		slog.Int("bytes", len(body)))
	return nil
}

// Get implements Store.Get.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := afero.ReadFile(s.fs, key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return body, nil
}
