// Package photos keeps device photos on the local filesystem. Files are
// named after the device they belong to and served by the media server.
package photos

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/ports"
	"github.com/architeacher/checkpoint/pkg/logger"
)

// RoutePrefix is the media server path photos are served under.
const RoutePrefix = "/photo/"

type FilesystemStore struct {
	dir        string
	baseURL    string
	extensions []string
	logger     logger.Logger
}

var _ ports.PhotoStore = (*FilesystemStore)(nil)

// NewFilesystemStore creates dir if needed. baseURL is the public address of the media server.
func NewFilesystemStore(dir, baseURL string, extensions []string, log logger.Logger) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating photo directory %s: %w", dir, err)
	}

	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			normalized = append(normalized, ext)
		}
	}

	return &FilesystemStore{
		dir:        dir,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		extensions: normalized,
		logger:     log.Component("photo_store"),
	}, nil
}

// Save writes the photo as <id>.<ext>, replacing any earlier photo of the
// same device, and returns its public URL.
func (s *FilesystemStore) Save(ctx context.Context, photo model.Photo, id model.DeviceID) (string, error) {
	ext := photo.Extension()
	if ext == "" || !slices.Contains(s.extensions, ext) {
		return "", fmt.Errorf("%w: %q", model.ErrUnsupportedPhoto, photo.Filename)
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrPhotoStore, err)
	}

	filename := id.String() + "." + ext

	if err := s.write(filename, photo.Content); err != nil {
		s.logger.Error().Err(err).Str("device_id", id.String()).Msg("failed to store photo")

		return "", fmt.Errorf("%w: %w", model.ErrPhotoStore, err)
	}

	s.logger.Debug().
		Str("device_id", id.String()).
		Str("file", filename).
		Int("bytes", len(photo.Content)).
		Msg("photo stored")

	return s.baseURL + RoutePrefix + filename, nil
}

func (s *FilesystemStore) Dir() string {
	return s.dir
}

// write goes through a temporary file so readers never see a partial photo.
func (s *FilesystemStore) write(filename string, content []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}

	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("writing %s: %w", filename, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", filename, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, filename)); err != nil {
		return fmt.Errorf("moving %s into place: %w", filename, err)
	}

	return nil
}
