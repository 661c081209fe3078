// Package storage keeps uploaded user and game images on the local disk.
//
// The database stores only the filename. The bytes live in one flat
// directory, written via a temp file + rename so a reader never sees a
// half-written image.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/xid"

	"github.com/sakif/game-marketplace/internal/apperror"
)

// extensions maps accepted request content types to the stored extension.
var extensions = map[string]string{
	"image/jpeg": "jpeg",
	"image/jpg":  "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
}

// ImageStore reads and writes image files under dir.
type ImageStore struct {
	dir    string
	logger *slog.Logger
}

// NewImageStore creates dir if needed.
func NewImageStore(dir string, logger *slog.Logger) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating image dir %s: %w", dir, err)
	}
	return &ImageStore{dir: dir, logger: logger}, nil
}

// ExtensionFor returns the file extension for a declared Content-Type
// header, or false when the type is not an accepted image type.
// Parameters such as "; charset=..." are ignored.
func ExtensionFor(contentType string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	ext, ok := extensions[strings.ToLower(mediaType)]
	return ext, ok
}

// ContentTypeFor derives the response Content-Type from a stored
// filename. "jpg" is reported as image/jpeg.
func ContentTypeFor(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "jpg" {
		ext = "jpeg"
	}
	return "image/" + ext
}

// NewFilename returns a fresh name: 32 random hex characters plus ext.
func NewFilename(ext string) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + "." + ext
}

// path resolves name inside dir, refusing anything that isn't a bare
// filename.
func (s *ImageStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("storage: invalid image filename %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

// Load returns the bytes of name. A missing file is apperror.ErrNotFound.
func (s *ImageStore) Load(name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperror.NotFoundMessage("Image file not found")
		}
		return nil, fmt.Errorf("storage: reading %s: %w", name, err)
	}
	return data, nil
}

// Save writes data as name, replacing any existing file of that name.
func (s *ImageStore) Save(name string, data []byte) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}

	tmp := filepath.Join(s.dir, ".upload-"+xid.New().String())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("storage: writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("storage: moving %s into place: %w", name, err)
	}

	s.logger.Debug("image saved", slog.String("file", name), slog.Int("bytes", len(data)))
	return nil
}

// Remove deletes name. A file that is already gone is not an error.
func (s *ImageStore) Remove(name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: removing %s: %w", name, err)
	}
	return nil
}
