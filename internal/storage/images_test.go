package storage

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/game-marketplace/internal/apperror"
)

func newTestStore(t *testing.T) *ImageStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := NewImageStore(filepath.Join(t.TempDir(), "images"), logger)
	require.NoError(t, err)
	return s
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
		ok          bool
	}{
		{"image/png", "png", true},
		{"image/jpeg", "jpeg", true},
		{"image/jpg", "jpeg", true},
		{"image/gif", "gif", true},
		{"IMAGE/PNG", "png", true},
		{"image/png; charset=binary", "png", true},
		{"image/bmp", "", false},
		{"text/plain", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			got, ok := ExtensionFor(tt.contentType)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentTypeFor("abc.jpg"))
	assert.Equal(t, "image/jpeg", ContentTypeFor("abc.jpeg"))
	assert.Equal(t, "image/png", ContentTypeFor("abc.png"))
	assert.Equal(t, "image/gif", ContentTypeFor("abc.GIF"))
}

func TestNewFilename(t *testing.T) {
	name := NewFilename("png")
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}\.png$`), name)
	assert.NotEqual(t, name, NewFilename("png"))
}

func TestSaveLoadRemove(t *testing.T) {
	s := newTestStore(t)
	data := []byte{0x89, 'P', 'N', 'G'}

	require.NoError(t, s.Save("a.png", data))

	got, err := s.Load("a.png")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.NoError(t, s.Save("a.png", []byte("replaced")))
	got, err = s.Load("a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("replaced"), got)

	require.NoError(t, s.Remove("a.png"))
	_, err = s.Load("a.png")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	// removing twice is fine
	assert.NoError(t, s.Remove("a.png"))
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("b.gif", []byte("GIF89a")))

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.gif", entries[0].Name())
}

func TestRejectsPathTraversal(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"../escape.png", "sub/x.png", "", ".hidden"} {
		assert.Error(t, s.Save(name, []byte("x")), name)
		_, err := s.Load(name)
		assert.Error(t, err, name)
	}
}
