package media

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the-flip/core/internal/config"
	"github.com/the-flip/core/internal/models"
)

func uploadHeader(t *testing.T, name, content string) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	_, fh, err := req.FormFile("file")
	require.NoError(t, err)
	return fh
}

func TestStoreSaveAndAbs(t *testing.T) {
	root := t.TempDir()
	st := NewStore(root)

	rel, err := st.Save(uploadHeader(t, "flipper.jpg", "jpeg bytes"), ".jpg")
	require.NoError(t, err)

	now := time.Now()
	prefix := fmt.Sprintf("%04d/%02d/", now.Year(), now.Month())
	assert.Regexp(t, regexp.MustCompile("^"+prefix+`[0-9a-f-]{36}\.jpg$`), rel)

	abs, err := st.Abs(rel)
	require.NoError(t, err)
	data, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))
}

func TestStoreAbsRejectsTraversal(t *testing.T) {
	st := NewStore(t.TempDir())

	for _, rel := range []string{
		"../outside.jpg",
		"2025/01/../../../etc/passwd",
		"/etc/passwd",
	} {
		_, err := st.Abs(rel)
		assert.Error(t, err, "path %q should be rejected", rel)
	}
}

func TestStoreRemove(t *testing.T) {
	root := t.TempDir()
	st := NewStore(root)

	rel, err := st.Save(uploadHeader(t, "pop.png", "png"), ".png")
	require.NoError(t, err)
	require.NoError(t, st.Remove(rel))

	abs, err := st.Abs(rel)
	require.NoError(t, err)
	_, err = os.Stat(abs)
	assert.True(t, os.IsNotExist(err))

	// Missing files and empty paths are tolerated.
	assert.NoError(t, st.Remove(rel))
	assert.NoError(t, st.Remove(""))
	assert.Error(t, st.Remove("../escape.png"))
}

func TestClassifyExtension(t *testing.T) {
	opts := config.DefaultSiteSettings().Media

	tests := []struct {
		ext      string
		kind     models.MediaKind
		maxBytes int64
		ok       bool
	}{
		{".jpg", models.MediaPhoto, opts.MaxPhotoBytes, true},
		{".webp", models.MediaPhoto, opts.MaxPhotoBytes, true},
		{".mp4", models.MediaVideo, opts.MaxVideoBytes, true},
		{".mkv", models.MediaVideo, opts.MaxVideoBytes, true},
		{".exe", "", 0, false},
		{"", "", 0, false},
	}
	for _, tt := range tests {
		t.Run("ext"+tt.ext, func(t *testing.T) {
			kind, maxBytes, ok := classifyExtension(opts, tt.ext)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.maxBytes, maxBytes)
		})
	}
}
