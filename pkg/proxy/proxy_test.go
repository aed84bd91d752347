package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvsync/tvsync/pkg/cache"
	"github.com/tvsync/tvsync/pkg/model"
)

type staticCache struct {
	entry *cache.Entry
	err   error
}

func (s staticCache) Get(ctx context.Context) (*cache.Entry, error) {
	return s.entry, s.err
}

func newProxy(upstreamURL string) *Proxy {
	return New(staticCache{entry: &cache.Entry{
		ServerURL: upstreamURL,
		APIKey:    "secret",
		FetchedAt: time.Now(),
	}})
}

func TestStream_RelaysPartialContent(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/emby/Videos/42/stream", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		assert.Equal(t, "bytes=0-99", r.Header.Get("Range"))

		w.Header().Set("Content-Type", "video/x-matroska")
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Range", "bytes 0-99/1000")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("chunk"))
	}))
	defer upstream.Close()

	req := httptest.NewRequest(http.MethodGet, "/vod/play/tok/movie.mp4?itemId=42", nil)
	req.Header.Set("Range", "bytes=0-99")
	w := httptest.NewRecorder()

	err := newProxy(upstream.URL).Stream(w, req, "42", "movie.mp4")
	require.NoError(t, err)

	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "video/x-matroska", w.Header().Get("Content-Type"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	assert.Equal(t, "bytes 0-99/1000", w.Header().Get("Content-Range"))
	assert.Equal(t, `inline; filename="movie.mp4"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "chunk", w.Body.String())
}

func TestStream_DefaultContentType(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Suppress content type sniffing so the response carries none.
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte("data"))
	}))
	defer upstream.Close()

	req := httptest.NewRequest(http.MethodGet, "/vod/play/tok/movie.mp4?itemId=42", nil)
	w := httptest.NewRecorder()

	err := newProxy(upstream.URL).Stream(w, req, "42", "movie.mp4")
	require.NoError(t, err)

	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
}

func TestStream_NoRangeForwardedWhenAbsent(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["Range"]
		assert.False(t, present)

		_, _ = w.Write([]byte("data"))
	}))
	defer upstream.Close()

	req := httptest.NewRequest(http.MethodGet, "/vod/play/tok/movie.mp4?itemId=42", nil)
	w := httptest.NewRecorder()

	require.NoError(t, newProxy(upstream.URL).Stream(w, req, "42", "movie.mp4"))
}

func TestStream_UpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer upstream.Close()

	req := httptest.NewRequest(http.MethodGet, "/vod/play/tok/movie.mp4?itemId=42", nil)
	w := httptest.NewRecorder()

	err := newProxy(upstream.URL).Stream(w, req, "42", "movie.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected response (404)")
}

func TestStream_ConfigUnavailable(t *testing.T) {
	p := New(staticCache{err: model.ErrConfigUnavailable})

	req := httptest.NewRequest(http.MethodGet, "/vod/play/tok/movie.mp4?itemId=42", nil)
	w := httptest.NewRecorder()

	err := p.Stream(w, req, "42", "movie.mp4")
	assert.Equal(t, model.ErrConfigUnavailable, err)
}
