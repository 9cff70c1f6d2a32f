package storage

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const accessDeniedXML = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Header http.Header
}

// mockS3 records requests and answers them with handle.
func mockS3(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body), Header: r.Header.Clone()})
		mu.Unlock()
		handle(w, r)
	}))
	t.Cleanup(server.Close)
	return server, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func newTestS3Store(t *testing.T, endpoint string, admin bool) *S3Store {
	t.Helper()
	cfg := S3Config{
		Region:        "us-east-1",
		Endpoint:      endpoint,
		PublicBaseURL: "https://x.example",
	}
	if admin {
		cfg.AccessKeyID = "test-access-key"
		cfg.SecretAccessKey = "test-secret-key"
	}
	store, err := NewS3Store(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return store
}

func TestNewS3Store(t *testing.T) {
	store := newTestS3Store(t, "http://localhost:4566", true)

	assert.Equal(t, Bucket, store.bucket)
	assert.Equal(t, "us-east-1", store.region)
	assert.True(t, store.admin)

	readOnly := newTestS3Store(t, "http://localhost:4566", false)
	assert.False(t, readOnly.admin)
}

func TestS3Store_Put(t *testing.T) {
	server, requests := mockS3(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	store := newTestS3Store(t, server.URL, true)

	ref, err := store.Put(context.Background(), "abc-123", []byte("video bytes"), "clip.webm")
	require.NoError(t, err)
	assert.Equal(t, "https://x.example/storage/v1/object/public/videos/abc-123/clip.webm", ref)

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Equal(t, "/videos/abc-123/clip.webm", reqs[0].Path)
	assert.Equal(t, ContentType, reqs[0].Header.Get("Content-Type"))
	assert.Contains(t, reqs[0].Body, "video bytes")
}

func TestS3Store_Put_RemoteFailure(t *testing.T) {
	server, _ := mockS3(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(accessDeniedXML))
	})
	store := newTestS3Store(t, server.URL, true)

	_, err := store.Put(context.Background(), "abc-123", []byte("video bytes"), "clip.webm")

	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "put", se.Op)
	assert.Equal(t, "abc-123/clip.webm", se.Key)
}

func TestS3Store_Put_WithoutCredentials(t *testing.T) {
	server, requests := mockS3(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	store := newTestS3Store(t, server.URL, false)

	_, err := store.Put(context.Background(), "abc-123", []byte("video bytes"), "clip.webm")

	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Empty(t, requests(), "no request should reach the store")
}

func TestS3Store_Remove(t *testing.T) {
	t.Run("deletes object", func(t *testing.T) {
		server, requests := mockS3(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		store := newTestS3Store(t, server.URL, true)

		assert.True(t, store.Remove(context.Background(), "abc-123/clip.webm"))

		reqs := requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, http.MethodDelete, reqs[0].Method)
		assert.Equal(t, "/videos/abc-123/clip.webm", reqs[0].Path)
	})

	t.Run("reports false on remote failure", func(t *testing.T) {
		server, _ := mockS3(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(accessDeniedXML))
		})
		store := newTestS3Store(t, server.URL, true)

		assert.False(t, store.Remove(context.Background(), "abc-123/clip.webm"))
	})

	t.Run("reports false without credentials", func(t *testing.T) {
		server, requests := mockS3(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		store := newTestS3Store(t, server.URL, false)

		assert.False(t, store.Remove(context.Background(), "abc-123/clip.webm"))
		assert.Empty(t, requests())
	})
}

func TestS3Store_EnsureBucket(t *testing.T) {
	t.Run("existing bucket is left alone", func(t *testing.T) {
		server, requests := mockS3(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		store := newTestS3Store(t, server.URL, true)

		store.EnsureBucket(context.Background())

		reqs := requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, http.MethodHead, reqs[0].Method)
		assert.Equal(t, "/videos", strings.TrimSuffix(reqs[0].Path, "/"))
	})

	t.Run("missing bucket is created", func(t *testing.T) {
		server, requests := mockS3(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		store := newTestS3Store(t, server.URL, true)

		store.EnsureBucket(context.Background())

		var created bool
		for _, r := range requests() {
			if r.Method == http.MethodPut && strings.TrimSuffix(r.Path, "/") == "/videos" {
				created = true
			}
		}
		assert.True(t, created, "expected CreateBucket request")
	})

	t.Run("creation failure does not panic", func(t *testing.T) {
		server, _ := mockS3(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(accessDeniedXML))
		})
		store := newTestS3Store(t, server.URL, true)

		assert.NotPanics(t, func() { store.EnsureBucket(context.Background()) })
	})

	t.Run("skipped without credentials", func(t *testing.T) {
		server, requests := mockS3(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		store := newTestS3Store(t, server.URL, false)

		store.EnsureBucket(context.Background())
		assert.Empty(t, requests())
	})
}

func TestS3Store_PublicURL(t *testing.T) {
	store := newTestS3Store(t, "http://localhost:4566", false)
	assert.Equal(t,
		"https://x.example/storage/v1/object/public/videos/abc/clip.webm",
		store.PublicURL("abc", "clip.webm"),
	)
}
