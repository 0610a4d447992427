package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchOne_CachesAndRevalidates(t *testing.T) {
	const body = "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "feed", URL: srv.URL}

	first, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, body, string(first.Body))

	second, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, second.FromCache, "revalidated fetch should reuse the cached body")
	assert.Equal(t, body, string(second.Body))
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchOne_FallsBackToCacheOnNetworkError(t *testing.T) {
	const body = "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))

	cacheDir := t.TempDir()
	f := NewFetcher(cacheDir)
	src := Source{ID: "feed", URL: srv.URL}

	_, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)

	// Server gone; the cached body must still be served.
	srv.Close()

	res, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, body, string(res.Body))
}

func TestFetchOne_ServerErrorWithoutCacheFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	_, err := f.FetchOne(context.Background(), Source{ID: "feed", URL: srv.URL})
	assert.Error(t, err)
}

func TestFetchOne_EmptyURL(t *testing.T) {
	f := NewFetcher(t.TempDir())
	_, err := f.FetchOne(context.Background(), Source{ID: "feed"})
	assert.Error(t, err)
}

func TestFetchAll_CollectsPerSourceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	results, errs := f.FetchAll(context.Background(), []Source{
		{ID: "good", URL: srv.URL},
		{ID: "bad", URL: ""},
	})
	assert.Len(t, results, 1)
	assert.Len(t, errs, 1)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.org/...(redacted)", redactURL("https://example.org/cal/private.ics?token=s3cret"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}
