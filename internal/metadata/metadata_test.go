package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOpenGraphPage = `<!DOCTYPE html>
<html>
<head>
  <title>Fallback Title</title>
  <meta property="og:title" content="Intro to <b>Go</b> Generics">
  <meta name="twitter:title" content="Twitter Title">
  <meta property="og:description" content="Type parameters &amp; constraints, explained.">
  <meta property="og:image" content="https://example.com/cover.png">
  <meta property="og:site_name" content="Example Blog">
</head>
<body><article><h1>Intro</h1><p>Some body text about generics.</p></article></body>
</html>`

const testTwitterPage = `<!DOCTYPE html>
<html>
<head>
  <title>Plain Title</title>
  <meta name="twitter:title" content="Twitter Title">
  <meta name="twitter:description" content="Twitter description">
</head>
<body><p>Hello</p></body>
</html>`

const testBarePage = `<!DOCTYPE html>
<html><head><title>Only A Title</title></head><body><p>Nothing else here.</p></body></html>`

func newTestFetcher(t *testing.T, timeout time.Duration) *Fetcher {
	t.Helper()

	f, err := NewFetcher(Config{Timeout: timeout, CacheSize: 16})
	require.NoError(t, err)
	return f
}

func servePage(page string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
}

func TestFetch_OpenGraph(t *testing.T) {
	srv := servePage(testOpenGraphPage)
	defer srv.Close()

	md := newTestFetcher(t, time.Second).Fetch(context.Background(), srv.URL)

	assert.Equal(t, "Intro to Go Generics", md.Title)
	assert.Equal(t, "Type parameters & constraints, explained.", md.Description)
	assert.Equal(t, "https://example.com/cover.png", md.ImageURL)
	assert.Equal(t, "Example Blog", md.SiteName)
}

func TestFetch_TwitterFallback(t *testing.T) {
	srv := servePage(testTwitterPage)
	defer srv.Close()

	md := newTestFetcher(t, time.Second).Fetch(context.Background(), srv.URL)

	assert.Equal(t, "Twitter Title", md.Title)
	assert.Equal(t, "Twitter description", md.Description)
}

func TestFetch_TitleTagFallback(t *testing.T) {
	srv := servePage(testBarePage)
	defer srv.Close()

	md := newTestFetcher(t, time.Second).Fetch(context.Background(), srv.URL)

	assert.Equal(t, "Only A Title", md.Title)
}

func TestFetch_ReadabilityText(t *testing.T) {
	srv := servePage(testOpenGraphPage)
	defer srv.Close()

	md := newTestFetcher(t, time.Second).Fetch(context.Background(), srv.URL)

	assert.Contains(t, md.Text, "Some body text about generics.")
}

func TestFetch_BadStatusIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	md := newTestFetcher(t, time.Second).Fetch(context.Background(), srv.URL)

	assert.True(t, md.Empty())
}

func TestFetch_TimeoutIsEmpty(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	md := newTestFetcher(t, 50*time.Millisecond).Fetch(context.Background(), srv.URL)

	assert.True(t, md.Empty())
}

func TestFetch_UnreachableIsEmpty(t *testing.T) {
	md := newTestFetcher(t, time.Second).Fetch(context.Background(), "http://127.0.0.1:1/nothing")

	assert.Equal(t, Metadata{}, md)
}

func TestFetch_CachesSuccesses(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(testOpenGraphPage))
	}))
	defer srv.Close()

	f := newTestFetcher(t, time.Second)
	first := f.Fetch(context.Background(), srv.URL)
	second := f.Fetch(context.Background(), srv.URL)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	// "é" is two bytes, cutting at 2 would split it
	assert.Equal(t, "a", truncate("aé", 2))
}
