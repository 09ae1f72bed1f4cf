package scraper

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/bloodhound/internal/models"
)

const testPage = `
<html>
	<head><title>Test Page</title></head>
	<body>
		<main>
			<h1>Test Content</h1>
			<p>This is a test paragraph.</p>
			<a href="/page2.html">Link</a>
		</main>
	</body>
</html>`

func TestScraperConfigDefaults(t *testing.T) {
	s := New()
	assert.Equal(t, 60*time.Second, s.config.Timeout)
	assert.Equal(t, DefaultUserAgent, s.config.UserAgent)
	assert.Equal(t, DefaultReferer, s.config.Referer)
	assert.Equal(t, int64(10<<20), s.config.MaxBodyBytes)
}

func TestFetchSendsBrowserHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPage))
	}))
	defer server.Close()

	body, err := New().Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "Test Content")

	assert.Equal(t, DefaultUserAgent, got.Get("User-Agent"))
	assert.Equal(t, "en-US,en;q=0.9", got.Get("Accept-Language"))
	assert.Equal(t, "gzip, deflate, br", got.Get("Accept-Encoding"))
	assert.Equal(t, DefaultReferer, got.Get("Referer"))
}

func TestFetchDecodesCompressedBodies(t *testing.T) {
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	gw.Write([]byte(testPage))
	gw.Close()

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	bw.Write([]byte(testPage))
	bw.Close()

	tests := []struct {
		encoding string
		payload  []byte
	}{
		{"gzip", gz.Bytes()},
		{"br", br.Bytes()},
		{"", []byte(testPage)},
	}

	for _, tt := range tests {
		t.Run("encoding="+tt.encoding, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				w.Write(tt.payload)
			}))
			defer server.Close()

			body, err := New().Fetch(context.Background(), server.URL)
			require.NoError(t, err)
			assert.Contains(t, body, "This is a test paragraph.")
		})
	}
}

func TestFetchConvertsCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("<html><body><p>caf\xe9</p></body></html>"))
	}))
	defer server.Close()

	body, err := New().Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "café")
}

func TestFetchFailures(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	s := NewWithConfig(ScraperConfig{Timeout: 50 * time.Millisecond})

	t.Run("non-2xx status", func(t *testing.T) {
		_, err := s.Fetch(context.Background(), notFound.URL)
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrTransport))
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("timeout", func(t *testing.T) {
		_, err := s.Fetch(context.Background(), slow.URL)
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrTransport))
	})

	t.Run("connection refused", func(t *testing.T) {
		_, err := s.Fetch(context.Background(), "http://127.0.0.1:1/")
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrTransport))
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := s.Fetch(context.Background(), "not a url")
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrInvalidInput))
	})
}

func TestFetchRateLimitHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPage))
	}))
	defer server.Close()

	s := NewWithConfig(ScraperConfig{RateLimit: 0.01})
	_, err := s.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	// The bucket is now empty for this host; a short deadline cannot wait for it.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Fetch(ctx, server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrTransport))
}

func TestFetchTruncatesLargeBodies(t *testing.T) {
	large := strings.Repeat("a", 64)

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	gw.Write([]byte(large))
	gw.Close()

	tests := []struct {
		name     string
		encoding string
		payload  []byte
		max      int64
		want     string
		logged   bool
	}{
		{"over limit", "", []byte(large), 16, large[:16], true},
		{"over limit gzip", "gzip", gz.Bytes(), 16, large[:16], true},
		{"exactly at limit", "", []byte(large), 64, large, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				w.Write(tt.payload)
			}))
			defer server.Close()

			var logs bytes.Buffer
			s := NewWithConfig(ScraperConfig{
				MaxBodyBytes: tt.max,
				Logger:       log.NewWithOptions(&logs, log.Options{Level: log.DebugLevel}),
			})

			body, err := s.Fetch(context.Background(), server.URL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, body)
			if tt.logged {
				assert.Contains(t, logs.String(), "truncating")
			} else {
				assert.NotContains(t, logs.String(), "truncating")
			}
		})
	}
}
