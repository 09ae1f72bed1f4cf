package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/bloodhound/internal/models"
	"github.com/xhad/bloodhound/internal/types"
	"github.com/xhad/bloodhound/pkg/crawler"
	"github.com/xhad/bloodhound/pkg/metrics"
	"github.com/xhad/bloodhound/server"
)

// site serves canned pages: /pN links to /p(N+1).
var site = types.FetcherFunc(func(_ context.Context, u string) (string, error) {
	var n int
	if _, err := fmt.Sscanf(u, "http://example.com/p%d", &n); err != nil {
		return "", fmt.Errorf("no such page: %s", u)
	}
	return fmt.Sprintf(`<html><head><title>Page %d</title></head><body><a href="/p%d">next</a></body></html>`, n, n+1), nil
})

var follow = types.OracleFunc(func(_ context.Context, candidates []string, _ string, _ []string) (models.Selection, error) {
	return models.SelectURL(candidates[0]), nil
})

func newTestServer(t *testing.T, oracle types.Oracle, rps float64, burst int) *server.Server {
	t.Helper()
	quiet := log.New(io.Discard)

	engine, err := crawler.New(crawler.Config{MaxPathLength: 3}, crawler.Deps{
		Fetcher: site,
		Oracle:  oracle,
		Logger:  quiet,
	})
	require.NoError(t, err)

	return server.NewServer(server.Config{
		Mode:              gin.TestMode,
		RequestsPerSecond: rps,
		Burst:             burst,
		Logger:            quiet,
	}, engine, metrics.NewMetrics())
}

func post(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	detail, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error detail in %v", body)
	return detail["code"].(string)
}

func TestFetchHTML(t *testing.T) {
	h := newTestServer(t, follow, 100, 100).Handler()

	rec, body := post(t, h, "/fetch_html", `{"url": "http://example.com/p1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["ip_address"])
	doc := body["document"].(map[string]any)
	assert.Equal(t, "Page 1", doc["title"])
	assert.Equal(t, "http://example.com/p1", doc["url"])
}

func TestFetchHTMLErrors(t *testing.T) {
	h := newTestServer(t, follow, 100, 100).Handler()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"malformed json", `{"url": `, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{"missing url", `{}`, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{"relative url", `{"url": "/p1"}`, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{"unknown processor", `{"url": "http://example.com/p1", "processor": "BBC"}`, http.StatusBadRequest, models.ErrCodeUnknownProcessor},
		{"fetch failure", `{"url": "http://example.com/missing"}`, http.StatusBadGateway, models.ErrCodeFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := post(t, h, "/fetch_html", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantCode, errorCode(t, body))
		})
	}
}

func TestCrawl(t *testing.T) {
	h := newTestServer(t, follow, 100, 100).Handler()

	rec, body := post(t, h, "/crawl", `{"start_url": "http://example.com/p1", "objective": "follow the chain", "max_path_length": 2}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "max_path_length", body["stop_reason"])
	assert.Equal(t, 2.0, body["hops"])
	assert.Equal(t, []any{"http://example.com/p1", "http://example.com/p2"}, body["visited"])
	assert.Len(t, body["path"], 2)
}

func TestCrawlBadRequest(t *testing.T) {
	h := newTestServer(t, follow, 100, 100).Handler()

	for _, b := range []string{
		`{"objective": "x"}`,
		`{"start_url": "http://example.com/p1"}`,
		`{"start_url": "http://example.com/p1", "objective": "x", "max_path_length": -2}`,
	} {
		rec, body := post(t, h, "/crawl", b)
		assert.Equal(t, http.StatusBadRequest, rec.Code, b)
		assert.Equal(t, models.ErrCodeInvalidInput, errorCode(t, body))
	}
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, follow, 0.001, 2).Handler()

	body := `{"url": "http://example.com/p1"}`
	for i := 0; i < 2; i++ {
		rec, _ := post(t, h, "/fetch_html", body)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, resp := post(t, h, "/fetch_html", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, models.ErrCodeRateLimited, errorCode(t, resp))

	// Health stays outside the limiter.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	hrec := httptest.NewRecorder()
	h.ServeHTTP(hrec, req)
	assert.Equal(t, http.StatusOK, hrec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, follow, 100, 100).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	post(t, h, "/crawl", `{"start_url": "http://example.com/p1", "objective": "x", "max_path_length": 1}`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bloodhound_crawls_total")
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/crawl"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestCrawlSocket(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t, follow, 100, 100).Handler())
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(models.CrawlRequest{
		StartURL:      "http://example.com/p1",
		Objective:     "follow the chain",
		MaxPathLength: 3,
	}))

	var msgs []server.Message
	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg server.Message
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		msgs = append(msgs, msg)
		if msg.Type == server.MessageDone || msg.Type == server.MessageError {
			break
		}
	}

	require.Len(t, msgs, 5)
	assert.Equal(t, server.MessageStatus, msgs[0].Type)
	for i, hop := range msgs[1:4] {
		assert.Equal(t, server.MessageHop, hop.Type)
		assert.Equal(t, fmt.Sprintf("http://example.com/p%d", i+1), hop.Content)
	}
	assert.Equal(t, server.MessageDone, msgs[4].Type)
	assert.Equal(t, "max_path_length", msgs[4].Content)
}

func TestCrawlSocketInvalidRequest(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t, follow, 100, 100).Handler())
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"objective": "missing start"}`)))

	var msg server.Message
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, server.MessageError, msg.Type)
}

func TestCrawlSocketCloseCancelsCrawl(t *testing.T) {
	cancelled := make(chan struct{})
	oracle := types.OracleFunc(func(ctx context.Context, _ []string, _ string, _ []string) (models.Selection, error) {
		<-ctx.Done()
		close(cancelled)
		return models.SelectEmpty(), ctx.Err()
	})

	srv := httptest.NewServer(newTestServer(t, oracle, 100, 100).Handler())
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(models.CrawlRequest{
		StartURL:  "http://example.com/p1",
		Objective: "wait forever",
	}))

	// Wait for the first hop, then hang up.
	for {
		var msg server.Message
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == server.MessageHop {
			break
		}
	}
	require.NoError(t, conn.Close())

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("crawl was not cancelled after the socket closed")
	}
}

func TestRun(t *testing.T) {
	s := newTestServer(t, follow, 100, 100)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestResponsesAreJSON(t *testing.T) {
	h := newTestServer(t, follow, 100, 100).Handler()

	req := httptest.NewRequest(http.MethodPost, "/fetch_html", bytes.NewBufferString(`{"url":"http://example.com/p1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}
