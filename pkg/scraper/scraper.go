package scraper

import (
	"bufio"
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/charmbracelet/log"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/xhad/bloodhound/internal/logger"
	"github.com/xhad/bloodhound/internal/models"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/90.0.4430.85 Safari/537.36"
	DefaultReferer   = "https://www.google.com/"
)

type ScraperConfig struct {
	Timeout      time.Duration
	UserAgent    string
	Referer      string
	RateLimit    float64 // requests per second per host; 0 disables limiting
	MaxBodyBytes int64
	Client       *http.Client
	Logger       *log.Logger
}

// Scraper fetches pages with a fixed set of browser-like headers. It is
// safe for concurrent use by many crawls.
type Scraper struct {
	config ScraperConfig
	client *http.Client
	logger *log.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewWithConfig(config ScraperConfig) *Scraper {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.Referer == "" {
		config.Referer = DefaultReferer
	}
	if config.MaxBodyBytes == 0 {
		config.MaxBodyBytes = 10 << 20
	}

	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	return &Scraper{
		config:   config,
		client:   client,
		logger:   logger.OrDefault(config.Logger),
		limiters: make(map[string]*rate.Limiter),
	}
}

func New() *Scraper {
	return NewWithConfig(ScraperConfig{})
}

func (s *Scraper) headers() map[string]string {
	return map[string]string{
		"User-Agent":      s.config.UserAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
		"Accept-Encoding": "gzip, deflate, br",
		"Connection":      "keep-alive",
		"Referer":         s.config.Referer,
	}
}

// Fetch performs one GET and returns the body decoded to UTF-8. Every
// network, status or decoding failure is a FETCH_FAILED CrawlError.
func (s *Scraper) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", models.NewCrawlError(models.ErrCodeInvalidInput, fmt.Sprintf("not an absolute http(s) URL: %q", rawURL), err)
	}

	if err := s.wait(ctx, u.Host); err != nil {
		return "", transportError(rawURL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", transportError(rawURL, err)
	}
	for k, v := range s.headers() {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return "", transportError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", transportError(rawURL, fmt.Errorf("received status code %d", resp.StatusCode))
	}

	body, err := decodeBody(resp)
	if err != nil {
		return "", transportError(rawURL, err)
	}
	if c, ok := body.(io.Closer); ok {
		defer c.Close()
	}

	raw, err := io.ReadAll(io.LimitReader(body, s.config.MaxBodyBytes+1))
	if err != nil {
		return "", transportError(rawURL, err)
	}
	if int64(len(raw)) > s.config.MaxBodyBytes {
		s.logger.Debug("body exceeds limit, truncating", "url", rawURL, "max_body_bytes", s.config.MaxBodyBytes)
		raw = raw[:s.config.MaxBodyBytes]
	}

	reader, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		s.logger.Debug("unknown charset, reading raw bytes", "url", rawURL, "error", err)
		reader = bytes.NewReader(raw)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", transportError(rawURL, err)
	}

	s.logger.Debug("fetched page",
		"url", rawURL,
		"status", resp.StatusCode,
		"bytes", len(data),
		"elapsed", time.Since(start),
	)
	return string(data), nil
}

func (s *Scraper) wait(ctx context.Context, host string) error {
	if s.config.RateLimit <= 0 {
		return nil
	}
	s.mu.Lock()
	limiter, ok := s.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(s.config.RateLimit), 1)
		s.limiters[host] = limiter
	}
	s.mu.Unlock()
	return limiter.Wait(ctx)
}

// decodeBody undoes the Content-Encoding. We advertise our own
// Accept-Encoding, so net/http leaves the body compressed.
func decodeBody(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return resp.Body, nil
	case "gzip", "x-gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "deflate":
		// Servers disagree on whether deflate means zlib-wrapped or raw.
		br := bufio.NewReader(resp.Body)
		hdr, err := br.Peek(2)
		if err == nil && hdr[0]&0x0f == 8 && (uint16(hdr[0])<<8|uint16(hdr[1]))%31 == 0 {
			return zlib.NewReader(br)
		}
		return flate.NewReader(br), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}

func transportError(rawURL string, err error) error {
	msg := fmt.Sprintf("failed to fetch %s", rawURL)
	if errors.Is(err, context.DeadlineExceeded) {
		msg = fmt.Sprintf("timed out fetching %s", rawURL)
	}
	return models.NewCrawlError(models.ErrCodeFetchFailed, msg, err)
}
