package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/xhad/bloodhound/internal/logger"
	"github.com/xhad/bloodhound/internal/models"
	"github.com/xhad/bloodhound/internal/types"
	"github.com/xhad/bloodhound/pkg/metrics"
	"github.com/xhad/bloodhound/pkg/processor"
	"github.com/xhad/bloodhound/pkg/scraper"
	"github.com/xhad/bloodhound/pkg/store"
)

type Config struct {
	MaxPathLength    int           // used when a request leaves it at 0
	OracleDelay      time.Duration // pause before and after each oracle call
	DefaultProcessor string
	IgnorePatterns   []string
}

// Deps are the collaborators shared by every crawl an Engine runs. Each
// must be safe for concurrent use.
type Deps struct {
	Fetcher types.Fetcher
	Oracle  types.Oracle
	Sink    types.Sink
	Metrics *metrics.PrometheusMetrics
	Logger  *log.Logger
}

// Engine runs single-path crawls. One Engine serves any number of
// concurrent crawls; per-crawl state lives in a CrawlState.
type Engine struct {
	config Config
	deps   Deps
	filter *scraper.LinkFilter
	log    *log.Logger
}

// HopObserver is called after each document is appended to the path.
type HopObserver func(hop int, doc models.Document)

type crawlOptions struct {
	observers []HopObserver
}

type Option func(*crawlOptions)

func WithHopObserver(fn HopObserver) Option {
	return func(o *crawlOptions) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}

func New(config Config, deps Deps) (*Engine, error) {
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("crawler requires a fetcher")
	}
	if config.MaxPathLength <= 0 {
		config.MaxPathLength = 5
	}
	if config.OracleDelay < 0 {
		config.OracleDelay = 0
	}
	if config.DefaultProcessor == "" {
		config.DefaultProcessor = string(processor.Default)
	}
	if _, err := processor.Lookup(config.DefaultProcessor); err != nil {
		return nil, err
	}
	if deps.Sink == nil {
		deps.Sink = store.Nop{}
	}

	return &Engine{
		config: config,
		deps:   deps,
		filter: scraper.NewLinkFilter(scraper.FilterConfig{IgnorePatterns: config.IgnorePatterns}),
		log:    logger.OrDefault(deps.Logger),
	}, nil
}

// Crawl follows one path of links from req.StartURL. Invalid requests are
// rejected before anything is fetched; after that Crawl always returns the
// documents collected so far with the reason it stopped.
func (e *Engine) Crawl(ctx context.Context, req models.CrawlRequest, opts ...Option) (*models.CrawlResult, error) {
	var o crawlOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := validateURL(req.StartURL); err != nil {
		return nil, err
	}
	maxPathLength := req.MaxPathLength
	switch {
	case maxPathLength < 0:
		return nil, models.NewCrawlError(models.ErrCodeInvalidInput,
			fmt.Sprintf("max_path_length must be at least 1, got %d", maxPathLength), nil)
	case maxPathLength == 0:
		maxPathLength = e.config.MaxPathLength
	}
	ext, err := e.extractor(req.Processor)
	if err != nil {
		return nil, err
	}
	if e.deps.Oracle == nil {
		return nil, models.NewCrawlError(models.ErrCodeInternal, "crawler has no oracle configured", nil)
	}

	state := NewCrawlState(req.Objective, maxPathLength)
	log := e.log.With("start_url", req.StartURL, "objective", req.Objective)
	log.Info("crawl started", "max_path_length", maxPathLength)

	start := time.Now()
	reason := e.run(ctx, state, req, ext, o, log)

	e.deps.Metrics.ObserveCrawl(reason)
	log.Info("crawl finished",
		"stop_reason", reason,
		"hops", state.Depth(),
		"elapsed", time.Since(start),
	)
	return state.Result(reason), nil
}

// run is the crawl state machine:
//
//	Fetching -> Extracting -> Filtering -> Ranking -> Advancing -> Fetching
//
// Any step may instead stop the crawl. The loop is bounded by
// MaxPathLength since every pass either appends a document or stops.
func (e *Engine) run(ctx context.Context, state *CrawlState, req models.CrawlRequest, ext types.Extractor, o crawlOptions, log *log.Logger) models.StopReason {
	// Candidates come out of the filter normalized, so the start URL must
	// be in the same form for the visited check to catch links back to it.
	current := scraper.Normalize(req.StartURL)

	for hop := 1; hop <= state.MaxPathLength; hop++ {
		if ctx.Err() != nil {
			return models.StopCancelled
		}

		// Fetching
		html, err := e.fetch(ctx, current)
		if err != nil {
			if ctx.Err() != nil {
				return models.StopCancelled
			}
			log.Warn("fetch failed, keeping partial path", "url", current, "hop", hop, "error", err)
			return models.StopFetchFailed
		}

		// Extracting
		doc := ext.Extract(html, current)
		if !state.Visit(doc) {
			log.Warn("page already on the path", "url", current, "hop", hop)
			return models.StopNoCandidates
		}
		e.deps.Metrics.ObserveHop()
		log.Debug("hop", "hop", hop, "url", current, "title", doc.Title, "links", len(doc.Links))

		e.publish(ctx, models.Event{
			Type:      models.EventCrawlHop,
			Document:  doc,
			IPAddress: req.ClientIP,
			Objective: req.Objective,
			Hop:       hop,
		})
		for _, observe := range o.observers {
			observe(hop, doc)
		}

		if state.Full() {
			return models.StopMaxPathLength
		}
		if ctx.Err() != nil {
			return models.StopCancelled
		}

		// Filtering
		candidates := state.Unvisited(e.filter.Filter(current, state.Unvisited(doc.Hrefs())))
		if len(candidates) == 0 {
			log.Info("no candidate links", "url", current, "hop", hop)
			return models.StopNoCandidates
		}

		// Ranking
		sel, reason, ok := e.rank(ctx, state, candidates, log)
		if !ok {
			return reason
		}

		// Advancing
		current = sel.URL
	}

	return models.StopMaxPathLength
}

// rank asks the oracle for the next URL. ok is false when the crawl must
// stop, with reason saying why.
func (e *Engine) rank(ctx context.Context, state *CrawlState, candidates []string, log *log.Logger) (models.Selection, models.StopReason, bool) {
	if err := pause(ctx, e.config.OracleDelay); err != nil {
		return models.SelectEmpty(), models.StopCancelled, false
	}

	start := time.Now()
	sel, err := e.deps.Oracle.Choose(ctx, candidates, state.Objective, state.Visited())
	e.deps.Metrics.ObserveOracle(time.Since(start), sel, err)

	if err != nil {
		if ctx.Err() != nil {
			return sel, models.StopCancelled, false
		}
		log.Error("oracle failed, keeping partial path", "candidates", len(candidates), "error", err)
		return sel, models.StopOracleFailed, false
	}

	if err := pause(ctx, e.config.OracleDelay); err != nil {
		return sel, models.StopCancelled, false
	}

	switch sel.Kind {
	case models.SelectionTerminate:
		log.Info("oracle signalled termination", "hops", state.Depth())
		return sel, models.StopOracleTerminate, false
	case models.SelectionURL:
		if !slices.Contains(candidates, sel.URL) {
			log.Warn("oracle chose a URL outside the candidate set", "url", sel.URL)
			return sel, models.StopOracleEmpty, false
		}
		return sel, "", true
	default:
		log.Info("oracle returned no usable choice", "hops", state.Depth())
		return sel, models.StopOracleEmpty, false
	}
}

// FetchOne fetches and extracts a single page.
func (e *Engine) FetchOne(ctx context.Context, req models.FetchRequest) (models.Document, error) {
	if err := validateURL(req.URL); err != nil {
		return models.Document{}, err
	}
	ext, err := e.extractor(req.Processor)
	if err != nil {
		return models.Document{}, err
	}

	html, err := e.fetch(ctx, req.URL)
	if err != nil {
		e.log.Error("error fetching page", "url", req.URL, "error", err)
		return models.Document{}, err
	}

	doc := ext.Extract(html, req.URL)
	e.publish(ctx, models.Event{
		Type:      models.EventHTMLContent,
		Document:  doc,
		IPAddress: req.ClientIP,
	})
	e.log.Info("fetched content from URL", "url", req.URL)
	return doc, nil
}

func (e *Engine) extractor(name string) (types.Extractor, error) {
	if name == "" {
		name = e.config.DefaultProcessor
	}
	return processor.Lookup(name)
}

// fetch classifies every failure as FETCH_FAILED so callers can match it
// with errors.Is(err, models.ErrTransport).
func (e *Engine) fetch(ctx context.Context, u string) (string, error) {
	start := time.Now()
	html, err := e.deps.Fetcher.Fetch(ctx, u)
	e.deps.Metrics.ObserveFetch(time.Since(start), err)
	if err == nil {
		return html, nil
	}

	var ce *models.CrawlError
	if errors.As(err, &ce) && (ce.Code == models.ErrCodeFetchFailed || ce.Code == models.ErrCodeInvalidInput) {
		return "", err
	}
	return "", models.NewCrawlError(models.ErrCodeFetchFailed, fmt.Sprintf("failed to fetch %s", u), err)
}

// publish hands ev to the sink. Sink failures are logged and counted but
// never change the outcome of a fetch or crawl.
func (e *Engine) publish(ctx context.Context, ev models.Event) {
	if err := e.deps.Sink.Publish(ctx, ev); err != nil {
		e.deps.Metrics.ObserveSinkError()
		e.log.Error("error publishing document", "type", ev.Type, "url", ev.Document.URL, "error", err)
	}
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.NewCrawlError(models.ErrCodeInvalidInput,
			fmt.Sprintf("not an absolute http(s) URL: %q", raw), err)
	}
	return nil
}

// pause waits d or until ctx is done, without holding anything shared.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
