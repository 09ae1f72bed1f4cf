package main

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/xhad/bloodhound/internal/logger"
	"github.com/xhad/bloodhound/internal/types"
	"github.com/xhad/bloodhound/pkg/config"
	"github.com/xhad/bloodhound/pkg/crawler"
	"github.com/xhad/bloodhound/pkg/llm"
	"github.com/xhad/bloodhound/pkg/metrics"
	"github.com/xhad/bloodhound/pkg/scraper"
	"github.com/xhad/bloodhound/pkg/store"
)

// app is everything a command needs, built once from the configuration.
type app struct {
	cfg     *config.Config
	log     *log.Logger
	metrics *metrics.PrometheusMetrics
	engine  *crawler.Engine
	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, logOutput io.Writer) (*app, error) {
	l := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: logOutput,
	})
	a := &app{cfg: cfg, log: l, metrics: metrics.NewMetrics()}

	fetcher := scraper.NewWithConfig(scraper.ScraperConfig{
		Timeout:      cfg.Scraper.Timeout,
		UserAgent:    cfg.Scraper.UserAgent,
		RateLimit:    cfg.Scraper.RateLimit,
		MaxBodyBytes: cfg.Scraper.MaxBodyBytes,
		Logger:       l,
	})

	oracle, err := llm.NewWithConfig(llm.OracleConfig{
		Provider:         cfg.LLM.Provider,
		BaseURL:          cfg.LLM.BaseURL,
		Model:            cfg.LLM.Model,
		APIKey:           cfg.LLM.APIKey,
		MaxTokens:        cfg.LLM.MaxTokens,
		Temperature:      cfg.LLM.Temperature,
		TerminationToken: cfg.LLM.TerminationToken,
		MaxCandidates:    cfg.Crawler.MaxCandidates,
		Logger:           l,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize oracle: %w", err)
	}

	sink, err := a.newSink(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.engine, err = crawler.New(crawler.Config{
		MaxPathLength:    cfg.Crawler.MaxPathLength,
		OracleDelay:      cfg.Crawler.OracleDelay,
		DefaultProcessor: cfg.Crawler.DefaultProcessor,
		IgnorePatterns:   cfg.Scraper.IgnorePatterns,
	}, crawler.Deps{
		Fetcher: fetcher,
		Oracle:  oracle,
		Sink:    sink,
		Metrics: a.metrics,
		Logger:  l,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize crawler: %w", err)
	}

	return a, nil
}

// newSink builds the configured sinks. Each is optional.
func (a *app) newSink(ctx context.Context) (types.Sink, error) {
	var sinks []types.Sink

	if a.cfg.Logstash.URL != "" {
		sinks = append(sinks, store.NewLogstashSink(store.LogstashConfig{
			URL:     a.cfg.Logstash.URL,
			Timeout: a.cfg.Logstash.Timeout,
		}))
		a.log.Info("publishing documents to logstash", "url", a.cfg.Logstash.URL)
	}

	if a.cfg.Database.URL != "" {
		embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
			Model:   a.cfg.LLM.EmbeddingModel,
			BaseURL: a.cfg.LLM.BaseURL,
		})
		if err != nil {
			return nil, err
		}

		vs, err := store.NewWithConfig(ctx, store.VectorStoreConfig{
			ConnString: a.cfg.Database.URL,
			TableName:  a.cfg.Database.TableName,
			VectorDim:  a.cfg.Database.VectorDim,
			ChunkSize:  a.cfg.Database.ChunkSize,
			Embedder:   embedder,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vector store: %w", err)
		}
		a.closers = append(a.closers, vs.Close)
		sinks = append(sinks, vs)
		a.log.Info("publishing documents to pgvector", "table", a.cfg.Database.TableName)
	}

	return store.NewMulti(sinks...), nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		c()
	}
}
