package types

import (
	"context"

	"github.com/xhad/bloodhound/internal/models"
)

// Core interfaces

// Fetcher performs one GET and returns the raw HTML.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Extractor turns raw HTML into a Document. It never fails.
type Extractor interface {
	Extract(html, pageURL string) models.Document
}

// Oracle picks the next link to follow, or signals termination.
type Oracle interface {
	Choose(ctx context.Context, candidates []string, objective string, visited []string) (models.Selection, error)
}

// OracleFunc adapts an ordinary function to the Oracle interface.
type OracleFunc func(ctx context.Context, candidates []string, objective string, visited []string) (models.Selection, error)

func (f OracleFunc) Choose(ctx context.Context, candidates []string, objective string, visited []string) (models.Selection, error) {
	return f(ctx, candidates, objective, visited)
}

// FetcherFunc adapts an ordinary function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// Sink receives every produced document. Failures never affect a crawl.
type Sink interface {
	Publish(ctx context.Context, ev models.Event) error
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}
