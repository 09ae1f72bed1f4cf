package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/xhad/bloodhound/internal/models"
	"github.com/xhad/bloodhound/internal/types"
	"github.com/xhad/bloodhound/pkg/processor"
)

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	ChunkSize  int
	Embedder   types.Embedder
}

// VectorStore is a sink that chunks each document, embeds the chunks and
// upserts them into a pgvector table.
type VectorStore struct {
	config  VectorStoreConfig
	pool    *pgxpool.Pool
	chunker processor.Chunker
}

func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "documents"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768 // nomic-embed-text
	}
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.Embedder == nil {
		return nil, fmt.Errorf("vector store requires an embedder")
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &VectorStore{
		config:  config,
		pool:    pool,
		chunker: processor.NewChunker(processor.ChunkerConfig{ChunkSize: config.ChunkSize}),
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT,
			content TEXT,
			chunk_index INTEGER,
			embedding vector(%d),
			metadata JSONB,
			captured_at TIMESTAMPTZ
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Publish implements types.Sink.
func (vs *VectorStore) Publish(ctx context.Context, ev models.Event) error {
	processed := vs.chunker.Process([]models.Document{ev.Document})[0]
	if len(processed.Chunks) == 0 {
		return nil
	}

	chunks := make([]string, len(processed.Chunks))
	for i, c := range processed.Chunks {
		chunks[i] = sanitize(c)
	}

	embeddings, err := vs.config.Embedder.CreateEmbedding(ctx, chunks)
	if err != nil {
		return fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(embeddings))
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, url, title, content, chunk_index, embedding, metadata, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			captured_at = EXCLUDED.captured_at`,
		vs.config.TableName)

	doc := ev.Document
	title := sanitize(doc.Title)
	for i, chunk := range chunks {
		_, err = tx.Exec(ctx, stmt,
			ChunkID(doc.URL, i),
			doc.URL,
			title,
			chunk,
			i,
			pgvector.NewVector(embeddings[i]),
			doc.Metadata,
			doc.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ChunkID is stable per (url, chunk index) so a re-fetched page replaces
// its earlier rows.
func ChunkID(pageURL string, index int) string {
	return fmt.Sprintf("%s_%d", uuid.NewSHA1(uuid.NameSpaceURL, []byte(pageURL)), index)
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

// sanitize drops invalid UTF-8 and NUL bytes, which Postgres text rejects.
func sanitize(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, ""), "\x00", "")
}
