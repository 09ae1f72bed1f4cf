package processor_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/bloodhound/internal/models"
	"github.com/xhad/bloodhound/pkg/processor"
)

func TestChunker_Process(t *testing.T) {
	config := processor.ChunkerConfig{
		ChunkSize:       50,
		ChunkOverlap:    10,
		MinChunkLength:  20,
		RemoveStopwords: true,
		CustomStopwords: []string{"several"},
	}
	c := processor.NewChunker(config)

	documents := []models.Document{
		{Text: "This is a test document. It contains several sentences to demonstrate text processing."},
	}

	processedDocs := c.Process(documents)

	require.Len(t, processedDocs, 1)
	require.NotEmpty(t, processedDocs[0].Chunks)
	assert.Contains(t, processedDocs[0].Chunks[0], "test document")
	for _, chunk := range processedDocs[0].Chunks {
		assert.NotContains(t, chunk, "several")
	}
}

func TestChunker_FallsBackToParagraphs(t *testing.T) {
	c := processor.NewChunker(processor.ChunkerConfig{})

	processed := c.Process([]models.Document{
		{Paragraphs: []string{"First paragraph.", "Second paragraph."}},
	})

	require.Len(t, processed, 1)
	assert.Equal(t, []string{"First paragraph. Second paragraph."}, processed[0].Chunks)
}

func TestChunker_RespectsChunkSize(t *testing.T) {
	c := processor.NewChunker(processor.ChunkerConfig{ChunkSize: 100, ChunkOverlap: 20, MinChunkLength: 10})

	text := strings.Repeat("Gophers dig tunnels under the garden. ", 30)
	processed := c.Process([]models.Document{{Text: text}})

	chunks := processed[0].Chunks
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 100+20)
	}
}

func TestChunker_EmptyDocument(t *testing.T) {
	processed := processor.NewChunker(processor.ChunkerConfig{}).Process([]models.Document{{}})

	require.Len(t, processed, 1)
	assert.Empty(t, processed[0].Chunks)
}
