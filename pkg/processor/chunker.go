package processor

import (
	"strings"

	"github.com/xhad/bloodhound/internal/models"
)

type ChunkerConfig struct {
	ChunkSize       int
	ChunkOverlap    int
	MinChunkLength  int
	RemoveStopwords bool
	CustomStopwords []string
}

// Chunker splits document text into overlapping, sentence-aligned chunks
// sized for embedding.
type Chunker struct {
	config ChunkerConfig
}

func NewChunker(config ChunkerConfig) Chunker {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 200
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 5
	}
	if config.MinChunkLength == 0 {
		config.MinChunkLength = 100
	}

	return Chunker{
		config: config,
	}
}

func (c Chunker) Process(docs []models.Document) []models.ProcessedDocument {
	processed := make([]models.ProcessedDocument, 0, len(docs))

	for _, doc := range docs {
		text := doc.Text
		if text == "" {
			text = strings.Join(doc.Paragraphs, " ")
		}

		processed = append(processed, models.ProcessedDocument{
			Document: doc,
			Chunks:   c.splitIntoChunks(c.cleanText(text)),
		})
	}

	return processed
}

func (c Chunker) cleanText(text string) string {
	text = strings.Join(strings.Fields(text), " ")

	if c.config.RemoveStopwords {
		text = c.removeStopwords(text)
	}

	return strings.TrimSpace(text)
}

func (c Chunker) splitIntoChunks(text string) []string {
	var chunks []string
	current := strings.Builder{}

	for _, sentence := range splitIntoSentences(text) {
		// If adding this sentence would exceed chunk size
		if current.Len()+len(sentence) > c.config.ChunkSize && current.Len() > 0 {
			if current.Len() >= c.config.MinChunkLength {
				chunks = append(chunks, strings.TrimSpace(current.String()))
			}

			// Start new chunk with overlap
			overlap := ""
			if current.Len() > c.config.ChunkOverlap {
				overlap = tail(current.String(), c.config.ChunkOverlap)
			}
			current.Reset()
			current.WriteString(overlap)
		}

		current.WriteString(sentence)
		current.WriteString(" ")
	}

	// Short documents still produce one chunk
	if last := strings.TrimSpace(current.String()); last != "" && (len(last) >= c.config.MinChunkLength || len(chunks) == 0) {
		chunks = append(chunks, last)
	}

	return chunks
}

// tail returns at most n trailing bytes of s without splitting a rune.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !isRuneStart(s[i]) {
		i++
	}
	return s[i:]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func splitIntoSentences(text string) []string {
	var sentences []string
	current := strings.Builder{}

	for i := 0; i < len(text); i++ {
		current.WriteByte(text[i])

		if (text[i] == '.' || text[i] == '!' || text[i] == '?') && (i+1 == len(text) || text[i+1] == ' ') {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}

	// Add any remaining text
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

func (c Chunker) removeStopwords(text string) string {
	stopwords := make(map[string]bool)
	for _, w := range getStopwords() {
		stopwords[w] = true
	}
	for _, w := range c.config.CustomStopwords {
		stopwords[strings.ToLower(w)] = true
	}

	words := strings.Fields(text)
	filtered := words[:0]
	for _, word := range words {
		if !stopwords[strings.ToLower(word)] {
			filtered = append(filtered, word)
		}
	}

	return strings.Join(filtered, " ")
}

// Common English stopwords
func getStopwords() []string {
	return []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with",
	}
}
