package processor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xhad/bloodhound/internal/models"
	"github.com/xhad/bloodhound/internal/types"
)

// Kind names one extraction strategy.
type Kind string

const (
	Structured  Kind = "structured"
	CNA         Kind = "CNA"
	Readability Kind = "readability"
	Markdown    Kind = "markdown"
)

const Default = Structured

var registry = map[string]types.Extractor{
	strings.ToLower(string(Structured)):  StructuredExtractor{},
	strings.ToLower(string(CNA)):         TextExtractor{},
	strings.ToLower(string(Readability)): ReadabilityExtractor{},
	strings.ToLower(string(Markdown)):    NewMarkdownExtractor(),
}

// Lookup returns the extractor registered under name (case-insensitive).
// An empty name selects the default strategy.
func Lookup(name string) (types.Extractor, error) {
	if strings.TrimSpace(name) == "" {
		name = string(Default)
	}
	ext, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, models.NewCrawlError(
			models.ErrCodeUnknownProcessor,
			fmt.Sprintf("unknown processor type: %s (available: %s)", name, strings.Join(Names(), ", ")),
			nil,
		)
	}
	return ext, nil
}

// Names lists the registered strategies in a stable order.
func Names() []string {
	names := []string{string(Structured), string(CNA), string(Readability), string(Markdown)}
	sort.Strings(names)
	return names
}

// StructuredExtractor fills every Document field.
type StructuredExtractor struct{}

func (StructuredExtractor) Extract(rawHTML, pageURL string) models.Document {
	base := rootBase(pageURL)
	d := newDocument(pageURL, base)

	doc := parse(rawHTML)
	if doc == nil {
		return d
	}
	root := doc.Selection

	d.Title = extractTitle(doc)
	extractHeadings(root, &d)
	d.Paragraphs = extractParagraphs(root)
	d.Links = extractLinks(root, base)
	d.Lists = extractLists(root)
	d.Tables = extractTables(root)
	d.Metadata = extractMetadata(doc)
	d.Text = bodyText(doc)
	return d
}

// TextExtractor is the plain-text strategy: title, links, metadata and a
// flattened text rendering, with the structural fields left empty.
type TextExtractor struct{}

func (TextExtractor) Extract(rawHTML, pageURL string) models.Document {
	base := rootBase(pageURL)
	d := newDocument(pageURL, base)

	doc := parse(rawHTML)
	if doc == nil {
		return d
	}

	d.Title = extractTitle(doc)
	d.Links = extractLinks(doc.Selection, base)
	d.Metadata = extractMetadata(doc)
	d.Text = joinedText(doc)
	return d
}
