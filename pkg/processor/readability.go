package processor

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/xhad/bloodhound/internal/models"
)

// minArticleLength is the shortest article text we trust. Below it the
// algorithm most likely missed the main content.
const minArticleLength = 50

// ReadabilityExtractor restricts the structural fields to the main article
// found by Mozilla's Readability algorithm. Links and metadata still come
// from the whole page so navigation is unaffected.
type ReadabilityExtractor struct{}

func (ReadabilityExtractor) Extract(rawHTML, pageURL string) models.Document {
	full := StructuredExtractor{}.Extract(rawHTML, pageURL)

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return full
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil || len(strings.TrimSpace(article.TextContent)) < minArticleLength {
		return full
	}

	doc := parse(article.Content)
	if doc == nil {
		return full
	}
	root := doc.Selection

	d := full
	d.Headings = make(map[string][]string, len(models.HeadingLevels))
	extractHeadings(root, &d)
	d.Paragraphs = extractParagraphs(root)
	d.Lists = extractLists(root)
	d.Tables = extractTables(root)
	d.Text = clean(article.TextContent)
	if title := clean(article.Title); title != "" {
		d.Title = title
	}
	return d
}
