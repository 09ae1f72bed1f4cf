package models

import "time"

// HeadingLevels are the keys always present in Document.Headings.
var HeadingLevels = []string{"h1", "h2", "h3", "h4", "h5", "h6"}

type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

type Lists struct {
	Unordered [][]string `json:"unordered"`
	Ordered   [][]string `json:"ordered"`
}

// Document is one fetched and extracted page.
type Document struct {
	URL         string              `json:"url"`
	Title       string              `json:"title"`
	Headings    map[string][]string `json:"headings"`
	Paragraphs  []string            `json:"paragraphs"`
	Links       []Link              `json:"links"`
	Lists       Lists               `json:"lists"`
	Tables      [][][]string        `json:"tables"`
	Metadata    map[string]string   `json:"metadata"`
	Text        string              `json:"text"`
	Timestamp   time.Time           `json:"timestamp"`
	RootBaseURL string              `json:"root_base_url"`
}

// NewDocument returns a Document with every container initialised, so
// callers never see a missing heading level or a nil slice.
func NewDocument(pageURL, rootBaseURL string) Document {
	headings := make(map[string][]string, len(HeadingLevels))
	for _, level := range HeadingLevels {
		headings[level] = []string{}
	}
	return Document{
		URL:         pageURL,
		Headings:    headings,
		Paragraphs:  []string{},
		Links:       []Link{},
		Lists:       Lists{Unordered: [][]string{}, Ordered: [][]string{}},
		Tables:      [][][]string{},
		Metadata:    map[string]string{},
		Timestamp:   time.Now().UTC(),
		RootBaseURL: rootBaseURL,
	}
}

// Hrefs returns the link targets in document order.
func (d Document) Hrefs() []string {
	hrefs := make([]string, 0, len(d.Links))
	for _, l := range d.Links {
		hrefs = append(hrefs, l.Href)
	}
	return hrefs
}

type ProcessedDocument struct {
	Document
	Chunks []string
}
