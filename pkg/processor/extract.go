package processor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/xhad/bloodhound/internal/models"
)

// parse never fails in practice: the HTML5 parser accepts any byte
// sequence. A nil return is still handled by every caller.
func parse(rawHTML string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}
	doc.Find("script, style, noscript, template").Remove()
	return doc
}

// rootBase is scheme+host of pageURL, or nil when pageURL is not absolute.
func rootBase(pageURL string) *url.URL {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host}
}

func newDocument(pageURL string, base *url.URL) models.Document {
	root := ""
	if base != nil {
		root = base.String()
	}
	return models.NewDocument(pageURL, root)
}

// clean collapses runs of whitespace and trims.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func texts(sel *goquery.Selection) []string {
	out := []string{}
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := clean(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

func extractTitle(doc *goquery.Document) string {
	return clean(doc.Find("title").First().Text())
}

func extractHeadings(root *goquery.Selection, d *models.Document) {
	for _, level := range models.HeadingLevels {
		d.Headings[level] = texts(root.Find(level))
	}
}

func extractParagraphs(root *goquery.Selection) []string {
	return texts(root.Find("p"))
}

// extractLinks resolves every href against base. Anchors without a usable
// href are dropped.
func extractLinks(root *goquery.Selection, base *url.URL) []models.Link {
	links := []models.Link{}
	root.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		switch {
		case base != nil:
			ref = base.ResolveReference(ref)
		case !ref.IsAbs():
			return
		}
		links = append(links, models.Link{Text: clean(s.Text()), Href: ref.String()})
	})
	return links
}

func extractLists(root *goquery.Selection) models.Lists {
	lists := models.Lists{Unordered: [][]string{}, Ordered: [][]string{}}
	root.Find("ul").Each(func(_ int, s *goquery.Selection) {
		if items := texts(s.ChildrenFiltered("li")); len(items) > 0 {
			lists.Unordered = append(lists.Unordered, items)
		}
	})
	root.Find("ol").Each(func(_ int, s *goquery.Selection) {
		if items := texts(s.ChildrenFiltered("li")); len(items) > 0 {
			lists.Ordered = append(lists.Ordered, items)
		}
	})
	return lists
}

func extractTables(root *goquery.Selection) [][][]string {
	tables := [][][]string{}
	root.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := [][]string{}
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := []string{}
			tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, clean(cell.Text()))
			})
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
		})
		tables = append(tables, rows)
	})
	return tables
}

// extractMetadata reads name= and property= meta tags into one map. A
// later tag overwrites an earlier one with the same key.
func extractMetadata(doc *goquery.Document) map[string]string {
	meta := map[string]string{}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content, ok := s.Attr("content")
		if !ok {
			return
		}
		key, _ := s.Attr("name")
		if key == "" {
			key, _ = s.Attr("property")
		}
		if key = strings.TrimSpace(key); key != "" {
			meta[key] = strings.TrimSpace(content)
		}
	})
	return meta
}

func bodyText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		return clean(doc.Text())
	}
	return clean(body.Text())
}

// joinedText mirrors get_text(separator=" ", strip=True): every text node
// trimmed, empty ones skipped, the rest joined by single spaces.
func joinedText(doc *goquery.Document) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := clean(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}
