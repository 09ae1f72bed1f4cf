package crawler

import "github.com/xhad/bloodhound/internal/models"

// CrawlState is the mutable record of one crawl. It is owned by a single
// crawl and never shared.
type CrawlState struct {
	Objective     string
	MaxPathLength int

	path    []models.Document
	visited []string
	seen    map[string]struct{}
}

func NewCrawlState(objective string, maxPathLength int) *CrawlState {
	return &CrawlState{
		Objective:     objective,
		MaxPathLength: maxPathLength,
		path:          []models.Document{},
		visited:       []string{},
		seen:          make(map[string]struct{}),
	}
}

// Visit appends doc to the path and its URL to the visited list together,
// keeping visited[i] == path[i].URL. A URL already on the path is rejected
// and leaves the state unchanged.
func (s *CrawlState) Visit(doc models.Document) bool {
	if s.Has(doc.URL) {
		return false
	}
	s.path = append(s.path, doc)
	s.visited = append(s.visited, doc.URL)
	s.seen[doc.URL] = struct{}{}
	return true
}

func (s *CrawlState) Has(u string) bool {
	_, ok := s.seen[u]
	return ok
}

// Depth is the number of documents collected so far.
func (s *CrawlState) Depth() int {
	return len(s.path)
}

func (s *CrawlState) Full() bool {
	return len(s.path) >= s.MaxPathLength
}

// Visited returns a copy of the visited URLs in order.
func (s *CrawlState) Visited() []string {
	return append([]string(nil), s.visited...)
}

// Unvisited keeps the URLs not yet on the path, in order.
func (s *CrawlState) Unvisited(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if !s.Has(u) {
			out = append(out, u)
		}
	}
	return out
}

func (s *CrawlState) Result(reason models.StopReason) *models.CrawlResult {
	return &models.CrawlResult{
		Objective:  s.Objective,
		Path:       s.path,
		Visited:    s.visited,
		StopReason: reason,
	}
}
