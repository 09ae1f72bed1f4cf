package models

// StopReason records why a crawl left its loop.
type StopReason string

const (
	StopMaxPathLength   StopReason = "max_path_length"
	StopNoCandidates    StopReason = "no_candidates"
	StopOracleTerminate StopReason = "oracle_terminate"
	StopOracleEmpty     StopReason = "oracle_empty"
	StopOracleFailed    StopReason = "oracle_failed"
	StopFetchFailed     StopReason = "fetch_failed"
	StopCancelled       StopReason = "cancelled"
)

type CrawlRequest struct {
	StartURL      string `json:"start_url" binding:"required"`
	MaxPathLength int    `json:"max_path_length"`
	Objective     string `json:"objective" binding:"required"`
	Processor     string `json:"processor,omitempty"`
	ClientIP      string `json:"-"`
}

type FetchRequest struct {
	URL       string `json:"url" binding:"required"`
	Processor string `json:"processor,omitempty"`
	ClientIP  string `json:"-"`
}

// CrawlResult is the ordered path of documents visited by one crawl.
// Visited[i] is always Path[i].URL.
type CrawlResult struct {
	Objective  string     `json:"objective"`
	Path       []Document `json:"path"`
	Visited    []string   `json:"visited"`
	StopReason StopReason `json:"stop_reason"`
}

// Hops is the number of documents collected.
func (r *CrawlResult) Hops() int {
	if r == nil {
		return 0
	}
	return len(r.Path)
}

// Event types published to sinks. "html_content" is what downstream
// log pipelines already index single-page fetches under.
const (
	EventHTMLContent = "html_content"
	EventCrawlHop    = "crawl_hop"
)

// Event is the payload handed to a Sink for every produced document.
type Event struct {
	Type      string   `json:"type"`
	Document  Document `json:"document"`
	IPAddress string   `json:"ip_address,omitempty"`
	Objective string   `json:"objective,omitempty"`
	Hop       int      `json:"hop,omitempty"`
}
