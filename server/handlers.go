package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xhad/bloodhound/internal/models"
)

type FetchResponse struct {
	Success   bool                `json:"success"`
	Document  *models.Document    `json:"document,omitempty"`
	IPAddress string              `json:"ip_address,omitempty"`
	Error     *models.ErrorDetail `json:"error,omitempty"`
}

type CrawlResponse struct {
	Success    bool                `json:"success"`
	Objective  string              `json:"objective,omitempty"`
	Path       []models.Document   `json:"path,omitempty"`
	Visited    []string            `json:"visited,omitempty"`
	StopReason models.StopReason   `json:"stop_reason,omitempty"`
	Hops       int                 `json:"hops"`
	Error      *models.ErrorDetail `json:"error,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func newCrawlResponse(r *models.CrawlResult) CrawlResponse {
	return CrawlResponse{
		Success:    true,
		Objective:  r.Objective,
		Path:       r.Path,
		Visited:    r.Visited,
		StopReason: r.StopReason,
		Hops:       r.Hops(),
	}
}

// fetchHTML handles POST /fetch_html.
func (s *Server) fetchHTML(c *gin.Context) {
	var req models.FetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewCrawlError(models.ErrCodeInvalidInput, err.Error(), err))
		return
	}
	req.ClientIP = c.ClientIP()

	doc, err := s.engine.FetchOne(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, FetchResponse{
		Success:   true,
		Document:  &doc,
		IPAddress: req.ClientIP,
	})
}

// crawl handles POST /crawl. The whole path is returned once the crawl
// stops; /ws/crawl streams it hop by hop instead.
func (s *Server) crawl(c *gin.Context) {
	var req models.CrawlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewCrawlError(models.ErrCodeInvalidInput, err.Error(), err))
		return
	}
	req.ClientIP = c.ClientIP()

	result, err := s.engine.Crawl(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCrawlResponse(result))
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
	})
}

// respondError maps a CrawlError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	ce := models.AsCrawlError(err)
	c.JSON(mapErrorToStatus(ce), gin.H{
		"success": false,
		"error":   ce.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.CrawlError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput, models.ErrCodeUnknownProcessor:
		return http.StatusBadRequest // 400
	case models.ErrCodeFetchFailed:
		return http.StatusBadGateway // 502
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	default:
		return http.StatusInternalServerError // 500
	}
}
