package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gorilla/websocket"

	"github.com/xhad/bloodhound/internal/models"
	"github.com/xhad/bloodhound/pkg/crawler"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message types streamed on /ws/crawl.
const (
	MessageStatus = "status"
	MessageHop    = "hop"
	MessageDone   = "done"
	MessageError  = "error"
)

type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

type HopData struct {
	Hop      int             `json:"hop"`
	Document models.Document `json:"document"`
}

// socket serialises writes; gorilla connections allow one writer at a time.
type socket struct {
	mu   sync.Mutex
	conn *websocket.Conn
	s    *Server
}

func (w *socket) send(msgType, content string, data interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	_ = w.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := w.conn.WriteJSON(Message{Type: msgType, Content: content, Data: data}); err != nil {
		w.s.log.Debug("error sending message", "type", msgType, "error", err)
	}
}

func (w *socket) sendError(err error) {
	ce := models.AsCrawlError(err)
	w.send(MessageError, ce.Message, ce.ToDetail())
}

// crawlSocket handles GET /ws/crawl. The client sends one crawl request;
// every hop is streamed as it is collected, then the final result. Closing
// the socket cancels the crawl.
func (s *Server) crawlSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ws := &socket{conn: conn, s: s}

	var req models.CrawlRequest
	if err := conn.ReadJSON(&req); err != nil {
		ws.sendError(models.NewCrawlError(models.ErrCodeInvalidInput, fmt.Sprintf("invalid crawl request: %v", err), err))
		return
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		ws.sendError(models.NewCrawlError(models.ErrCodeInvalidInput, err.Error(), err))
		return
	}
	req.ClientIP = c.ClientIP()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Any read error means the client went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	ws.send(MessageStatus, fmt.Sprintf("Crawling from %s", req.StartURL), nil)

	result, err := s.engine.Crawl(ctx, req, crawler.WithHopObserver(func(hop int, doc models.Document) {
		ws.send(MessageHop, doc.URL, HopData{Hop: hop, Document: doc})
	}))
	if err != nil {
		ws.sendError(err)
		return
	}

	ws.send(MessageDone, string(result.StopReason), newCrawlResponse(result))

	ws.mu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "crawl finished"),
		time.Now().Add(time.Second))
	ws.mu.Unlock()
}
