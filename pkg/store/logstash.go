package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xhad/bloodhound/internal/models"
)

type LogstashConfig struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

// LogstashSink posts every event to a Logstash HTTP input.
type LogstashSink struct {
	config LogstashConfig
	client *http.Client
}

func NewLogstashSink(config LogstashConfig) *LogstashSink {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	return &LogstashSink{config: config, client: client}
}

type logstashDocument struct {
	models.Document
	IPAddress string `json:"ip_address,omitempty"`
}

type logstashPayload struct {
	Type      string           `json:"type"`
	Document  logstashDocument `json:"document"`
	Objective string           `json:"objective,omitempty"`
	Hop       int              `json:"hop,omitempty"`
}

func (s *LogstashSink) Publish(ctx context.Context, ev models.Event) error {
	body, err := json.Marshal(logstashPayload{
		Type:      ev.Type,
		Document:  logstashDocument{Document: ev.Document, IPAddress: ev.IPAddress},
		Objective: ev.Objective,
		Hop:       ev.Hop,
	})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create logstash request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("error posting to logstash: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("logstash returned status code %d", resp.StatusCode)
	}
	return nil
}
