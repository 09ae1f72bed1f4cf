package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	validProviders = map[string]bool{"ollama": true, "openai": true}
	validLevels    = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats   = map[string]bool{"json": true, "text": true, "logfmt": true}
)

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if !validLevels[strings.ToLower(c.Log.Level)] {
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown log level: %s", c.Log.Level),
		})
	}

	if !validFormats[strings.ToLower(c.Log.Format)] {
		errors = append(errors, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("unknown log format: %s", c.Log.Format),
		})
	}

	// Validate LLM config
	if !validProviders[c.LLM.Provider] {
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown provider: %s", c.LLM.Provider),
		})
	}

	if c.LLM.Provider == "ollama" && c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	}

	if c.LLM.Provider == "openai" && c.LLM.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.api_key",
			Message: "api_key is required for the openai provider",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.BaseURL != "" && !isHTTPURL(c.LLM.BaseURL) {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid LLM base URL",
		})
	}

	// Validate scraper config
	if c.Scraper.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "scraper.timeout",
			Message: "timeout must be positive",
		})
	}

	if c.Scraper.RateLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "scraper.rate_limit",
			Message: "rate_limit must not be negative",
		})
	}

	// Validate crawler config
	if c.Crawler.MaxPathLength < 1 {
		errors = append(errors, ValidationError{
			Field:   "crawler.max_path_length",
			Message: "max_path_length must be positive",
		})
	}

	if c.Crawler.OracleDelay < 0 {
		errors = append(errors, ValidationError{
			Field:   "crawler.oracle_delay",
			Message: "oracle_delay must not be negative",
		})
	}

	// Validate sinks
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Logstash.URL != "" && !isHTTPURL(c.Logstash.URL) {
		errors = append(errors, ValidationError{
			Field:   "logstash.url",
			Message: "invalid Logstash URL",
		})
	}

	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst < 1 {
		errors = append(errors, ValidationError{
			Field:   "rate_limit",
			Message: "requests_per_second and burst must be positive",
		})
	}

	return errors
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
