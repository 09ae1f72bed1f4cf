package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Mode string `yaml:"mode"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Scraper struct {
		Timeout        time.Duration `yaml:"timeout"`
		UserAgent      string        `yaml:"user_agent"`
		RateLimit      float64       `yaml:"rate_limit"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
		IgnorePatterns []string      `yaml:"ignore_patterns"`
	} `yaml:"scraper"`

	LLM struct {
		Provider         string  `yaml:"provider"`
		BaseURL          string  `yaml:"base_url"`
		Model            string  `yaml:"model"`
		APIKey           string  `yaml:"api_key"`
		MaxTokens        int     `yaml:"max_tokens"`
		Temperature      float64 `yaml:"temperature"`
		TerminationToken string  `yaml:"termination_token"`
		EmbeddingModel   string  `yaml:"embedding_model"`
	} `yaml:"llm"`

	Crawler struct {
		MaxPathLength    int           `yaml:"max_path_length"`
		OracleDelay      time.Duration `yaml:"oracle_delay"`
		MaxCandidates    int           `yaml:"max_candidates"`
		DefaultProcessor string        `yaml:"default_processor"`
	} `yaml:"crawler"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
		ChunkSize int    `yaml:"chunk_size"`
	} `yaml:"database"`

	Logstash struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"logstash"`

	RateLimit struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/bloodhound/config.yaml"),
			"/etc/bloodhound/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8000
	}
	if config.Server.Mode == "" {
		config.Server.Mode = "release"
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "json"
	}

	if config.Scraper.Timeout == 0 {
		config.Scraper.Timeout = 60 * time.Second
	}
	if config.Scraper.MaxBodyBytes == 0 {
		config.Scraper.MaxBodyBytes = 10 << 20
	}

	if config.LLM.Provider == "" {
		config.LLM.Provider = "ollama"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 256
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.1
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.TerminationToken == "" {
		config.LLM.TerminationToken = "TERMINATE"
	}
	if config.LLM.EmbeddingModel == "" {
		config.LLM.EmbeddingModel = "nomic-embed-text:latest"
	}

	if config.Crawler.MaxPathLength == 0 {
		config.Crawler.MaxPathLength = 5
	}
	if config.Crawler.OracleDelay == 0 {
		config.Crawler.OracleDelay = time.Second
	}
	if config.Crawler.MaxCandidates == 0 {
		config.Crawler.MaxCandidates = 100
	}
	if config.Crawler.DefaultProcessor == "" {
		config.Crawler.DefaultProcessor = "structured"
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "documents"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}
	if config.Database.ChunkSize == 0 {
		config.Database.ChunkSize = 1000
	}

	if config.Logstash.Timeout == 0 {
		config.Logstash.Timeout = 60 * time.Second
	}

	if config.RateLimit.RequestsPerSecond == 0 {
		config.RateLimit.RequestsPerSecond = 5
	}
	if config.RateLimit.Burst == 0 {
		config.RateLimit.Burst = 10
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if logstashURL := os.Getenv("LOGSTASH_URL"); logstashURL != "" {
		config.Logstash.URL = logstashURL
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if level := os.Getenv("BLOODHOUND_LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}
