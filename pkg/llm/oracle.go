package llm

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/xhad/bloodhound/internal/logger"
	"github.com/xhad/bloodhound/internal/models"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	DefaultTerminationToken = "TERMINATE"
)

const systemPrompt = `You are the navigator of a web crawler that follows exactly one path of links toward an objective.
Given the objective, the pages already visited and a list of candidate links, reply with the single candidate URL most likely to lead toward the objective.
If the visited pages already satisfy the objective, or no candidate is worth following, reply with %s.
Reply with the URL or %s only, on one line, with no explanation.`

// OracleConfig represents the configuration for the relevance oracle.
type OracleConfig struct {
	Provider         string
	BaseURL          string // Ollama server URL or OpenAI-compatible endpoint
	Model            string
	APIKey           string
	MaxTokens        int
	Temperature      float64
	TerminationToken string
	MaxCandidates    int
	Logger           *log.Logger
}

// Oracle asks an LLM which candidate link to follow next.
type Oracle struct {
	config OracleConfig
	llm    llms.Model
	log    *log.Logger
}

func (c *OracleConfig) applyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderOllama
	}
	if c.Model == "" {
		c.Model = "mistral" // Default Ollama model
	}
	if c.BaseURL == "" && c.Provider == ProviderOllama {
		c.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 256
	}
	if c.TerminationToken == "" {
		c.TerminationToken = DefaultTerminationToken
	}
	if c.MaxCandidates == 0 {
		c.MaxCandidates = 100
	}
}

// NewWithConfig creates an Oracle backed by the configured provider.
func NewWithConfig(config OracleConfig) (*Oracle, error) {
	config.applyDefaults()

	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	}

	model, err := newModel(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return New(model, config), nil
}

// New wraps an existing model. Tests use it to inject a scripted model.
func New(model llms.Model, config OracleConfig) *Oracle {
	config.applyDefaults()
	return &Oracle{
		config: config,
		llm:    model,
		log:    logger.OrDefault(config.Logger),
	}
}

func newModel(config OracleConfig) (llms.Model, error) {
	switch strings.ToLower(config.Provider) {
	case ProviderOllama:
		return ollama.New(
			ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL),
		)
	case ProviderOpenAI:
		opts := []openai.Option{
			openai.WithModel(config.Model),
			openai.WithToken(config.APIKey),
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		return openai.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q", config.Provider)
	}
}

// Choose implements types.Oracle.
func (o *Oracle) Choose(ctx context.Context, candidates []string, objective string, visited []string) (models.Selection, error) {
	if len(candidates) == 0 {
		return models.SelectEmpty(), nil
	}
	if len(candidates) > o.config.MaxCandidates {
		candidates = candidates[:o.config.MaxCandidates]
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, fmt.Sprintf(systemPrompt, o.config.TerminationToken, o.config.TerminationToken)),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt(candidates, objective, visited)),
	}

	resp, err := o.llm.GenerateContent(ctx, content,
		llms.WithTemperature(o.config.Temperature),
		llms.WithMaxTokens(o.config.MaxTokens),
	)
	if err != nil {
		return models.SelectEmpty(), fmt.Errorf("oracle error: %w", err)
	}

	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		o.log.Warn("oracle returned no choices")
		return models.SelectEmpty(), nil
	}

	answer := resp.Choices[0].Content
	sel := ParseSelection(answer, o.config.TerminationToken)
	o.log.Debug("oracle decision", "kind", sel.Kind, "url", sel.URL, "raw", answer)
	return sel, nil
}

func userPrompt(candidates []string, objective string, visited []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Objective: %s\n\n", objective)

	b.WriteString("Visited pages, in order:\n")
	if len(visited) == 0 {
		b.WriteString("(none)\n")
	}
	for i, u := range visited {
		fmt.Fprintf(&b, "%d. %s\n", i+1, u)
	}

	b.WriteString("\nCandidate links:\n")
	for _, u := range candidates {
		fmt.Fprintf(&b, "- %s\n", u)
	}

	return b.String()
}

// ParseSelection interprets a free-text model answer. Only the first
// non-empty line counts. The termination token matches case-insensitively
// once quoting and trailing punctuation are stripped; an absolute http(s)
// URL selects that URL; anything else is an empty selection.
func ParseSelection(text, terminationToken string) models.Selection {
	if terminationToken == "" {
		terminationToken = DefaultTerminationToken
	}

	line := firstLine(text)
	if line == "" {
		return models.SelectEmpty()
	}

	line = strings.TrimLeft(line, "-*•> \t")
	line = strings.TrimSpace(line)
	line = strings.Trim(line, "\"'`<>")
	line = trimTrailingPunct(line)
	line = strings.Trim(line, "\"'`<>")
	line = strings.TrimSpace(line)

	if strings.EqualFold(line, terminationToken) {
		return models.SelectTerminate()
	}

	u, err := url.Parse(line)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return models.SelectEmpty()
	}
	return models.SelectURL(u.String())
}

// trimTrailingPunct drops sentence punctuation after an answer. A closing
// parenthesis is kept while it balances one inside the answer.
func trimTrailingPunct(s string) string {
	for s != "" {
		last := s[len(s)-1]
		switch {
		case strings.IndexByte(".,;:!", last) >= 0:
		case last == ')' && strings.Count(s, ")") > strings.Count(s, "("):
		default:
			return s
		}
		s = s[:len(s)-1]
	}
	return s
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
