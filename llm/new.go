package llm

import (
	"fmt"

	"sublet-scraper/config"
	"sublet-scraper/utils"
)

// New builds the Extractor selected by LLM_PROVIDER.
func New(cfg *config.Config, logger *utils.Logger) (*Client, error) {
	switch cfg.LLMProvider {
	case "anthropic":
		return NewClient(NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel), logger), nil
	case "cohere":
		return NewClient(NewCohere(cfg.CohereAPIKey, cfg.CohereModel), logger), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
