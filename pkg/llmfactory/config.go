package llmfactory

import (
	"slices"

	"github.com/effective-security/x/configloader"
)

// Provider API types.
const (
	APITypeOpenAI    = "OPENAI"
	APITypeDeepSeek  = "DEEPSEEK"
	APITypeAnthropic = "ANTHROPIC"
)

type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers" toml:"providers" validate:"dive"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider,omitempty" yaml:"default_provider,omitempty" toml:"default_provider"`
}

// ProviderConfig describes one model endpoint.
type ProviderConfig struct {
	Name string `json:"name" yaml:"name" toml:"name" validate:"required"`
	// APIType specifies the type of API to use: OPENAI|DEEPSEEK|ANTHROPIC
	APIType         string   `json:"api_type" yaml:"api_type" toml:"api_type" validate:"required,oneof=OPENAI OPEN_AI DEEPSEEK ANTHROPIC"`
	Token           string   `json:"token,omitempty" yaml:"token,omitempty" toml:"token"`
	BaseURL         string   `json:"base_url,omitempty" yaml:"base_url,omitempty" toml:"base_url" validate:"omitempty,url"`
	DefaultModel    string   `json:"default_model,omitempty" yaml:"default_model,omitempty" toml:"default_model"`
	AvailableModels []string `json:"available_models,omitempty" yaml:"available_models,omitempty" toml:"available_models"`
}

// FindModel returns the first of models available at the provider,
// or the provider's default model.
func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
