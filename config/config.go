// Package config loads the chat client configuration.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/assistants"
	"github.com/effective-security/toolchat/dispatcher"
	"github.com/effective-security/toolchat/mcp"
	"github.com/effective-security/toolchat/pkg/llmfactory"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
	"github.com/go-playground/validator/v10"
)

// Environment variables that override the configured model provider.
const (
	EnvAPIKey    = "LLM_API_KEY" //nolint:gosec
	EnvAPIURL    = "LLM_API_URL"
	EnvModelName = "LLM_MODEL_NAME"
	EnvModelType = "LLM_MODEL_TYPE"
)

// EnvProviderName is the name of the provider built from LLM_* variables.
const EnvProviderName = "env"

// Config of the chat client.
type Config struct {
	// MCPServers maps a server name to its launch parameters
	MCPServers map[string]*mcp.ServerConfig `json:"mcpServers,omitempty" yaml:"mcpServers,omitempty" toml:"mcpServers" validate:"dive"`
	// LocalTools lists in-process tools to enable: get_current_time, web_search
	LocalTools []string `json:"local_tools,omitempty" yaml:"local_tools,omitempty" toml:"local_tools" validate:"dive,oneof=get_current_time web_search"`
	// LLM specifies the model providers
	LLM llmfactory.Config `json:"llm" yaml:"llm" toml:"llm"`
	// Engine specifies the tool loop tunables
	Engine Engine `json:"engine" yaml:"engine" toml:"engine"`
	// SystemPrompt is appended to the generated tool instructions
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty" toml:"system_prompt"`
}

// Engine holds the tool loop tunables.
type Engine struct {
	MaxIterations   int      `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty" toml:"max_iterations" validate:"gte=0"`
	MaxAttempts     int      `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty" toml:"max_attempts" validate:"gte=0"`
	RetryDelay      Duration `json:"retry_delay,omitempty" yaml:"retry_delay,omitempty" toml:"retry_delay"`
	RetryMultiplier float64  `json:"retry_multiplier,omitempty" yaml:"retry_multiplier,omitempty" toml:"retry_multiplier" validate:"gte=0"`
	CallTimeout     Duration `json:"call_timeout,omitempty" yaml:"call_timeout,omitempty" toml:"call_timeout"`
	Streaming       bool     `json:"streaming,omitempty" yaml:"streaming,omitempty" toml:"streaming"`
	// ProcessTools is enabled when not specified
	ProcessTools *bool `json:"process_tools,omitempty" yaml:"process_tools,omitempty" toml:"process_tools"`
}

// Duration is a time.Duration expressed as "1s", "500ms" in config files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "invalid duration")
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// RetryPolicy returns the dispatcher retry policy with defaults applied.
func (e *Engine) RetryPolicy() dispatcher.RetryPolicy {
	p := dispatcher.RetryPolicy{
		MaxAttempts: values.NumbersCoalesce(e.MaxAttempts, dispatcher.DefaultMaxAttempts),
		Delay:       time.Duration(e.RetryDelay),
		Multiplier:  e.RetryMultiplier,
	}
	if p.Delay <= 0 {
		p.Delay = dispatcher.DefaultRetryDelay
	}
	return p
}

// DispatcherOptions returns the dispatcher options.
func (e *Engine) DispatcherOptions() []dispatcher.Option {
	opts := []dispatcher.Option{
		dispatcher.WithRetryPolicy(e.RetryPolicy()),
	}
	if e.CallTimeout > 0 {
		opts = append(opts, dispatcher.WithCallTimeout(time.Duration(e.CallTimeout)))
	}
	return opts
}

// ControllerOptions returns the controller options.
func (e *Engine) ControllerOptions() []assistants.Option {
	processTools := e.ProcessTools == nil || *e.ProcessTools
	return []assistants.Option{
		assistants.WithMaxIterations(values.NumbersCoalesce(e.MaxIterations, assistants.DefaultMaxIterations)),
		assistants.WithStreaming(e.Streaming),
		assistants.WithProcessTools(processTools),
	}
}

// Load returns the configuration from the file,
// the format is chosen by the extension: .toml, .yaml, .yml or .json.
// An empty file name returns the configuration from the environment only.
func Load(file string) (*Config, error) {
	cfg := new(Config)
	if file != "" {
		var err error
		switch strings.ToLower(filepath.Ext(file)) {
		case ".toml":
			err = loadTOML(file, cfg)
		default:
			err = configloader.UnmarshalAndExpand(file, cfg)
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to load %s", file)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadTOML(file string, cfg *Config) error {
	b, err := os.ReadFile(file)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = toml.Decode(os.ExpandEnv(string(b)), cfg)
	return errors.WithStack(err)
}

// applyEnv adds the provider described by LLM_* variables and makes it the default.
func (c *Config) applyEnv() {
	apiKey := os.Getenv(EnvAPIKey)
	modelType := os.Getenv(EnvModelType)
	if apiKey == "" && modelType == "" {
		return
	}

	apiType := strings.ToUpper(values.StringsCoalesce(modelType, llmfactory.APITypeOpenAI))
	p := &llmfactory.ProviderConfig{
		Name:         EnvProviderName,
		APIType:      apiType,
		Token:        apiKey,
		BaseURL:      os.Getenv(EnvAPIURL),
		DefaultModel: os.Getenv(EnvModelName),
	}
	if p.DefaultModel != "" {
		p.AvailableModels = []string{p.DefaultModel}
	}

	providers := []*llmfactory.ProviderConfig{p}
	for _, existing := range c.LLM.Providers {
		if existing.Name != EnvProviderName {
			providers = append(providers, existing)
		}
	}
	c.LLM.Providers = providers
	c.LLM.DefaultProvider = EnvProviderName
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	if c.LLM.DefaultProvider != "" {
		for _, p := range c.LLM.Providers {
			if p.Name == c.LLM.DefaultProvider {
				return nil
			}
		}
		return errors.Newf("invalid configuration: default provider %q not found", c.LLM.DefaultProvider)
	}
	return nil
}
