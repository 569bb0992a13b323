package assistants

import (
	"context"

	"github.com/effective-security/toolchat/pkg/llms"
)

// DefaultMaxIterations is the default bound of tool dispatch rounds per run.
const DefaultMaxIterations = 5

// Option is a function that can be used to modify the behavior of the Config.
type Option func(*Config)

// Config of the controller.
type Config struct {
	// MaxIterations bounds the tool dispatch rounds, and so the model calls, of one run.
	MaxIterations int
	// Streaming requests streamed model output, if the model supports it.
	Streaming bool
	// ProcessTools enables tool execution, when disabled
	// the first model response is returned as is.
	ProcessTools bool

	// Model is the model name to use in an LLM call.
	Model    string
	modelSet bool

	// MaxTokens is the maximum number of tokens to generate to use in an LLM call.
	MaxTokens    int
	maxTokensSet bool

	// Temperature is the temperature for sampling to use in an LLM call, between 0 and 1.
	Temperature    float64
	temperatureSet bool

	// CallOptions are passed to every model call after the options above.
	CallOptions []llms.CallOption

	// CallbackHandler receives run and tool events
	CallbackHandler Callback

	// StreamingFunc is a function to be called for each text chunk of a streaming response.
	// Return an error to stop streaming early.
	StreamingFunc func(ctx context.Context, chunk []byte) error
}

// NewConfig returns the config with defaults and applied options.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		MaxIterations: DefaultMaxIterations,
		ProcessTools:  true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Apply returns a copy of the config with options applied.
func (c *Config) Apply(opts ...Option) *Config {
	cp := *c
	cp.CallOptions = append([]llms.CallOption(nil), c.CallOptions...)
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// WithMaxIterations sets the bound of tool dispatch rounds.
func WithMaxIterations(n int) Option {
	return func(o *Config) {
		o.MaxIterations = n
	}
}

// WithStreaming enables streamed model output.
func WithStreaming(streaming bool) Option {
	return func(o *Config) {
		o.Streaming = streaming
	}
}

// WithProcessTools enables or disables tool execution.
func WithProcessTools(process bool) Option {
	return func(o *Config) {
		o.ProcessTools = process
	}
}

// WithModelName is an option for LLM.Call.
func WithModelName(model string) Option {
	return func(o *Config) {
		o.Model = model
		o.modelSet = model != ""
	}
}

// WithMaxTokens is an option for LLM.Call.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Config) {
		o.MaxTokens = maxTokens
		o.maxTokensSet = true
	}
}

// WithTemperature is an option for LLM.Call.
func WithTemperature(temperature float64) Option {
	return func(o *Config) {
		o.Temperature = temperature
		o.temperatureSet = true
	}
}

// WithCallOptions adds options for LLM.Call.
func WithCallOptions(opts ...llms.CallOption) Option {
	return func(o *Config) {
		o.CallOptions = append(o.CallOptions, opts...)
	}
}

// WithCallback sets the callback handler.
func WithCallback(callbackHandler Callback) Option {
	return func(o *Config) {
		o.CallbackHandler = callbackHandler
	}
}

// WithStreamingFunc is an option for LLM.Call that allows streaming responses.
func WithStreamingFunc(streamingFunc func(ctx context.Context, chunk []byte) error) Option {
	return func(o *Config) {
		o.StreamingFunc = streamingFunc
	}
}

// GetCallOptions returns the options for a model call.
func (c *Config) GetCallOptions(tools []llms.Tool) []llms.CallOption {
	var callOptions []llms.CallOption
	if c.modelSet {
		callOptions = append(callOptions, llms.WithModel(c.Model))
	}
	if c.maxTokensSet {
		callOptions = append(callOptions, llms.WithMaxTokens(c.MaxTokens))
	}
	if c.temperatureSet {
		callOptions = append(callOptions, llms.WithTemperature(c.Temperature))
	}
	if len(tools) > 0 {
		callOptions = append(callOptions, llms.WithTools(tools))
	}
	callOptions = append(callOptions, c.CallOptions...)
	return callOptions
}
