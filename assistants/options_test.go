package assistants_test

import (
	"testing"

	"github.com/effective-security/toolchat/assistants"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/stretchr/testify/assert"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := assistants.NewConfig()
	assert.Equal(t, assistants.DefaultMaxIterations, cfg.MaxIterations)
	assert.True(t, cfg.ProcessTools)
	assert.False(t, cfg.Streaming)
	assert.Nil(t, cfg.CallbackHandler)
	assert.Empty(t, cfg.GetCallOptions(nil))
}

func TestConfig_CallOptions(t *testing.T) {
	cfg := assistants.NewConfig(
		assistants.WithModelName("gpt-4o"),
		assistants.WithMaxTokens(100),
		assistants.WithTemperature(0),
		assistants.WithCallOptions(llms.WithSeed(7)),
	)
	tools := []llms.Tool{{Type: "function", Function: &llms.FunctionDefinition{Name: "t"}}}

	opts := llms.NewCallOptions(cfg.GetCallOptions(tools)...)
	assert.Equal(t, "gpt-4o", opts.Model)
	assert.Equal(t, 100, opts.MaxTokens)
	assert.Equal(t, 0.0, opts.Temperature)
	assert.Equal(t, 7, opts.Seed)
	assert.Equal(t, tools, opts.Tools)

	// empty model name is not sent
	cfg = assistants.NewConfig(assistants.WithModelName(""))
	assert.Empty(t, cfg.GetCallOptions(nil))
}

func TestConfig_Apply(t *testing.T) {
	base := assistants.NewConfig(
		assistants.WithMaxIterations(3),
		assistants.WithCallOptions(llms.WithSeed(1)),
	)
	cp := base.Apply(
		assistants.WithMaxIterations(10),
		assistants.WithStreaming(true),
		assistants.WithProcessTools(false),
		assistants.WithCallOptions(llms.WithTopP(0.5)),
	)

	assert.Equal(t, 10, cp.MaxIterations)
	assert.True(t, cp.Streaming)
	assert.False(t, cp.ProcessTools)
	assert.Len(t, cp.CallOptions, 2)

	assert.Equal(t, 3, base.MaxIterations)
	assert.False(t, base.Streaming)
	assert.True(t, base.ProcessTools)
	assert.Len(t, base.CallOptions, 1)
}
