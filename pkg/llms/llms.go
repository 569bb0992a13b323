package llms

import (
	"context"
)

//go:generate mockgen -package mockllms -destination ../../mocks/mockllms/llms_mock.gen.go github.com/effective-security/toolchat/pkg/llms Model,StreamingModel,FragmentStream

// ProviderType is the type of provider.
type ProviderType string

const (
	// ProviderAnthropic is the Anthropic Messages API.
	ProviderAnthropic ProviderType = "ANTHROPIC"
	// ProviderOpenAI is the OpenAI Chat Completions API.
	ProviderOpenAI ProviderType = "OPENAI"
	// ProviderDeepSeek is an OpenAI compatible Chat Completions API.
	ProviderDeepSeek ProviderType = "DEEPSEEK"
)

// Model is an interface models implement.
type Model interface {
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// GenerateContent asks the model to generate content from a sequence of
	// messages in one shot.
	GenerateContent(ctx context.Context, messages []Message, options ...CallOption) (*ContentResponse, error)
}

// StreamingModel is a Model that can also return its output
// as an incremental sequence of fragments.
type StreamingModel interface {
	Model
	// StreamContent starts a streaming generation.
	// The caller must Close the returned stream.
	StreamContent(ctx context.Context, messages []Message, options ...CallOption) (FragmentStream, error)
}

// Capability is a bitmask indicating supported features of an LLM provider.
type Capability uint64

const (
	// CapabilityText is basic text or chat generation
	CapabilityText Capability = 1 << iota
	// CapabilityFunctionCalling is native function/tool calling
	CapabilityFunctionCalling
	// CapabilityMultiToolCalling is several tool calls per turn
	CapabilityMultiToolCalling
	// CapabilityToolCallStreaming is streamed tool call fragments
	CapabilityToolCallStreaming
	// CapabilitySystemPrompt is system prompt support
	CapabilitySystemPrompt
)

var providerCapabilities = map[ProviderType]Capability{
	ProviderOpenAI: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilityToolCallStreaming |
		CapabilitySystemPrompt,

	ProviderDeepSeek: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilityToolCallStreaming |
		CapabilitySystemPrompt,

	ProviderAnthropic: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilityToolCallStreaming |
		CapabilitySystemPrompt,
}

// ProviderCapabilities returns the capabilities of the provider.
func ProviderCapabilities(pt ProviderType) Capability {
	return providerCapabilities[pt]
}

// Supports returns true if the provider supports the capability.
func (p ProviderType) Supports(cap Capability) bool {
	return ProviderCapabilities(p)&cap != 0
}
