package prompts_test

import (
	"strings"
	"testing"

	"github.com/effective-security/toolchat/pkg/prompts"
	"github.com/effective-security/toolchat/tools"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemPrompt(t *testing.T) {
	props := jsonschema.NewProperties()
	props.Set("timezone", &jsonschema.Schema{Type: "string", Description: "IANA time zone"})
	props.Set("format", &jsonschema.Schema{Type: "string"})

	descs := []*tools.Descriptor{
		{
			Name:        "get_current_time",
			Description: "Returns the current time.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: props,
				Required:   []string{"timezone"},
			},
		},
		{
			Name: "ping",
		},
	}

	prompt, err := prompts.SystemPrompt(descs, "  Answer in English.\n")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(prompt, "You are a helpful assistant with access to these tools:\n\n"))
	assert.Contains(t, prompt, "Tool: get_current_time\n"+
		"Description: Returns the current time.\n"+
		"Arguments:\n"+
		"- timezone: IANA time zone (required)\n"+
		"- format: No description\n"+
		"\n"+
		"Tool: ping\n"+
		"Description: No description\n"+
		"Arguments:\n"+
		"\n"+
		"Choose the appropriate tool")
	assert.Contains(t, prompt, `"tool": "tool-name"`)
	assert.True(t, strings.HasSuffix(prompt, "explicitly defined above.\n\nAnswer in English."))

	prompt, err = prompts.SystemPrompt(nil, "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(prompt, "explicitly defined above."))
	assert.NotContains(t, prompt, "Tool:")
}
