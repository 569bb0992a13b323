// Package prompts renders the prompts sent to the model.
package prompts

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/pkg/schema"
	"github.com/effective-security/toolchat/tools"
)

const systemPromptText = `You are a helpful assistant with access to these tools:
{{ range .Tools }}
Tool: {{ .Name }}
Description: {{ .Description | default "No description" }}
Arguments:
{{- range .Arguments }}
- {{ .Name }}: {{ .Description | default "No description" }}{{ if .Required }} (required){{ end }}
{{- end }}
{{ end }}
Choose the appropriate tool based on the user's question. If no tool is needed, reply directly.

IMPORTANT: When you need to use a tool, you must ONLY respond with the exact JSON object format below, nothing else:
{
    "tool": "tool-name",
    "arguments": {
        "argument-name": "value"
    }
}
To call several tools at once, respond with one such JSON object per tool.

After receiving a tool's response:
1. Transform the raw data into a natural, conversational response
2. Keep responses concise but informative
3. Focus on the most relevant information
4. Use appropriate context from the user's question
5. Avoid simply repeating the raw data

Please use only the tools that are explicitly defined above.
{{- with .Instructions }}

{{ . | trim }}
{{- end }}`

var systemPrompt = template.Must(template.New("system").Funcs(sprig.TxtFuncMap()).Parse(systemPromptText))

type toolView struct {
	Name        string
	Description string
	Arguments   []schema.ArgumentDoc
}

// SystemPrompt returns the system prompt describing the tools
// and the JSON format of a tool call, followed by optional instructions.
func SystemPrompt(descriptors []*tools.Descriptor, instructions string) (string, error) {
	data := struct {
		Tools        []toolView
		Instructions string
	}{
		Instructions: strings.TrimSpace(instructions),
	}
	for _, d := range descriptors {
		data.Tools = append(data.Tools, toolView{
			Name:        d.Name,
			Description: d.Description,
			Arguments:   schema.Arguments(d.InputSchema),
		})
	}

	var b strings.Builder
	if err := systemPrompt.Execute(&b, data); err != nil {
		return "", errors.Wrap(err, "failed to render system prompt")
	}
	return b.String(), nil
}
