package llmutils_test

import (
	"strings"
	"testing"

	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/pkg/llmutils"
	"github.com/stretchr/testify/assert"
)

func Test_TrimBackticks(t *testing.T) {
	expected := "{\"tool\": \"get_current_time\", \"arguments\": {}}"

	assert.Equal(t, expected, llmutils.TrimBackticks("\n```json\n\n{\"tool\": \"get_current_time\", \"arguments\": {}}\n\n```\n\n"))
	// the same
	assert.Equal(t, expected, llmutils.TrimBackticks(expected))
	assert.Equal(t, expected, llmutils.TrimBackticks("\n```\n\n{\"tool\": \"get_current_time\", \"arguments\": {}}\n\n```\n\n"))
	assert.Equal(t, expected, llmutils.TrimBackticks("\n```{\"tool\": \"get_current_time\", \"arguments\": {}}\n\n```\n\n"))
	// unterminated fence
	assert.Equal(t, expected, llmutils.TrimBackticks("```json\n{\"tool\": \"get_current_time\", \"arguments\": {}}\n"))
}

func Test_BackticksJSON(t *testing.T) {
	json := "{\"city\": \"Paris\"}"
	assert.Equal(t, "\n```json\n{\"city\": \"Paris\"}\n```\n", llmutils.BackticksJSON(json))
}

func Test_EnsureNewline(t *testing.T) {
	assert.Equal(t, "", llmutils.EnsureEndsWithNewline(" \n"))
	assert.Equal(t, "Hello\n", llmutils.EnsureEndsWithNewline(" \nHello"))
	assert.Equal(t, "Hello\n", llmutils.EnsureEndsWithNewline("\nHello\n"))
	assert.Equal(t, "Hello\n", llmutils.EnsureEndsWithNewline("Hello\n\n\n"))
}

func Test_JSONIndent(t *testing.T) {
	input := `{"name":"John","age":30}`
	expected := "{\n\t\"name\": \"John\",\n\t\"age\": 30\n}"
	assert.Equal(t, expected, llmutils.JSONIndent(input))
}

func Test_ToJSON(t *testing.T) {
	type Person struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	p := Person{Name: "John", Age: 30}
	assert.Equal(t, `{"name":"John","age":30}`, llmutils.ToJSON(p))
	assert.Equal(t, "{\n\t\"name\": \"John\",\n\t\"age\": 30\n}", llmutils.ToJSONIndent(p))
}

func Test_ToYAML(t *testing.T) {
	type Person struct {
		Name string `yaml:"name"`
		Age  int    `yaml:"age"`
	}
	p := Person{Name: "John", Age: 30}
	assert.Equal(t, "name: John\nage: 30\n", llmutils.ToYAML(p))
}

func Test_CountMessagesContentSize(t *testing.T) {
	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "hello"),
		llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{ID: "1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "t", Arguments: "{}"}}),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "1", Name: "t", Content: "ok"}),
	}
	// human(5)+hello(5) + ai(2)+1+function(8)+t(1)+{}(2) + tool(4)+1+t(1)+ok(2)
	assert.Equal(t, uint64(32), llmutils.CountMessagesContentSize(msgs))

	resp := &llms.ContentResponse{Choices: []*llms.ContentChoice{
		{Content: "abc", ToolCalls: []llms.ToolCall{{ID: "1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "t", Arguments: "{}"}}}},
	}}
	assert.Equal(t, uint64(15), llmutils.CountResponseContentSize(resp))
}

func TestPrintMessages(t *testing.T) {
	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "be nice"),
		llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{ID: "1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "t", Arguments: "{}"}}),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "1", Name: "t", Content: "ok"}),
		{Role: llms.RoleAI},
	}
	var buf strings.Builder
	llmutils.PrintMessages(&buf, msgs)
	exp := `SYSTEM: be nice
AI: ToolCall ID=1, Type=function, Func=t({})
TOOL: ToolCallResponse ID=1, Name=t, Content=ok
AI: 
`
	assert.Equal(t, exp, buf.String())
}
