package tools

import (
	"context"
	"encoding/json"

	"github.com/effective-security/toolchat/pkg/llmutils"
	"github.com/invopop/jsonschema"
)

//go:generate mockgen -package mocktools -destination ../mocks/mocktools/tools_mock.gen.go github.com/effective-security/toolchat/tools Session,Callback,ITool

// Descriptor describes a tool to the model.
// InputSchema is used only for prompting, arguments are not validated against it.
type Descriptor struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	InputSchema *jsonschema.Schema `json:"input_schema,omitempty" yaml:"input_schema,omitempty"`
}

// CallRequest is a tool invocation requested by the model.
// ID is unique within one assistant turn.
type CallRequest struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ArgumentsJSON returns the arguments as JSON object text.
func (r *CallRequest) ArgumentsJSON() string {
	if len(r.Arguments) == 0 {
		return "{}"
	}
	js, err := json.Marshal(r.Arguments)
	if err != nil {
		return "{}"
	}
	return string(js)
}

// CallOutcome is the resolved result of one CallRequest:
// either Result on success or Err on failure, never both.
type CallOutcome struct {
	Request *CallRequest `json:"request"`
	// Result is the opaque success payload
	Result string `json:"result,omitempty"`
	// Err is a human readable failure description
	Err string `json:"error,omitempty"`
	// Attempts is the number of times the tool was invoked,
	// zero when the tool was never resolved.
	Attempts int `json:"attempts"`

	failed bool
}

// NewResult returns a successful outcome.
func NewResult(req *CallRequest, result string, attempts int) *CallOutcome {
	return &CallOutcome{
		Request:  req,
		Result:   result,
		Attempts: attempts,
	}
}

// NewFailure returns a failed outcome.
func NewFailure(req *CallRequest, errMsg string, attempts int) *CallOutcome {
	if errMsg == "" {
		errMsg = "tool call failed"
	}
	return &CallOutcome{
		Request:  req,
		Err:      errMsg,
		Attempts: attempts,
		failed:   true,
	}
}

// Failed returns true if the outcome carries an error.
func (o *CallOutcome) Failed() bool {
	return o.failed || o.Err != ""
}

// Content returns the text sent back to the model as the tool result.
func (o *CallOutcome) Content() string {
	if o.Failed() {
		return "Error: " + o.Err
	}
	return o.Result
}

// Session is a connection to a tool provider.
type Session interface {
	// ListTools returns the tools exposed by the provider.
	ListTools(ctx context.Context) ([]*Descriptor, error)
	// ExecuteTool invokes a tool and returns its textual result.
	ExecuteTool(ctx context.Context, name string, arguments map[string]any) (string, error)
	// Cleanup releases the session. It must be safe to call
	// even if the session was never used, and more than once.
	Cleanup(ctx context.Context) error
}

// Callback observes every tool invocation attempt.
type Callback interface {
	OnToolStart(ctx context.Context, req *CallRequest, attempt int)
	OnToolEnd(ctx context.Context, req *CallRequest, attempt int, result string)
	OnToolError(ctx context.Context, req *CallRequest, attempt int, err error)
	OnToolNotFound(ctx context.Context, req *CallRequest)
}

// ITool is an in-process tool.
type ITool interface {
	// Name returns the name of the Tool.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	Description() string
	// Parameters returns the input schema of the tool.
	Parameters() *jsonschema.Schema
	// Call invokes the tool with JSON input.
	Call(ctx context.Context, input string) (string, error)
}

// Tool is an in-process tool with typed input and output.
type Tool[I any, O any] interface {
	ITool
	Run(context.Context, *I) (*O, error)
}

type toolDescription struct {
	Name        string `json:"Name" yaml:"Name"`
	Session     string `json:"Session,omitempty" yaml:"Session,omitempty"`
	Description string `json:"Description" yaml:"Description"`
}

type toolsDescription struct {
	Tools []toolDescription `json:"Tools" yaml:"Tools"`
}

// GetDescriptions returns a printable list of registered tools.
func GetDescriptions(r *Registry) string {
	var d toolsDescription
	for _, desc := range r.Descriptors() {
		e, _ := r.Resolve(desc.Name)
		d.Tools = append(d.Tools, toolDescription{
			Name:        desc.Name,
			Session:     e.SessionID,
			Description: desc.Description,
		})
	}
	return llmutils.BackticksJSON(llmutils.ToJSONIndent(d))
}
