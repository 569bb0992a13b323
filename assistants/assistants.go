package assistants

import (
	"context"

	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/tools"
)

// State is the state of the tool loop.
type State int

const (
	// StateAwaitingModel is waiting for the model output
	StateAwaitingModel State = iota
	// StateExtractingCalls is extracting tool calls from the model output
	StateExtractingCalls
	// StateDispatchingTools is executing the extracted tool calls
	StateDispatchingTools
	// StateDone is the terminal state with a final answer
	StateDone
	// StateAborted is the terminal state without an answer
	StateAborted
)

var stateNames = map[State]string{
	StateAwaitingModel:    "awaiting_model",
	StateExtractingCalls:  "extracting_calls",
	StateDispatchingTools: "dispatching_tools",
	StateDone:             "done",
	StateAborted:          "aborted",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Callback receives the events of a run.
type Callback interface {
	tools.Callback
	OnRunStart(ctx context.Context, input string)
	// OnModelCallStart is called before each model call, call is 1-based
	OnModelCallStart(ctx context.Context, call int, messages []llms.Message)
	OnModelCallEnd(ctx context.Context, call int, text string, reqs []*tools.CallRequest)
	OnRunEnd(ctx context.Context, res *Result)
	OnRunError(ctx context.Context, res *Result, err error)
}
