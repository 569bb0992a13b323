package assistants

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/tools"
)

// ErrMaxIterations is the abort reason when the model keeps requesting
// tools after the iteration bound is reached.
var ErrMaxIterations = errors.New("maximum tool iterations reached")

// Result is the outcome of a run.
type Result struct {
	// State is StateDone or StateAborted
	State State
	// Answer is the final model text, empty when aborted
	Answer string
	// Reason is set when aborted
	Reason error
	// ModelCalls is the number of model calls made
	ModelCalls int
	// Iterations is the number of tool dispatch rounds
	Iterations int
	// Outcomes of all tool calls, in the order they were appended
	Outcomes []*tools.CallOutcome
	// PendingCalls are tool calls returned as is when tool processing is disabled
	PendingCalls []*tools.CallRequest
}

// Aborted returns true if the run ended without an answer.
func (r *Result) Aborted() bool {
	return r.State == StateAborted
}
