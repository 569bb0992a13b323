// Package assistants provides the tool loop controller: it calls the model,
// extracts tool calls from the response, dispatches them and feeds the
// outcomes back to the model until it produces a final answer or the
// iteration bound is reached.
package assistants
