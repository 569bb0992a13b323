package extractor

import (
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/pkg/metricskey"
	"github.com/effective-security/toolchat/tools"
)

// FromToolCalls normalizes native tool calls of a batch response.
func FromToolCalls(calls []llms.ToolCall) []*tools.CallRequest {
	var res []*tools.CallRequest
	for _, tc := range calls {
		if tc.FunctionCall == nil || tc.FunctionCall.Name == "" {
			continue
		}
		id := tc.ID
		if id == "" {
			id = NewCallID()
		}
		res = append(res, &tools.CallRequest{
			ID:        id,
			Name:      tc.FunctionCall.Name,
			Arguments: ParseArguments(tc.FunctionCall.Arguments),
		})
	}
	if len(res) > 0 {
		metricskey.StatsToolCallsExtracted.IncrCounter(float64(len(res)), "native")
	}
	return res
}
