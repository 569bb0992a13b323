package extractor

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/pkg/llmutils"
	"github.com/effective-security/toolchat/pkg/metricskey"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "extractor")

const (
	keyTool      = "tool"
	keyArguments = "arguments"
	keyInput     = "input"
)

// NewCallID returns a generated call ID.
func NewCallID() string {
	return "call_" + uuid.NewString()
}

// Batch extracts tool calls from a complete text response.
// No requests means the text is a final answer.
func Batch(text string) []*tools.CallRequest {
	body := strings.TrimSpace(llmutils.TrimBackticks(text))
	if req := parseCall(body); req != nil {
		metricskey.StatsToolCallsExtracted.IncrCounter(1, "batch")
		return []*tools.CallRequest{req}
	}

	var res []*tools.CallRequest
	for _, obj := range ScanObjects(text, gjson.Valid) {
		if req := parseCall(obj); req != nil {
			res = append(res, req)
		}
	}
	if len(res) > 0 {
		metricskey.StatsToolCallsExtracted.IncrCounter(float64(len(res)), "batch")
		logger.KV(xlog.DEBUG, "status", "extracted", "calls", len(res))
	}
	return res
}

// parseCall returns a request if s is a JSON object with
// a non-empty string "tool" and an object "arguments".
func parseCall(s string) *tools.CallRequest {
	if !gjson.Valid(s) {
		return nil
	}
	obj := gjson.Parse(s)
	if !obj.IsObject() {
		return nil
	}
	tool := obj.Get(keyTool)
	args := obj.Get(keyArguments)
	if !tool.Exists() || !args.Exists() {
		return nil
	}
	if tool.Type != gjson.String || tool.Str == "" {
		return nil
	}

	arguments := map[string]any{}
	switch {
	case args.Type == gjson.Null:
	case args.IsObject():
		if err := decodeObject(args.Raw, &arguments); err != nil {
			return nil
		}
	default:
		return nil
	}

	return &tools.CallRequest{
		ID:        NewCallID(),
		Name:      tool.Str,
		Arguments: arguments,
	}
}

// ParseArguments decodes argument text of a native tool call.
// Empty text is an empty object, text that is not a JSON object
// is wrapped under the "input" key.
func ParseArguments(raw string) map[string]any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := decodeObject(trimmed, &args); err != nil || args == nil {
		if trimmed == "null" {
			return map[string]any{}
		}
		return map[string]any{keyInput: raw}
	}
	return args
}

// decodeObject decodes s keeping numbers as json.Number,
// so integers above 2^53 reach the tool unchanged.
func decodeObject(s string, v *map[string]any) error {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}
