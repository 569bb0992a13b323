package extractor_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/effective-security/toolchat/extractor"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type call struct {
	Name string
	Args map[string]any
}

func calls(reqs []*tools.CallRequest) []call {
	var res []call
	for _, r := range reqs {
		res = append(res, call{Name: r.Name, Args: r.Arguments})
	}
	return res
}

func TestBatch(t *testing.T) {
	tcases := []struct {
		name string
		text string
		exp  []call
	}{
		{
			name: "whole string",
			text: `{"tool":"get_current_time","arguments":{"timezone":"Asia/Tokyo"}}`,
			exp:  []call{{Name: "get_current_time", Args: map[string]any{"timezone": "Asia/Tokyo"}}},
		},
		{
			name: "fenced",
			text: "```json\n{\n  \"tool\": \"get_current_time\",\n  \"arguments\": {}\n}\n```",
			exp:  []call{{Name: "get_current_time", Args: map[string]any{}}},
		},
		{
			name: "null arguments",
			text: `{"tool":"now","arguments":null}`,
			exp:  []call{{Name: "now", Args: map[string]any{}}},
		},
		{
			name: "embedded in prose",
			text: `Let me check. {"tool":"read_file","arguments":{"path":"/tmp/a.txt"}} Then I will answer.`,
			exp:  []call{{Name: "read_file", Args: map[string]any{"path": "/tmp/a.txt"}}},
		},
		{
			name: "two calls",
			text: `First {"tool":"a","arguments":{"x":1}} and second {"tool":"b","arguments":{"y":"z"}}`,
			exp: []call{
				{Name: "a", Args: map[string]any{"x": json.Number("1")}},
				{Name: "b", Args: map[string]any{"y": "z"}},
			},
		},
		{
			name: "deeply nested",
			text: `call: {"tool":"put","arguments":{"a":{"b":{"c":{"d":[{"e":"}"}]}}}}}`,
			exp: []call{{Name: "put", Args: map[string]any{
				"a": map[string]any{"b": map[string]any{"c": map[string]any{"d": []any{map[string]any{"e": "}"}}}}},
			}}},
		},
		{
			name: "braces in strings",
			text: `{"tool":"echo","arguments":{"text":"a { b \" } c"}}`,
			exp:  []call{{Name: "echo", Args: map[string]any{"text": "a { b \" } c"}}},
		},
		{
			name: "skip objects without keys",
			text: `{"name":"x"} {"tool":"a"} {"arguments":{}} {"tool":"ok","arguments":{}}`,
			exp:  []call{{Name: "ok", Args: map[string]any{}}},
		},
		{
			name: "skip invalid json",
			text: `{tool: a, arguments: {}} {"tool":"ok","arguments":{"q":true}}`,
			exp:  []call{{Name: "ok", Args: map[string]any{"q": true}}},
		},
		{
			name: "unbalanced prefix",
			text: `here { is broken {"tool":"ok","arguments":{}}`,
			exp:  []call{{Name: "ok", Args: map[string]any{}}},
		},
		{
			name: "wrong types",
			text: `{"tool":1,"arguments":{}} {"tool":"","arguments":{}} {"tool":"x","arguments":[1]}`,
		},
		{
			name: "plain text",
			text: "It is 10:00 in Tokyo.",
		},
		{
			name: "empty",
			text: "",
		},
		{
			name: "nested call is not top level",
			text: `{"result":{"tool":"a","arguments":{}}}`,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			reqs := extractor.Batch(tc.text)
			assert.Equal(t, tc.exp, calls(reqs))
			for _, r := range reqs {
				assert.True(t, strings.HasPrefix(r.ID, "call_"))
			}
		})
	}
}

func TestBatchUniqueIDs(t *testing.T) {
	reqs := extractor.Batch(`{"tool":"a","arguments":{}}{"tool":"a","arguments":{}}`)
	require.Len(t, reqs, 2)
	assert.NotEqual(t, reqs[0].ID, reqs[1].ID)
}

func TestBatchLargeIntegers(t *testing.T) {
	reqs := extractor.Batch(`{"tool":"get_order","arguments":{"order_id":9007199254740993,"price":12.50}}`)
	require.Len(t, reqs, 1)
	assert.Equal(t, json.Number("9007199254740993"), reqs[0].Arguments["order_id"])

	assert.Equal(t, `{"order_id":9007199254740993,"price":12.50}`, reqs[0].ArgumentsJSON())

	reqs = extractor.Batch(`Looking up {"tool":"get_order","arguments":{"order_id":9007199254740993}} now`)
	require.Len(t, reqs, 1)
	assert.Equal(t, json.Number("9007199254740993"), reqs[0].Arguments["order_id"])
}

func TestBatchUnclosedBraces(t *testing.T) {
	text := strings.Repeat("{", 100000) + `{"tool":"a","arguments":{}}`

	started := time.Now()
	reqs := extractor.Batch(text)
	elapsed := time.Since(started)

	require.Len(t, reqs, 1)
	assert.Equal(t, "a", reqs[0].Name)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestScanObjects(t *testing.T) {
	all := func(string) bool { return true }
	assert.Equal(t, []string{`{}`, `{"a":{"b":{}}}`}, extractor.ScanObjects(`x {} y {"a":{"b":{}}} z`, all))
	assert.Empty(t, extractor.ScanObjects(`no objects }{`, all))
	assert.Equal(t, []string{`{"a":"}"}`}, extractor.ScanObjects(`{"a":"}"}`, all))
	assert.Equal(t, []string{`{"b":2}`}, extractor.ScanObjects(`{"a": {"b":2}`, gjson.Valid))
	// invalid outer object, valid objects inside
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, extractor.ScanObjects(`{x {"a":1} y {"b":2} }`, gjson.Valid))
	// a raw newline ends an unterminated string
	assert.Equal(t, []string{`{"c":3}`}, extractor.ScanObjects("{ it's \"odd\n{\"c\":3}", gjson.Valid))
	assert.Empty(t, extractor.ScanObjects(strings.Repeat("{", 1000), all))
}

func TestParseArguments(t *testing.T) {
	assert.Equal(t, map[string]any{}, extractor.ParseArguments(""))
	assert.Equal(t, map[string]any{}, extractor.ParseArguments(" null "))
	assert.Equal(t, map[string]any{"a": "b"}, extractor.ParseArguments(`{"a":"b"}`))
	assert.Equal(t, map[string]any{"input": `{"a":`}, extractor.ParseArguments(`{"a":`))
	assert.Equal(t, map[string]any{"input": `[1]`}, extractor.ParseArguments(`[1]`))
	assert.Equal(t, map[string]any{"input": `{"a":1}}`}, extractor.ParseArguments(`{"a":1}}`))
	assert.Equal(t, map[string]any{"id": json.Number("9007199254740993")}, extractor.ParseArguments(`{"id":9007199254740993}`))
}

func TestFromToolCalls(t *testing.T) {
	reqs := extractor.FromToolCalls([]llms.ToolCall{
		{ID: "1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "a", Arguments: `{"x":"y"}`}},
		{ID: "2", Type: "function"},
		{Type: "function", FunctionCall: &llms.FunctionCall{Name: "b", Arguments: `oops`}},
	})
	require.Len(t, reqs, 2)
	assert.Equal(t, "1", reqs[0].ID)
	assert.Equal(t, map[string]any{"x": "y"}, reqs[0].Arguments)
	assert.Equal(t, "b", reqs[1].Name)
	assert.True(t, strings.HasPrefix(reqs[1].ID, "call_"))
	assert.Equal(t, map[string]any{"input": "oops"}, reqs[1].Arguments)

	assert.Empty(t, extractor.FromToolCalls(nil))
}
