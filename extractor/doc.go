// Package extractor turns model output into tool call requests.
//
// Batch mode parses a complete text response: either the whole text is one
// {"tool": ..., "arguments": {...}} object, or such objects are found by a
// balanced-brace scan of the text.
//
// Streaming mode accumulates slot-indexed tool call fragments and produces
// one request per slot once the stream is complete.
package extractor
