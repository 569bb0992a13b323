// Package llms provides the provider-neutral model interface used by the tool loop.
//
// The `llms.go` file contains the Model and StreamingModel interfaces.
//
// The `generatecontent.go` file contains the message and content part types.
//
// The `stream.go` file contains the fragment stream returned by streaming models,
// where tool call fragments are tagged by slot index.
//
// The `options.go` file provides the call options.
package llms
