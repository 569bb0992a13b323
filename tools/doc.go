// Package tools defines tool descriptors, tool call requests and outcomes,
// the tool-provider Session interface and the immutable Registry that maps a
// tool name to the session which owns it.
package tools
