// Package mcp connects to Model Context Protocol servers launched as child
// processes and exposes them as tool sessions.
package mcp
