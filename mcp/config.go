package mcp

import (
	"maps"
	"os"
	"os/exec"
	"slices"

	"github.com/cockroachdb/errors"
)

// ServerConfig holds the launch parameters of one MCP server.
type ServerConfig struct {
	Command string            `json:"command" yaml:"command" toml:"command" validate:"required"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty" toml:"args"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty" toml:"env"`
}

// lookPath is replaced in tests
var lookPath = exec.LookPath

// ResolveCommand returns the executable to launch.
// `npx` is resolved through PATH, other commands are used as is.
func (c *ServerConfig) ResolveCommand() (string, error) {
	if c.Command == "" {
		return "", errors.New("command is required")
	}
	if c.Command != "npx" {
		return c.Command, nil
	}
	path, err := lookPath(c.Command)
	if err != nil {
		return "", errors.Wrapf(err, "unable to resolve %s", c.Command)
	}
	return path, nil
}

// Environ returns the process environment with the configured overrides,
// sorted by key.
func (c *ServerConfig) Environ() []string {
	env := os.Environ()
	for _, k := range slices.Sorted(maps.Keys(c.Env)) {
		env = append(env, k+"="+c.Env[k])
	}
	return env
}

// command builds the child process for the server.
func (c *ServerConfig) command() (*exec.Cmd, error) {
	path, err := c.ResolveCommand()
	if err != nil {
		return nil, err
	}
	// #nosec G204 -- command comes from the operator's server configuration
	cmd := exec.Command(path, c.Args...)
	cmd.Env = c.Environ()
	cmd.Stderr = os.Stderr
	return cmd, nil
}
