package mcp

import (
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "test-server", Version: "test"}, nil)

	server.AddTool(&mcpsdk.Tool{
		Name:        "echo",
		Description: "Echo input",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string", "description": "text to echo"},
			},
			"required": []any{"text"},
		},
	}, func(_ context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var payload map[string]string
		if err := json.Unmarshal(req.Params.Arguments, &payload); err != nil {
			return nil, err
		}
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{
				&mcpsdk.TextContent{Text: "echo:" + payload["text"]},
				&mcpsdk.TextContent{Text: "done"},
			},
		}, nil
	})

	server.AddTool(&mcpsdk.Tool{
		Name:        "fail",
		Description: "Always fails",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	}, func(_ context.Context, _ *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return &mcpsdk.CallToolResult{
			IsError: true,
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "disk is full"}},
		}, nil
	})
	return server
}

// connectInMemory makes the next transportBuilder call return
// an in-memory transport connected to the server.
func connectInMemory(t *testing.T, server *mcpsdk.Server) {
	t.Helper()

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	ss, err := server.Connect(context.Background(), serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	original := transportBuilder
	transportBuilder = func(context.Context, *ServerConfig) (mcpsdk.Transport, error) {
		return clientTransport, nil
	}
	t.Cleanup(func() { transportBuilder = original })
}

func TestSession(t *testing.T) {
	connectInMemory(t, newTestServer())
	ctx := context.Background()

	s := NewSession("files", &ServerConfig{Command: "files-server"})
	assert.Equal(t, "files", s.Name())

	_, err := s.ListTools(ctx)
	assert.EqualError(t, err, "server files not initialized")

	require.NoError(t, s.Connect(ctx))
	// second connect is a no-op
	require.NoError(t, s.Connect(ctx))

	list, err := s.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	names := []string{list[0].Name, list[1].Name}
	assert.ElementsMatch(t, []string{"echo", "fail"}, names)
	for _, d := range list {
		if d.Name == "echo" {
			assert.Equal(t, "Echo input", d.Description)
			require.NotNil(t, d.InputSchema)
			assert.Equal(t, "object", d.InputSchema.Type)
			assert.Equal(t, []string{"text"}, d.InputSchema.Required)
			prop, ok := d.InputSchema.Properties.Get("text")
			require.True(t, ok)
			assert.Equal(t, "string", prop.Type)
		}
	}

	res, err := s.ExecuteTool(ctx, "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo:hi\ndone", res)

	_, err = s.ExecuteTool(ctx, "fail", nil)
	assert.EqualError(t, err, "disk is full")

	require.NoError(t, s.Cleanup(ctx))
	// idempotent
	require.NoError(t, s.Cleanup(ctx))

	_, err = s.ExecuteTool(ctx, "echo", map[string]any{"text": "hi"})
	assert.EqualError(t, err, "server files not initialized")
}

func TestSession_CleanupWithoutConnect(t *testing.T) {
	s := NewSession("idle", &ServerConfig{Command: "idle"})
	assert.NoError(t, s.Cleanup(context.Background()))
}

func TestSession_TransportError(t *testing.T) {
	original := transportBuilder
	transportBuilder = func(context.Context, *ServerConfig) (mcpsdk.Transport, error) {
		return nil, errors.New("no such file")
	}
	defer func() { transportBuilder = original }()

	s := NewSession("broken", &ServerConfig{Command: "broken"})
	err := s.Connect(context.Background())
	assert.EqualError(t, err, "failed to create transport for broken: no such file")
}

func TestServerConfig(t *testing.T) {
	cfg := &ServerConfig{Command: "uvx", Args: []string{"mcp-server-time"}}
	path, err := cfg.ResolveCommand()
	require.NoError(t, err)
	assert.Equal(t, "uvx", path)

	_, err = (&ServerConfig{}).ResolveCommand()
	assert.EqualError(t, err, "command is required")

	original := lookPath
	defer func() { lookPath = original }()

	lookPath = func(file string) (string, error) {
		return "/usr/local/bin/" + file, nil
	}
	cfg = &ServerConfig{Command: "npx", Args: []string{"-y", "@modelcontextprotocol/server-filesystem"}}
	path, err = cfg.ResolveCommand()
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/npx", path)

	cmd, err := cfg.command()
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/npx", cmd.Path)
	assert.Equal(t, []string{"/usr/local/bin/npx", "-y", "@modelcontextprotocol/server-filesystem"}, cmd.Args)

	lookPath = func(string) (string, error) {
		return "", exec.ErrNotFound
	}
	_, err = cfg.ResolveCommand()
	assert.ErrorIs(t, err, exec.ErrNotFound)
	assert.True(t, strings.HasPrefix(err.Error(), "unable to resolve npx"))
}

func TestServerConfig_Environ(t *testing.T) {
	t.Setenv("TOOLCHAT_TEST_BASE", "1")
	cfg := &ServerConfig{
		Command: "server",
		Env: map[string]string{
			"B_VAR": "b",
			"A_VAR": "a",
		},
	}
	env := cfg.Environ()
	assert.Contains(t, env, "TOOLCHAT_TEST_BASE=1")
	require.GreaterOrEqual(t, len(env), 3)
	assert.Equal(t, []string{"A_VAR=a", "B_VAR=b"}, env[len(env)-2:])
}
