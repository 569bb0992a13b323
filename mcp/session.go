package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "mcp")

// ClientName is reported to the servers during initialization.
const ClientName = "toolchat"

// Version is reported to the servers during initialization.
var Version = "dev"

// transportBuilder is overridden in tests to connect in-memory servers.
var transportBuilder = commandTransport

func commandTransport(_ context.Context, cfg *ServerConfig) (mcpsdk.Transport, error) {
	cmd, err := cfg.command()
	if err != nil {
		return nil, err
	}
	return &mcpsdk.CommandTransport{Command: cmd}, nil
}

// Session is a client connection to one MCP server.
type Session struct {
	name string
	cfg  *ServerConfig

	lock    sync.Mutex
	session *mcpsdk.ClientSession
}

var _ tools.Session = (*Session)(nil)

// NewSession returns a session that is not connected yet.
func NewSession(name string, cfg *ServerConfig) *Session {
	return &Session{
		name: name,
		cfg:  cfg,
	}
}

// Name returns the server name
func (s *Session) Name() string {
	return s.name
}

// Connect launches the server and performs the MCP handshake.
func (s *Session) Connect(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.session != nil {
		return nil
	}

	transport, err := transportBuilder(ctx, s.cfg)
	if err != nil {
		return errors.Wrapf(err, "failed to create transport for %s", s.name)
	}

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: ClientName, Version: Version}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to initialize server %s", s.name)
	}
	s.session = session

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "connected",
		"server", s.name,
		"command", s.cfg.Command,
	)
	return nil
}

func (s *Session) current() (*mcpsdk.ClientSession, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.session == nil {
		return nil, errors.Newf("server %s not initialized", s.name)
	}
	return s.session, nil
}

// ListTools returns the tools exposed by the server.
func (s *Session) ListTools(ctx context.Context) ([]*tools.Descriptor, error) {
	cs, err := s.current()
	if err != nil {
		return nil, err
	}

	var list []*tools.Descriptor
	for tool, err := range cs.Tools(ctx, nil) {
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list tools of %s", s.name)
		}
		d, err := toDescriptor(tool)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, nil
}

func toDescriptor(tool *mcpsdk.Tool) (*tools.Descriptor, error) {
	d := &tools.Descriptor{
		Name:        tool.Name,
		Description: tool.Description,
	}
	if tool.InputSchema == nil {
		return d, nil
	}

	js, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid input schema of %s", tool.Name)
	}
	schema := new(jsonschema.Schema)
	if err = json.Unmarshal(js, schema); err != nil {
		return nil, errors.Wrapf(err, "invalid input schema of %s", tool.Name)
	}
	d.InputSchema = schema
	return d, nil
}

// ExecuteTool calls the tool and returns its text content.
// A result flagged as error by the server is returned as error.
func (s *Session) ExecuteTool(ctx context.Context, name string, arguments map[string]any) (string, error) {
	cs, err := s.current()
	if err != nil {
		return "", err
	}
	if arguments == nil {
		arguments = map[string]any{}
	}

	res, err := cs.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: arguments,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to call %s", name)
	}

	text := resultText(res)
	if res.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return "", errors.New(text)
	}
	return text, nil
}

func resultText(res *mcpsdk.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	if len(parts) == 0 && res.StructuredContent != nil {
		if js, err := json.Marshal(res.StructuredContent); err == nil {
			return string(js)
		}
	}
	return strings.Join(parts, "\n")
}

// Cleanup closes the connection and stops the server process.
// It is safe to call on a session that was never connected.
func (s *Session) Cleanup(ctx context.Context) error {
	s.lock.Lock()
	cs := s.session
	s.session = nil
	s.lock.Unlock()

	if cs == nil {
		return nil
	}

	err := cs.Close()
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "close",
			"server", s.name,
			"err", err.Error(),
		)
		return errors.Wrapf(err, "failed to close server %s", s.name)
	}
	logger.ContextKV(ctx, xlog.DEBUG, "status", "closed", "server", s.name)
	return nil
}
