// Package local exposes in-process tools as a tool-provider session.
package local

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat/tools", "local")

// Session is a tools.Session over in-process tools.
type Session struct {
	list  []tools.ITool
	index map[string]tools.ITool
}

var _ tools.Session = (*Session)(nil)

// NewSession returns a session over the given tools.
func NewSession(list ...tools.ITool) (*Session, error) {
	s := &Session{
		index: map[string]tools.ITool{},
	}
	for _, t := range list {
		name := t.Name()
		if _, ok := s.index[name]; ok {
			return nil, errors.Wrapf(tools.ErrDuplicateTool, "tool %q", name)
		}
		s.index[name] = t
		s.list = append(s.list, t)
	}
	return s, nil
}

// ListTools returns the tools sorted by name.
func (s *Session) ListTools(_ context.Context) ([]*tools.Descriptor, error) {
	res := make([]*tools.Descriptor, 0, len(s.list))
	for _, t := range s.list {
		res = append(res, &tools.Descriptor{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Parameters(),
		})
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Name < res[j].Name
	})
	return res, nil
}

// ExecuteTool calls the tool with JSON encoded arguments.
func (s *Session) ExecuteTool(ctx context.Context, name string, arguments map[string]any) (string, error) {
	t, ok := s.index[name]
	if !ok {
		return "", errors.Newf("tool %q not found", name)
	}
	if arguments == nil {
		arguments = map[string]any{}
	}
	input, err := json.Marshal(arguments)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal arguments")
	}

	logger.ContextKV(ctx, xlog.DEBUG, "tool", name, "input", string(input))
	return t.Call(ctx, string(input))
}

// Cleanup is a no-op.
func (s *Session) Cleanup(_ context.Context) error {
	return nil
}
