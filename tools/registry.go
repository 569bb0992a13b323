package tools

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "tools")

var (
	// ErrDuplicateTool is returned when two sessions declare the same tool name.
	ErrDuplicateTool = errors.New("duplicate tool name")
	// ErrDuplicateSession is returned when a session ID is registered twice.
	ErrDuplicateSession = errors.New("duplicate session")
	// ErrRegistryBuilt is returned by Register after Build.
	ErrRegistryBuilt = errors.New("registry is already built")
)

// Entry is a resolved tool.
type Entry struct {
	SessionID  string
	Session    Session
	Descriptor *Descriptor
}

// SessionRef is a registered session.
type SessionRef struct {
	ID      string
	Session Session
}

// RegistryBuilder collects tools of all sessions during initialization.
type RegistryBuilder struct {
	entries  map[string]*Entry
	tools    []*Descriptor
	sessions []SessionRef
	ids      map[string]bool
	built    bool
}

// NewRegistryBuilder returns an empty builder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{
		entries: map[string]*Entry{},
		ids:     map[string]bool{},
	}
}

// Register adds the tools of one session.
// Nothing is registered if any of the tools conflicts.
func (b *RegistryBuilder) Register(sessionID string, session Session, descs []*Descriptor) error {
	if b.built {
		return ErrRegistryBuilt
	}
	if sessionID == "" || session == nil {
		return errors.New("session ID and session are required")
	}
	if b.ids[sessionID] {
		return errors.Wrapf(ErrDuplicateSession, "session %q", sessionID)
	}

	seen := map[string]bool{}
	for _, d := range descs {
		if d == nil || d.Name == "" {
			return errors.Newf("session %q: tool name is required", sessionID)
		}
		if seen[d.Name] {
			return errors.Wrapf(ErrDuplicateTool, "tool %q declared twice by session %q", d.Name, sessionID)
		}
		if existing, ok := b.entries[d.Name]; ok {
			return errors.Wrapf(ErrDuplicateTool, "tool %q declared by sessions %q and %q",
				d.Name, existing.SessionID, sessionID)
		}
		seen[d.Name] = true
	}

	b.ids[sessionID] = true
	b.sessions = append(b.sessions, SessionRef{ID: sessionID, Session: session})
	for _, d := range descs {
		b.entries[d.Name] = &Entry{
			SessionID:  sessionID,
			Session:    session,
			Descriptor: d,
		}
		b.tools = append(b.tools, d)
	}

	logger.KV(xlog.DEBUG, "session", sessionID, "tools", len(descs))
	return nil
}

// Build returns the immutable registry.
// The builder can not be used after Build.
func (b *RegistryBuilder) Build() *Registry {
	b.built = true
	return &Registry{
		entries:  b.entries,
		tools:    b.tools,
		sessions: b.sessions,
	}
}

// Registry maps a tool name to its owning session.
// It is read-only and safe for concurrent use.
type Registry struct {
	entries  map[string]*Entry
	tools    []*Descriptor
	sessions []SessionRef
}

// BuildRegistry lists tools of every session and builds the registry.
// Sessions are registered in ID order.
func BuildRegistry(ctx context.Context, sessions map[string]Session) (*Registry, error) {
	ids := make([]string, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	b := NewRegistryBuilder()
	for _, id := range ids {
		descs, err := sessions[id].ListTools(ctx)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to list tools of session %q", id)
		}
		if err = b.Register(id, sessions[id], descs); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// Resolve returns the entry for the tool name.
func (r *Registry) Resolve(name string) (*Entry, bool) {
	if r == nil {
		return nil, false
	}
	e, ok := r.entries[name]
	return e, ok
}

// Len returns the number of tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.tools)
}

// Descriptors returns tools in registration order.
func (r *Registry) Descriptors() []*Descriptor {
	if r == nil {
		return nil
	}
	return append([]*Descriptor(nil), r.tools...)
}

// Sessions returns sessions in registration order.
func (r *Registry) Sessions() []SessionRef {
	if r == nil {
		return nil
	}
	return append([]SessionRef(nil), r.sessions...)
}

// LLMTools returns the tools as function definitions for the model.
func (r *Registry) LLMTools() []llms.Tool {
	if r == nil || len(r.tools) == 0 {
		return nil
	}
	res := make([]llms.Tool, 0, len(r.tools))
	for _, d := range r.tools {
		res = append(res, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.InputSchema,
			},
		})
	}
	return res
}
