// Package chatmodel carries the chat identity through the context.
package chatmodel

import (
	"context"
	"strconv"
	"sync"

	"github.com/effective-security/x/values"
	"github.com/effective-security/xdb/pkg/flake"
)

// ChatContext identifies a chat and the current run within it.
// A run is one GetResponse call: a user input and the tool loop it triggers.
type ChatContext interface {
	GetChatID() string
	// RunID returns the ID of the current run
	RunID() string
	// GetMetadata retrieves metadata by key
	GetMetadata(key string) (value any, ok bool)
	// SetMetadata sets metadata by key
	SetMetadata(key string, value any)
}

type chatContext struct {
	chatID   string
	runID    string
	metadata *sync.Map
}

func (c *chatContext) GetChatID() string {
	return c.chatID
}

func (c *chatContext) RunID() string {
	return c.runID
}

func (c *chatContext) GetMetadata(key string) (value any, ok bool) {
	return c.metadata.Load(key)
}

func (c *chatContext) SetMetadata(key string, value any) {
	c.metadata.Store(key, value)
}

// NewChatContext returns a chat context, a new chat ID is generated if empty.
func NewChatContext(chatID string) ChatContext {
	return &chatContext{
		chatID:   values.StringsCoalesce(chatID, NewChatID()),
		runID:    NewChatID(),
		metadata: &sync.Map{},
	}
}

type contextKey int

const (
	keyContext contextKey = iota
)

// WithChatContext returns a new context with ChatContext value
func WithChatContext(ctx context.Context, chatCtx ChatContext) context.Context {
	return context.WithValue(ctx, keyContext, chatCtx)
}

// GetChatContext retrieves the ChatContext from the context
func GetChatContext(ctx context.Context) ChatContext {
	if v, ok := ctx.Value(keyContext).(ChatContext); ok {
		return v
	}
	return nil
}

// StartRun returns a context for a new run of the chat.
// The run shares chat ID and metadata with the parent chat context.
func StartRun(ctx context.Context, chatID string) context.Context {
	parent, ok := GetChatContext(ctx).(*chatContext)
	if !ok || parent.chatID != chatID {
		return WithChatContext(ctx, NewChatContext(chatID))
	}
	return WithChatContext(ctx, &chatContext{
		chatID:   parent.chatID,
		runID:    NewChatID(),
		metadata: parent.metadata,
	})
}

// GetChatID retrieves the chat ID from the provided context.
// If the context does not contain a ChatContext, it returns an empty string.
func GetChatID(ctx context.Context) string {
	if v := GetChatContext(ctx); v != nil {
		return v.GetChatID()
	}
	return ""
}

// GetRunID retrieves the run ID from the provided context.
func GetRunID(ctx context.Context) string {
	if v := GetChatContext(ctx); v != nil {
		return v.RunID()
	}
	return ""
}

// NewChatID generates a new chat ID using the flake ID generator.
func NewChatID() string {
	return strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
}
