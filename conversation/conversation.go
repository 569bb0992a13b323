// Package conversation owns the ordered message log of a chat and enforces
// that tool results answer the calls of the latest assistant turn.
package conversation

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/chatmodel"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/store"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "conversation")

// ErrInvariantViolation is returned when an append would break the message
// order the model relies on. It indicates a programming error.
var ErrInvariantViolation = errors.New("conversation invariant violation")

// Conversation is an append-only message log.
// Message 0 is the system prompt.
type Conversation struct {
	lock   sync.Mutex
	chatID string
	store  store.MessageStore

	// requests of the latest assistant turn
	turn     []*tools.CallRequest
	resolved map[string]bool
}

// New creates the conversation with the system prompt as the first message.
// A memory store is used if st is nil.
func New(ctx context.Context, chatID, systemPrompt string, st store.MessageStore) (*Conversation, error) {
	if st == nil {
		st = store.NewMemoryStore()
	}
	c := &Conversation{
		chatID:   values.StringsCoalesce(chatID, chatmodel.GetChatID(ctx), chatmodel.NewChatID()),
		store:    st,
		resolved: map[string]bool{},
	}

	msgs, err := st.Messages(ctx, c.chatID)
	if err != nil {
		return nil, err
	}
	if len(msgs) > 0 {
		return nil, errors.Newf("chat %s already exists", c.chatID)
	}
	if err = st.Add(ctx, c.chatID, llms.MessageFromTextParts(llms.RoleSystem, systemPrompt)); err != nil {
		return nil, err
	}
	return c, nil
}

// ChatID returns the chat ID.
func (c *Conversation) ChatID() string {
	return c.chatID
}

// AppendUser appends a user message.
func (c *Conversation) AppendUser(ctx context.Context, text string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.checkNoPending(); err != nil {
		return err
	}
	if err := c.store.Add(ctx, c.chatID, llms.MessageFromTextParts(llms.RoleHuman, text)); err != nil {
		return err
	}
	c.turn = nil
	c.resolved = map[string]bool{}
	return nil
}

// AppendAssistant appends an assistant message with the text, which may be
// empty, and the tool calls extracted from it.
// The calls become the pending requests of the turn.
func (c *Conversation) AppendAssistant(ctx context.Context, text string, reqs []*tools.CallRequest) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.checkNoPending(); err != nil {
		return err
	}

	msg := llms.Message{Role: llms.RoleAI}
	if text != "" {
		msg.Parts = append(msg.Parts, llms.TextPart(text))
	}
	seen := map[string]bool{}
	for _, req := range reqs {
		if req == nil || req.ID == "" {
			return errors.Wrap(ErrInvariantViolation, "tool call without ID")
		}
		if seen[req.ID] {
			return errors.Wrapf(ErrInvariantViolation, "duplicate tool call ID %s", req.ID)
		}
		seen[req.ID] = true
		msg.Parts = append(msg.Parts, llms.ToolCall{
			ID:   req.ID,
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      req.Name,
				Arguments: req.ArgumentsJSON(),
			},
		})
	}

	if err := c.store.Add(ctx, c.chatID, msg); err != nil {
		return err
	}
	c.turn = append([]*tools.CallRequest(nil), reqs...)
	c.resolved = map[string]bool{}
	return nil
}

// AppendToolResult appends the outcome of a call from the latest assistant turn.
func (c *Conversation) AppendToolResult(ctx context.Context, outcome *tools.CallOutcome) error {
	if outcome == nil || outcome.Request == nil {
		return errors.Wrap(ErrInvariantViolation, "outcome without request")
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	id := outcome.Request.ID
	if !c.inTurn(id) {
		logger.ContextKV(ctx, xlog.ERROR,
			"chat_id", c.chatID,
			"status", "unknown_tool_call",
			"id", id,
		)
		return errors.Wrapf(ErrInvariantViolation, "tool call %s was not requested in the last assistant turn", id)
	}
	if c.resolved[id] {
		return errors.Wrapf(ErrInvariantViolation, "tool call %s already has a result", id)
	}

	msg := llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
		ToolCallID: id,
		Name:       outcome.Request.Name,
		Content:    outcome.Content(),
		IsError:    outcome.Failed(),
	})
	if err := c.store.Add(ctx, c.chatID, msg); err != nil {
		return err
	}
	c.resolved[id] = true
	return nil
}

// LastAssistantToolRequests returns the calls of the latest assistant turn.
func (c *Conversation) LastAssistantToolRequests() []*tools.CallRequest {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]*tools.CallRequest(nil), c.turn...)
}

// Pending returns IDs of calls of the latest assistant turn without results,
// in the order of the calls.
func (c *Conversation) Pending() []string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.pending()
}

// Messages returns a copy of the log.
func (c *Conversation) Messages(ctx context.Context) ([]llms.Message, error) {
	return c.store.Messages(ctx, c.chatID)
}

// Close removes the conversation from the store.
func (c *Conversation) Close(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.turn = nil
	return c.store.Reset(ctx, c.chatID)
}

func (c *Conversation) pending() []string {
	var res []string
	for _, req := range c.turn {
		if !c.resolved[req.ID] {
			res = append(res, req.ID)
		}
	}
	return res
}

func (c *Conversation) checkNoPending() error {
	if p := c.pending(); len(p) > 0 {
		return errors.Wrapf(ErrInvariantViolation, "tool calls are awaiting results: %v", p)
	}
	return nil
}

func (c *Conversation) inTurn(id string) bool {
	for _, req := range c.turn {
		if req.ID == id {
			return true
		}
	}
	return false
}
