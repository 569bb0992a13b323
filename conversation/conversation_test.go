package conversation_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/chatmodel"
	"github.com/effective-security/toolchat/conversation"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/store"
	"github.com/effective-security/toolchat/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	c, err := conversation.New(ctx, "chat1", "You are helpful.", st)
	require.NoError(t, err)
	assert.Equal(t, "chat1", c.ChatID())

	_, err = conversation.New(ctx, "chat1", "again", st)
	assert.EqualError(t, err, "chat chat1 already exists")

	require.NoError(t, c.AppendUser(ctx, "what time is it in Tokyo and Paris?"))

	r1 := &tools.CallRequest{ID: "1", Name: "get_current_time", Arguments: map[string]any{"timezone": "Asia/Tokyo"}}
	r2 := &tools.CallRequest{ID: "2", Name: "get_current_time", Arguments: map[string]any{"timezone": "Europe/Paris"}}
	require.NoError(t, c.AppendAssistant(ctx, "", []*tools.CallRequest{r1, r2}))
	assert.Equal(t, []*tools.CallRequest{r1, r2}, c.LastAssistantToolRequests())
	assert.Equal(t, []string{"1", "2"}, c.Pending())

	// turn can not advance with pending results
	err = c.AppendUser(ctx, "hurry")
	assert.True(t, errors.Is(err, conversation.ErrInvariantViolation))
	err = c.AppendAssistant(ctx, "done", nil)
	assert.True(t, errors.Is(err, conversation.ErrInvariantViolation))

	// unknown ID
	err = c.AppendToolResult(ctx, tools.NewResult(&tools.CallRequest{ID: "3", Name: "x"}, "", 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, conversation.ErrInvariantViolation))
	assert.Contains(t, err.Error(), "tool call 3 was not requested in the last assistant turn")

	require.NoError(t, c.AppendToolResult(ctx, tools.NewResult(r1, "10:00", 1)))
	err = c.AppendToolResult(ctx, tools.NewResult(r1, "10:00", 1))
	assert.True(t, errors.Is(err, conversation.ErrInvariantViolation))
	assert.Equal(t, []string{"2"}, c.Pending())

	require.NoError(t, c.AppendToolResult(ctx, tools.NewFailure(r2, "timeout", 2)))
	assert.Empty(t, c.Pending())

	require.NoError(t, c.AppendAssistant(ctx, "10:00 in Tokyo, Paris is unavailable.", nil))
	assert.Empty(t, c.LastAssistantToolRequests())

	// results of an older turn are rejected
	err = c.AppendToolResult(ctx, tools.NewResult(r1, "10:00", 1))
	assert.True(t, errors.Is(err, conversation.ErrInvariantViolation))

	msgs, err := c.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 6)
	assert.Equal(t, llms.RoleSystem, msgs[0].Role)
	assert.Equal(t, "You are helpful.", msgs[0].Text())
	assert.Equal(t, llms.RoleHuman, msgs[1].Role)

	assert.Equal(t, llms.RoleAI, msgs[2].Role)
	assert.Empty(t, msgs[2].Text())
	calls := msgs[2].ToolCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "1", calls[0].ID)
	assert.Equal(t, `{"timezone":"Asia/Tokyo"}`, calls[0].FunctionCall.Arguments)

	require.Len(t, msgs[3].Parts, 1)
	assert.Equal(t, llms.RoleTool, msgs[3].Role)
	assert.Equal(t, llms.ToolCallResponse{ToolCallID: "1", Name: "get_current_time", Content: "10:00"}, msgs[3].Parts[0])
	assert.Equal(t, llms.ToolCallResponse{ToolCallID: "2", Name: "get_current_time", Content: "Error: timeout", IsError: true}, msgs[4].Parts[0])
	assert.Equal(t, llms.RoleAI, msgs[5].Role)

	require.NoError(t, c.Close(ctx))
	msgs, err = c.Messages(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestConversationAssistantValidation(t *testing.T) {
	ctx := context.Background()
	c, err := conversation.New(ctx, "", "sys", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, c.ChatID())

	err = c.AppendAssistant(ctx, "", []*tools.CallRequest{{ID: "1"}, {ID: "1"}})
	assert.True(t, errors.Is(err, conversation.ErrInvariantViolation))
	err = c.AppendAssistant(ctx, "", []*tools.CallRequest{{Name: "x"}})
	assert.True(t, errors.Is(err, conversation.ErrInvariantViolation))
	assert.True(t, errors.Is(c.AppendToolResult(ctx, nil), conversation.ErrInvariantViolation))

	msgs, err := c.Messages(ctx)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestConversationChatIDFromContext(t *testing.T) {
	ctx := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext("from-ctx"))
	c, err := conversation.New(ctx, "", "sys", nil)
	require.NoError(t, err)
	assert.Equal(t, "from-ctx", c.ChatID())
}
