package chatmodel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatContext_Basics(t *testing.T) {
	t.Parallel()
	c := NewChatContext("cid")
	require.NotNil(t, c)
	assert.Equal(t, "cid", c.GetChatID())
	assert.NotEmpty(t, c.RunID())

	val, ok := c.GetMetadata("not-found")
	assert.Nil(t, val)
	assert.False(t, ok)
	c.SetMetadata("foo", 1)
	v, ok := c.GetMetadata("foo")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestNewChatContext_DefaultIDs(t *testing.T) {
	t.Parallel()
	c := NewChatContext("")
	assert.NotEmpty(t, c.GetChatID())
	assert.NotEqual(t, NewChatContext("").GetChatID(), c.GetChatID())
}

func TestContextPlumbing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert.Nil(t, GetChatContext(ctx))
	assert.Empty(t, GetChatID(ctx))
	assert.Empty(t, GetRunID(ctx))

	c := NewChatContext("y")
	c.SetMetadata("user", "bob")
	ctx = WithChatContext(ctx, c)
	assert.Equal(t, c, GetChatContext(ctx))
	assert.Equal(t, "y", GetChatID(ctx))
	assert.Equal(t, c.RunID(), GetRunID(ctx))

	run := StartRun(ctx, "y")
	assert.Equal(t, "y", GetChatID(run))
	assert.NotEqual(t, c.RunID(), GetRunID(run))
	v, ok := GetChatContext(run).GetMetadata("user")
	assert.True(t, ok)
	assert.Equal(t, "bob", v)

	other := StartRun(ctx, "z")
	assert.Equal(t, "z", GetChatID(other))
	_, ok = GetChatContext(other).GetMetadata("user")
	assert.False(t, ok)
}
