package tools_test

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/mocks/mocktools"
	"github.com/effective-security/toolchat/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func descs(names ...string) []*tools.Descriptor {
	var res []*tools.Descriptor
	for _, n := range names {
		res = append(res, &tools.Descriptor{Name: n, Description: "tool " + n})
	}
	return res
}

func TestRegistryBuilder(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	s1 := mocktools.NewMockSession(ctrl)
	s2 := mocktools.NewMockSession(ctrl)

	b := tools.NewRegistryBuilder()
	require.NoError(t, b.Register("time", s1, descs("get_current_time")))
	require.NoError(t, b.Register("fs", s2, descs("read_file", "write_file")))

	err := b.Register("fs", s2, descs("list_dir"))
	assert.True(t, errors.Is(err, tools.ErrDuplicateSession))

	err = b.Register("other", s2, descs("list_dir", "read_file"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, tools.ErrDuplicateTool))
	assert.Contains(t, err.Error(), `tool "read_file" declared by sessions "fs" and "other"`)

	err = b.Register("dup", s2, descs("a", "a"))
	assert.True(t, errors.Is(err, tools.ErrDuplicateTool))

	err = b.Register("empty", s2, descs(""))
	assert.EqualError(t, err, `session "empty": tool name is required`)

	r := b.Build()
	assert.Equal(t, 3, r.Len())

	// failed registrations leave nothing behind
	_, ok := r.Resolve("list_dir")
	assert.False(t, ok)
	_, ok = r.Resolve("a")
	assert.False(t, ok)

	e, ok := r.Resolve("read_file")
	require.True(t, ok)
	assert.Equal(t, "fs", e.SessionID)
	assert.Equal(t, s2, e.Session)
	assert.Equal(t, "tool read_file", e.Descriptor.Description)

	e, ok = r.Resolve("get_current_time")
	require.True(t, ok)
	assert.Equal(t, "time", e.SessionID)

	var names []string
	for _, d := range r.Descriptors() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"get_current_time", "read_file", "write_file"}, names)

	sessions := r.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, "time", sessions[0].ID)
	assert.Equal(t, "fs", sessions[1].ID)

	err = b.Register("late", s1, descs("late_tool"))
	assert.True(t, errors.Is(err, tools.ErrRegistryBuilt))
	_, ok = r.Resolve("late_tool")
	assert.False(t, ok)

	llmTools := r.LLMTools()
	require.Len(t, llmTools, 3)
	assert.Equal(t, "function", llmTools[0].Type)
	assert.Equal(t, "get_current_time", llmTools[0].Function.Name)

	desc := tools.GetDescriptions(r)
	assert.Contains(t, desc, `"Name": "write_file"`)
	assert.Contains(t, desc, `"Session": "fs"`)
}

func TestRegistryConcurrentResolve(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	b := tools.NewRegistryBuilder()
	require.NoError(t, b.Register("s", mocktools.NewMockSession(ctrl), descs("a", "b", "c")))
	r := b.Build()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, n := range []string{"a", "b", "c"} {
				e, ok := r.Resolve(n)
				assert.True(t, ok)
				assert.Equal(t, n, e.Descriptor.Name)
			}
		}()
	}
	wg.Wait()
}

func TestNilRegistry(t *testing.T) {
	var r *tools.Registry
	_, ok := r.Resolve("any")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Descriptors())
	assert.Empty(t, r.Sessions())
	assert.Nil(t, r.LLMTools())
}

func TestBuildRegistry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	s1 := mocktools.NewMockSession(ctrl)
	s2 := mocktools.NewMockSession(ctrl)
	s1.EXPECT().ListTools(gomock.Any()).Return(descs("echo"), nil)
	s2.EXPECT().ListTools(gomock.Any()).Return(descs("now"), nil)

	r, err := tools.BuildRegistry(ctx, map[string]tools.Session{"b": s1, "a": s2})
	require.NoError(t, err)
	sessions := r.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, "a", sessions[0].ID)
	assert.Equal(t, "b", sessions[1].ID)

	t.Run("collision", func(t *testing.T) {
		s1 := mocktools.NewMockSession(ctrl)
		s2 := mocktools.NewMockSession(ctrl)
		s1.EXPECT().ListTools(gomock.Any()).Return(descs("echo"), nil)
		s2.EXPECT().ListTools(gomock.Any()).Return(descs("echo"), nil)

		_, err := tools.BuildRegistry(ctx, map[string]tools.Session{"one": s1, "two": s2})
		require.Error(t, err)
		assert.True(t, errors.Is(err, tools.ErrDuplicateTool))
	})

	t.Run("list failed", func(t *testing.T) {
		s1 := mocktools.NewMockSession(ctrl)
		s1.EXPECT().ListTools(gomock.Any()).Return(nil, errors.New("connection closed"))

		_, err := tools.BuildRegistry(ctx, map[string]tools.Session{"one": s1})
		assert.EqualError(t, err, `failed to list tools of session "one": connection closed`)
	})
}

func TestCallOutcome(t *testing.T) {
	req := &tools.CallRequest{ID: "1", Name: "echo", Arguments: map[string]any{"text": "hi"}}
	assert.Equal(t, `{"text":"hi"}`, req.ArgumentsJSON())
	assert.Equal(t, "{}", (&tools.CallRequest{}).ArgumentsJSON())

	ok := tools.NewResult(req, "", 1)
	assert.False(t, ok.Failed())
	assert.Equal(t, "", ok.Content())

	fail := tools.NewFailure(req, "boom", 2)
	assert.True(t, fail.Failed())
	assert.Equal(t, "Error: boom", fail.Content())
	assert.Equal(t, 2, fail.Attempts)

	fail = tools.NewFailure(req, "", 0)
	assert.True(t, fail.Failed())
	assert.Equal(t, "Error: tool call failed", fail.Content())
}
