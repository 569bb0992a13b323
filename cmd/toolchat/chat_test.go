package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/assistants"
	"github.com/effective-security/toolchat/callbacks"
	"github.com/effective-security/toolchat/config"
	"github.com/effective-security/toolchat/conversation"
	"github.com/effective-security/toolchat/dispatcher"
	"github.com/effective-security/toolchat/mcp"
	"github.com/effective-security/toolchat/mocks/mockllms"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/toolchat/tools/timetool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text, StopReason: "stop"}},
	}
}

func newChat(t *testing.T, model llms.Model, input string, opts ...assistants.Option) (*chat, *bytes.Buffer) {
	sess, err := newLocalSession([]string{timetool.ToolName})
	require.NoError(t, err)
	registry, err := tools.BuildRegistry(context.Background(), map[string]tools.Session{localSessionID: sess})
	require.NoError(t, err)

	conv, err := conversation.New(context.Background(), "", "system", nil)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	c := &chat{
		controller: assistants.NewController(model, dispatcher.New(registry), opts...),
		conv:       conv,
		in:         strings.NewReader(input),
		out:        out,
	}
	return c, out
}

func TestChatLoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := mockllms.NewMockModel(ctrl)
	model.EXPECT().GetProviderType().Return(llms.ProviderDeepSeek).AnyTimes()
	gomock.InOrder(
		model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(textResponse("Hello!"), nil),
		model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("rate limited")),
	)

	c, out := newChat(t, model, "hi\n\nagain\nquit\nnever asked\n")
	require.NoError(t, c.loop(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Assistant: Hello!\n")
	assert.Contains(t, text, "Error: model call 1 failed: rate limited\n")
	assert.NotContains(t, text, "never asked")
}

func TestChatLoop_EndOfInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := mockllms.NewMockModel(ctrl)

	c, out := newChat(t, model, "")
	require.NoError(t, c.loop(context.Background()))
	assert.Equal(t, "You: \n", out.String())
}

func TestChatLoop_Cancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := mockllms.NewMockModel(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, _ := newChat(t, model, "")
	// the input is never read once the context is done
	c.in = blockingReader{}
	err := c.loop(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}

func TestChat_PendingCalls(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := mockllms.NewMockModel(ctrl)
	model.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(textResponse(`{"tool":"get_current_time","arguments":{"timezone":"UTC"}}`), nil)

	c, out := newChat(t, model, "", assistants.WithProcessTools(false))
	require.NoError(t, c.ask(context.Background(), "time?"))
	assert.Contains(t, out.String(), `Tool call: get_current_time {"timezone":"UTC"}`)
}

func TestChat_Aborted(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := mockllms.NewMockModel(ctrl)
	model.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(textResponse(`{"tool":"get_current_time","arguments":{"timezone":"UTC"}}`), nil)

	c, out := newChat(t, model, "", assistants.WithMaxIterations(1))
	require.NoError(t, c.ask(context.Background(), "time?"))
	assert.Contains(t, out.String(), "Assistant: (stopped: maximum tool iterations reached)")
}

func TestIsQuit(t *testing.T) {
	assert.True(t, isQuit("quit"))
	assert.True(t, isQuit("EXIT"))
	assert.False(t, isQuit("quite"))
}

func TestNewLocalSession(t *testing.T) {
	s, err := newLocalSession(nil)
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = newLocalSession([]string{"rm_rf"})
	assert.EqualError(t, err, "unknown local tool: rm_rf")

	t.Setenv("TAVILY_API_KEY", "")
	_, err = newLocalSession([]string{"web_search"})
	assert.EqualError(t, err, "TAVILY_API_KEY is not set")

	s, err = newLocalSession([]string{timetool.ToolName})
	require.NoError(t, err)
	list, err := s.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, timetool.ToolName, list[0].Name)
}

func TestConnectSessions(t *testing.T) {
	cfg := &config.Config{
		MCPServers: map[string]*mcp.ServerConfig{
			localSessionID: {Command: "uvx"},
		},
		LocalTools: []string{timetool.ToolName},
	}
	_, err := connectSessions(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, tools.ErrDuplicateSession)

	cfg = &config.Config{LocalTools: []string{timetool.ToolName}}
	sessions, err := connectSessions(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.NotNil(t, sessions[localSessionID])
}

func TestChat_VerboseStats(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := mockllms.NewMockModel(ctrl)
	model.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	gomock.InOrder(
		model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(textResponse(`{"tool":"get_current_time","arguments":{"timezone":"UTC"}}`), nil),
		model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(textResponse("It is noon."), nil),
	)

	pad := callbacks.NewScratchpad(callbacks.ModeVerbose)
	c, out := newChat(t, model, "", assistants.WithCallback(pad))
	statsOut := &bytes.Buffer{}
	c.stats = pad
	c.statsOut = statsOut

	require.NoError(t, c.ask(context.Background(), "time?"))
	assert.Contains(t, out.String(), "Assistant: It is noon.\n")

	stats := statsOut.String()
	assert.True(t, strings.HasPrefix(stats, "Run "), stats)
	assert.Contains(t, stats, "model calls: 2, tool calls: 1, failed: 0, retries: 0, not found: 0\n")
	assert.NotContains(t, stats, "stopped")

	// the run is forgotten once printed
	st, _ := pad.EndRun(c.conv.ChatID())
	assert.Nil(t, st)
}
