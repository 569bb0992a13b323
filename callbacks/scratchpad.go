package callbacks

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/effective-security/toolchat/assistants"
	"github.com/effective-security/toolchat/chatmodel"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/pkg/llmutils"
	"github.com/effective-security/toolchat/tools"
)

var _ assistants.Callback = (*Scratchpad)(nil)

var TimeNowFn = time.Now

// RunStats is the summary of one GetResponse run.
type RunStats struct {
	ChatID string
	RunID  string

	Duration           time.Duration
	Aborted            bool
	Reason             string
	TotalMessages      uint32
	LLMBytesOut        uint64
	LLMBytesIn         uint64
	ModelCalls         uint32
	Iterations         uint32
	ToolCalls          uint32
	ToolCallsSucceeded uint32
	ToolCallsFailed    uint32
	ToolRetries        uint32
	ToolNotFound       uint32
}

// Scratchpad records a transcript and the stats of each run,
// keyed by chat ID.
type Scratchpad struct {
	runs map[string]*run
	mode Mode
	lock sync.Mutex
}

func NewScratchpad(mode Mode) *Scratchpad {
	return &Scratchpad{
		runs: make(map[string]*run),
		mode: mode,
	}
}

// EndRun returns the stats and the transcript of the latest run of the chat,
// and forgets it. It returns nil if no run was recorded.
func (l *Scratchpad) EndRun(chatID string) (*RunStats, []byte) {
	l.lock.Lock()
	r := l.runs[chatID]
	delete(l.runs, chatID)
	l.lock.Unlock()

	if r == nil {
		return nil, nil
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	stats := r.stats
	return &stats, r.w.Bytes()
}

func (l *Scratchpad) getRun(ctx context.Context) *run {
	chatCtx := chatmodel.GetChatContext(ctx)
	if chatCtx == nil {
		return nil
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	return l.runs[chatCtx.GetChatID()]
}

func (l *Scratchpad) OnRunStart(ctx context.Context, input string) {
	chatCtx := chatmodel.GetChatContext(ctx)
	if chatCtx == nil {
		return
	}
	r := &run{
		stats: RunStats{
			ChatID: chatCtx.GetChatID(),
			RunID:  chatCtx.RunID(),
		},
		chatCtx: chatCtx,
		started: TimeNowFn(),
	}

	l.lock.Lock()
	l.runs[chatCtx.GetChatID()] = r
	l.lock.Unlock()

	r.print("*** Run Started ***")
	r.print("Input:", input)
}

func (l *Scratchpad) OnModelCallStart(ctx context.Context, call int, messages []llms.Message) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint64(&r.stats.LLMBytesOut, llmutils.CountMessagesContentSize(messages))
	atomic.AddUint32(&r.stats.ModelCalls, 1)
	count := uint32(len(messages))
	atomic.AddUint32(&r.stats.TotalMessages, count)

	r.print("*** Model Call ***", fmt.Sprintf("#%d, %d messages", call, count))
	if l.mode == ModeVerbose {
		r.print(printMessages(messages))
	}
}

func (l *Scratchpad) OnModelCallEnd(ctx context.Context, call int, text string, reqs []*tools.CallRequest) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint64(&r.stats.LLMBytesIn, uint64(len(text)))
	r.print("*** Model Call End ***", fmt.Sprintf("#%d, %d tool calls", call, len(reqs)))
	if l.mode == ModeVerbose && text != "" {
		r.print("Output:", text)
	}
}

func (l *Scratchpad) OnRunEnd(ctx context.Context, res *assistants.Result) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	r.finish(res, "")
}

func (l *Scratchpad) OnRunError(ctx context.Context, res *assistants.Result, err error) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	r.print("*** Error ***", err.Error())
	r.finish(res, err.Error())
}

func (l *Scratchpad) OnToolStart(ctx context.Context, req *tools.CallRequest, attempt int) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	if attempt == 1 {
		atomic.AddUint32(&r.stats.ToolCalls, 1)
	} else {
		atomic.AddUint32(&r.stats.ToolRetries, 1)
	}
	r.print(req.Name, req.ID, "*** Tool Start ***", fmt.Sprintf("attempt %d", attempt))
	r.print(req.Name, req.ID, "Input:", req.ArgumentsJSON())
}

func (l *Scratchpad) OnToolEnd(ctx context.Context, req *tools.CallRequest, attempt int, result string) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.ToolCallsSucceeded, 1)
	if l.mode == ModeVerbose {
		r.print(req.Name, req.ID, "Output:", result)
	}
	r.print(req.Name, req.ID, "*** Tool End ***")
}

func (l *Scratchpad) OnToolError(ctx context.Context, req *tools.CallRequest, attempt int, err error) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.ToolCallsFailed, 1)
	r.print(req.Name, req.ID, "*** Tool Error ***", err.Error())
}

func (l *Scratchpad) OnToolNotFound(ctx context.Context, req *tools.CallRequest) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.ToolNotFound, 1)
	r.print("*** Tool Not Found ***", req.Name)
}

func printMessages(messages []llms.Message) string {
	var buf strings.Builder
	buf.WriteString("Messages:\n")
	for idx, msg := range messages {
		fmt.Fprintf(&buf, "[%d] %s:\n", idx, msg.Role)
		textParts := 0
		toolParts := 0
		toolResponseParts := 0
		for _, part := range msg.Parts {
			switch typ := part.(type) {
			case llms.TextContent:
				textParts++
			case llms.ToolCall:
				toolParts++
				buf.WriteString("  - ")
				buf.WriteString(typ.String())
				buf.WriteString("\n")
			case llms.ToolCallResponse:
				toolResponseParts++
				buf.WriteString("  - ")
				buf.WriteString(typ.String())
				buf.WriteString("\n")
			}
		}

		fmt.Fprintf(&buf, "  - %d texts, %d tool calls, %d tool responses\n", textParts, toolParts, toolResponseParts)
	}
	return buf.String()
}

type run struct {
	chatCtx chatmodel.ChatContext
	w       bytes.Buffer
	started time.Time
	lock    sync.Mutex
	stats   RunStats
}

func (r *run) finish(res *assistants.Result, reason string) {
	r.lock.Lock()
	r.stats.Duration = TimeNowFn().Sub(r.started)
	r.stats.Aborted = res.Aborted()
	r.stats.Reason = reason
	if reason == "" && res.Reason != nil {
		r.stats.Reason = res.Reason.Error()
	}
	r.stats.Iterations = uint32(res.Iterations)
	stats := r.stats
	r.lock.Unlock()

	r.print(fmt.Sprintf("Model calls: %d, Messages: %d, Bytes Out: %d, Bytes In: %d",
		stats.ModelCalls,
		stats.TotalMessages,
		stats.LLMBytesOut,
		stats.LLMBytesIn,
	))
	r.print(fmt.Sprintf("Tool calls: %d, Failed: %d, Retries: %d, Not Found: %d",
		stats.ToolCalls,
		stats.ToolCallsFailed,
		stats.ToolRetries,
		stats.ToolNotFound,
	))
	r.print(fmt.Sprintf("*** Run Ended. State: %s, Iterations: %d, Duration: %s ***", res.State, stats.Iterations, stats.Duration))
}

// print writes the entries to the run's output in the format:
// timestamp chatID.runID entry entry\n
func (r *run) print(entries ...string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	ts := TimeNowFn().Format("2006-01-02 15:04:05")

	_, _ = r.w.WriteString(ts)
	_, _ = r.w.WriteString(" ")
	_, _ = r.w.WriteString(r.chatCtx.GetChatID())
	_, _ = r.w.WriteString(".")
	_, _ = r.w.WriteString(r.chatCtx.RunID())
	_, _ = r.w.WriteString(" ")

	for i, entry := range entries {
		if i > 0 {
			_, _ = r.w.WriteString(" ")
		}
		_, _ = r.w.WriteString(entry)
	}
	_, _ = r.w.WriteString("\n")
}
