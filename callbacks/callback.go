package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/toolchat/assistants"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

// ensure that the callbacks implement the correct interfaces
var (
	_ assistants.Callback = (*Printer)(nil)
	_ tools.Callback      = (*Printer)(nil)
	_ assistants.Callback = (*PackageLogger)(nil)
	_ tools.Callback      = (*PackageLogger)(nil)
	_ assistants.Callback = (*Fanout)(nil)
	_ tools.Callback      = (*Fanout)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose is the verbose mode for callback printing
	ModeVerbose
)

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []assistants.Callback
}

func NewFanout(callbacks ...assistants.Callback) *Fanout {
	return &Fanout{callbacks: callbacks}
}

func (l *Fanout) Add(callback assistants.Callback) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) OnRunStart(ctx context.Context, input string) {
	for _, callback := range l.callbacks {
		callback.OnRunStart(ctx, input)
	}
}

func (l *Fanout) OnModelCallStart(ctx context.Context, call int, messages []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnModelCallStart(ctx, call, messages)
	}
}

func (l *Fanout) OnModelCallEnd(ctx context.Context, call int, text string, reqs []*tools.CallRequest) {
	for _, callback := range l.callbacks {
		callback.OnModelCallEnd(ctx, call, text, reqs)
	}
}

func (l *Fanout) OnRunEnd(ctx context.Context, res *assistants.Result) {
	for _, callback := range l.callbacks {
		callback.OnRunEnd(ctx, res)
	}
}

func (l *Fanout) OnRunError(ctx context.Context, res *assistants.Result, err error) {
	for _, callback := range l.callbacks {
		callback.OnRunError(ctx, res, err)
	}
}

func (l *Fanout) OnToolStart(ctx context.Context, req *tools.CallRequest, attempt int) {
	for _, callback := range l.callbacks {
		callback.OnToolStart(ctx, req, attempt)
	}
}

func (l *Fanout) OnToolEnd(ctx context.Context, req *tools.CallRequest, attempt int, result string) {
	for _, callback := range l.callbacks {
		callback.OnToolEnd(ctx, req, attempt, result)
	}
}

func (l *Fanout) OnToolError(ctx context.Context, req *tools.CallRequest, attempt int, err error) {
	for _, callback := range l.callbacks {
		callback.OnToolError(ctx, req, attempt, err)
	}
}

func (l *Fanout) OnToolNotFound(ctx context.Context, req *tools.CallRequest) {
	for _, callback := range l.callbacks {
		callback.OnToolNotFound(ctx, req)
	}
}

// Printer is a callback handler that prints to the Writer.
type Printer struct {
	Out  io.Writer
	Mode Mode

	lock sync.Mutex
}

func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

func (l *Printer) OnRunStart(ctx context.Context, input string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Run Start\n")
	fmt.Fprintf(l.Out, "Input: %s\n", input)
}

func (l *Printer) OnModelCallStart(ctx context.Context, call int, messages []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Model Call %d: %d messages\n", call, len(messages))
}

func (l *Printer) OnModelCallEnd(ctx context.Context, call int, text string, reqs []*tools.CallRequest) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Model Call %d End: %d tool calls\n", call, len(reqs))
	if l.Mode == ModeVerbose && text != "" {
		fmt.Fprintln(l.Out, text)
	}
}

func (l *Printer) OnRunEnd(ctx context.Context, res *assistants.Result) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Run End: %d model calls, %d iterations\n", res.ModelCalls, res.Iterations)
	if l.Mode == ModeVerbose {
		fmt.Fprintf(l.Out, "Answer: %s\n", res.Answer)
	}
}

func (l *Printer) OnRunError(ctx context.Context, res *assistants.Result, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Run Aborted: %s\n", err.Error())
}

func (l *Printer) OnToolStart(ctx context.Context, req *tools.CallRequest, attempt int) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Start: %s (%s), attempt %d\n", req.Name, req.ID, attempt)
	fmt.Fprintf(l.Out, "Input: %s\n", req.ArgumentsJSON())
}

func (l *Printer) OnToolEnd(ctx context.Context, req *tools.CallRequest, attempt int, result string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool End: %s (%s)\n", req.Name, req.ID)
	if l.Mode == ModeVerbose {
		fmt.Fprintf(l.Out, "Output: %s\n", result)
	}
}

func (l *Printer) OnToolError(ctx context.Context, req *tools.CallRequest, attempt int, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Error: %s (%s), attempt %d: %s\n", req.Name, req.ID, attempt, err.Error())
}

func (l *Printer) OnToolNotFound(ctx context.Context, req *tools.CallRequest) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Not Found: %s\n", req.Name)
}

// PackageLogger is a callback handler that prints to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnRunStart(ctx context.Context, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "run_start",
		"input", slices.StringUpto(input, 64),
	)
}

func (l *PackageLogger) OnModelCallStart(ctx context.Context, call int, messages []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "model_call_start",
		"call", call,
		"messages", len(messages),
	)
}

func (l *PackageLogger) OnModelCallEnd(ctx context.Context, call int, text string, reqs []*tools.CallRequest) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "model_call_end",
		"call", call,
		"tool_calls", len(reqs),
	)
}

func (l *PackageLogger) OnRunEnd(ctx context.Context, res *assistants.Result) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "run_end",
		"model_calls", res.ModelCalls,
		"iterations", res.Iterations,
		"answer", slices.StringUpto(res.Answer, 64),
	)
}

func (l *PackageLogger) OnRunError(ctx context.Context, res *assistants.Result, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "run_error",
		"model_calls", res.ModelCalls,
		"iterations", res.Iterations,
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnToolStart(ctx context.Context, req *tools.CallRequest, attempt int) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"tool", req.Name,
		"call_id", req.ID,
		"attempt", attempt,
	)
}

func (l *PackageLogger) OnToolEnd(ctx context.Context, req *tools.CallRequest, attempt int, result string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"tool", req.Name,
		"call_id", req.ID,
		"output", slices.StringUpto(result, 64),
	)
}

func (l *PackageLogger) OnToolError(ctx context.Context, req *tools.CallRequest, attempt int, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"tool", req.Name,
		"call_id", req.ID,
		"attempt", attempt,
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnToolNotFound(ctx context.Context, req *tools.CallRequest) {
	l.logger.ContextKV(ctx, xlog.WARNING,
		"event", "tool_not_found",
		"tool", req.Name,
		"call_id", req.ID,
	)
}
