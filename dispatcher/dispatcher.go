// Package dispatcher executes tool call requests against the sessions
// which own the tools, with bounded retry.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/pkg/metricskey"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "dispatcher")

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(d *Dispatcher) {
		d.policy = p
	}
}

// WithCallTimeout limits the duration of each attempt.
func WithCallTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// WithCallback sets the callback notified on each attempt.
func WithCallback(cb tools.Callback) Option {
	return func(d *Dispatcher) {
		d.callback = cb
	}
}

// Dispatcher resolves and executes tool calls.
// It never mutates the conversation, outcomes are returned to the caller.
type Dispatcher struct {
	registry *tools.Registry
	policy   RetryPolicy
	timeout  time.Duration
	callback tools.Callback
}

// New returns a dispatcher over the registry.
func New(registry *tools.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		policy:   DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.callback == nil {
		d.callback = nopCallback{}
	}
	return d
}

// With returns a copy of the dispatcher with options applied.
func (d *Dispatcher) With(opts ...Option) *Dispatcher {
	cp := *d
	for _, opt := range opts {
		opt(&cp)
	}
	if cp.callback == nil {
		cp.callback = nopCallback{}
	}
	return &cp
}

// Registry returns the tool registry.
func (d *Dispatcher) Registry() *tools.Registry {
	return d.registry
}

// Policy returns the retry policy.
func (d *Dispatcher) Policy() RetryPolicy {
	return d.policy
}

// Dispatch executes the request and returns its outcome.
// Failures are reported in the outcome, never as an error:
// an unknown tool has zero attempts, a failing tool is retried
// up to MaxAttempts, and a cancelled context stops further attempts.
func (d *Dispatcher) Dispatch(ctx context.Context, req *tools.CallRequest) *tools.CallOutcome {
	entry, ok := d.registry.Resolve(req.Name)
	if !ok {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, req.Name)
		d.callback.OnToolNotFound(ctx, req)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_not_found",
			"tool", req.Name,
			"id", req.ID,
		)
		return tools.NewFailure(req, fmt.Sprintf("no provider for tool %s", req.Name), 0)
	}

	attempts := 0
	var result string
	op := func() error {
		attempts++
		if err := ctx.Err(); err != nil {
			d.callback.OnToolError(ctx, req, attempts, err)
			return backoff.Permanent(err)
		}
		res, err := d.invoke(ctx, entry, req, attempts)
		if err != nil {
			return err
		}
		result = res
		return nil
	}
	notify := func(err error, wait time.Duration) {
		metricskey.StatsToolCallsRetried.IncrCounter(1, req.Name)
		logger.ContextKV(ctx, xlog.DEBUG,
			"status", "retry",
			"tool", req.Name,
			"id", req.ID,
			"attempt", attempts,
			"wait", wait.String(),
			"err", err.Error(),
		)
	}

	err := backoff.RetryNotify(op, d.policy.backOff(ctx), notify)
	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, req.Name)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_failed",
			"tool", req.Name,
			"session", entry.SessionID,
			"id", req.ID,
			"attempts", attempts,
			"err", err.Error(),
		)
		return tools.NewFailure(req, err.Error(), attempts)
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, req.Name)
	return tools.NewResult(req, result, attempts)
}

func (d *Dispatcher) invoke(ctx context.Context, entry *tools.Entry, req *tools.CallRequest, attempt int) (res string, err error) {
	started := time.Now()
	defer metricskey.PerfToolCall.MeasureSince(started, req.Name)

	d.callback.OnToolStart(ctx, req, attempt)
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "tool_call",
		"tool", req.Name,
		"session", entry.SessionID,
		"id", req.ID,
		"attempt", attempt,
		"args", slices.StringUpto(req.ArgumentsJSON(), 64),
	)

	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("tool %s panicked: %v", req.Name, r)
			d.callback.OnToolError(ctx, req, attempt, err)
		}
	}()

	res, err = entry.Session.ExecuteTool(callCtx, req.Name, req.Arguments)
	if err != nil {
		d.callback.OnToolError(ctx, req, attempt, err)
		return "", err
	}
	d.callback.OnToolEnd(ctx, req, attempt, res)
	return res, nil
}

type indexedOutcome struct {
	index   int
	outcome *tools.CallOutcome
}

// DispatchAll executes requests concurrently and returns outcomes
// in the order of requests. One failure does not cancel the others.
func (d *Dispatcher) DispatchAll(ctx context.Context, reqs []*tools.CallRequest) []*tools.CallOutcome {
	if len(reqs) == 0 {
		return nil
	}

	resultChan := make(chan indexedOutcome, len(reqs))
	var wg sync.WaitGroup
	wg.Add(len(reqs))
	for i, req := range reqs {
		go func(index int, req *tools.CallRequest) {
			defer wg.Done()
			resultChan <- indexedOutcome{
				index:   index,
				outcome: d.Dispatch(ctx, req),
			}
		}(i, req)
	}
	wg.Wait()
	close(resultChan)

	outcomes := make([]*tools.CallOutcome, len(reqs))
	for r := range resultChan {
		outcomes[r.index] = r.outcome
	}
	return outcomes
}

type nopCallback struct{}

func (nopCallback) OnToolStart(context.Context, *tools.CallRequest, int) {}
func (nopCallback) OnToolEnd(context.Context, *tools.CallRequest, int, string) {}
func (nopCallback) OnToolError(context.Context, *tools.CallRequest, int, error) {}
func (nopCallback) OnToolNotFound(context.Context, *tools.CallRequest) {}
