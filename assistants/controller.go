package assistants

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/chatmodel"
	"github.com/effective-security/toolchat/conversation"
	"github.com/effective-security/toolchat/dispatcher"
	"github.com/effective-security/toolchat/extractor"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/pkg/llmutils"
	"github.com/effective-security/toolchat/pkg/metricskey"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "assistants")

// ErrEmptyResponse is returned when the model returns no choices.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Controller runs the tool loop for a conversation.
type Controller struct {
	model      llms.Model
	dispatcher *dispatcher.Dispatcher
	cfg        *Config
}

// NewController returns a controller over the model and the dispatcher,
// the tools offered to the model are the dispatcher's registry.
func NewController(model llms.Model, d *dispatcher.Dispatcher, opts ...Option) *Controller {
	if d == nil {
		d = dispatcher.New(nil)
	}
	return &Controller{
		model:      model,
		dispatcher: d,
		cfg:        NewConfig(opts...),
	}
}

// Config returns the controller config.
func (c *Controller) Config() *Config {
	return c.cfg
}

type run struct {
	cfg        *Config
	cb         Callback
	dispatcher *dispatcher.Dispatcher
	conv       *conversation.Conversation
	provider   string
	res        *Result

	// output of the latest model call
	text string
	reqs []*tools.CallRequest
}

// GetResponse appends the user input to the conversation and runs the tool
// loop until the model answers without tool calls.
//
// The returned error is nil when the result is Done, and when it is Aborted
// on the iteration bound, in which case Result.Reason is ErrMaxIterations.
// Model failures, cancellation and conversation invariant violations
// return an Aborted result together with the error.
func (c *Controller) GetResponse(ctx context.Context, conv *conversation.Conversation, input string, opts ...Option) (*Result, error) {
	cfg := c.cfg.Apply(opts...)
	maxIterations := cfg.MaxIterations
	if maxIterations < 1 {
		maxIterations = DefaultMaxIterations
	}
	r := &run{
		cfg:        cfg,
		cb:         cfg.CallbackHandler,
		dispatcher: c.dispatcher,
		conv:       conv,
		provider:   string(c.model.GetProviderType()),
		res:        &Result{State: StateAwaitingModel},
	}
	if r.cb == nil {
		r.cb = NewNoopCallback()
	} else {
		r.dispatcher = c.dispatcher.With(dispatcher.WithCallback(r.cb))
	}

	ctx = chatmodel.StartRun(ctx, conv.ChatID())
	started := time.Now()
	defer metricskey.PerfRun.MeasureSince(started, r.provider)

	r.cb.OnRunStart(ctx, input)
	logger.ContextKV(ctx, xlog.DEBUG,
		"chat_id", conv.ChatID(),
		"run_id", chatmodel.GetRunID(ctx),
		"status", "started",
		"input", slices.StringUpto(input, 64),
	)

	if err := conv.AppendUser(ctx, input); err != nil {
		return r.abort(ctx, err, err)
	}

	for {
		switch r.res.State {
		case StateAwaitingModel:
			if r.res.Iterations >= maxIterations {
				return r.abort(ctx, ErrMaxIterations, nil)
			}
			if err := ctx.Err(); err != nil {
				return r.abort(ctx, err, errors.WithStack(err))
			}
			if err := c.callModel(ctx, r); err != nil {
				return r.abort(ctx, err, err)
			}
			r.res.State = StateExtractingCalls

		case StateExtractingCalls:
			if len(r.reqs) == 0 {
				r.reqs = extractor.Batch(r.text)
			}

			if len(r.reqs) > 0 && cfg.ProcessTools {
				if err := conv.AppendAssistant(ctx, r.text, r.reqs); err != nil {
					return r.abort(ctx, err, err)
				}
				r.res.State = StateDispatchingTools
				continue
			}

			if err := conv.AppendAssistant(ctx, r.text, nil); err != nil {
				return r.abort(ctx, err, err)
			}
			r.res.PendingCalls = r.reqs
			r.res.State = StateDone

		case StateDispatchingTools:
			outcomes := r.dispatcher.DispatchAll(ctx, r.reqs)
			for _, outcome := range outcomes {
				if err := conv.AppendToolResult(ctx, outcome); err != nil {
					return r.abort(ctx, err, err)
				}
			}
			r.res.Outcomes = append(r.res.Outcomes, outcomes...)
			r.res.Iterations++
			r.reqs = nil
			metricskey.StatsRunIterations.IncrCounter(1, r.provider)
			r.res.State = StateAwaitingModel

		case StateDone:
			r.res.Answer = r.text
			metricskey.StatsRunsSucceeded.IncrCounter(1, r.provider)
			r.cb.OnRunEnd(ctx, r.res)
			logger.ContextKV(ctx, xlog.DEBUG,
				"chat_id", conv.ChatID(),
				"run_id", chatmodel.GetRunID(ctx),
				"status", "done",
				"model_calls", r.res.ModelCalls,
				"iterations", r.res.Iterations,
			)
			return r.res, nil

		default:
			return r.abort(ctx, errors.Newf("unexpected state: %s", r.res.State), nil)
		}
	}
}

func (r *run) abort(ctx context.Context, reason, err error) (*Result, error) {
	r.res.State = StateAborted
	r.res.Reason = reason
	r.res.Answer = ""

	tag := "error"
	switch {
	case errors.Is(reason, ErrMaxIterations):
		tag = "max_iterations"
	case errors.Is(reason, context.Canceled), errors.Is(reason, context.DeadlineExceeded):
		tag = "cancelled"
	case errors.Is(reason, conversation.ErrInvariantViolation):
		tag = "invariant"
	}
	metricskey.StatsRunsAborted.IncrCounter(1, r.provider, tag)

	logger.ContextKV(ctx, xlog.WARNING,
		"chat_id", r.conv.ChatID(),
		"run_id", chatmodel.GetRunID(ctx),
		"status", "aborted",
		"reason", reason.Error(),
		"model_calls", r.res.ModelCalls,
		"iterations", r.res.Iterations,
	)
	r.cb.OnRunError(ctx, r.res, reason)
	return r.res, err
}

func (c *Controller) callModel(ctx context.Context, r *run) error {
	msgs, err := r.conv.Messages(ctx)
	if err != nil {
		return err
	}

	modelName := r.cfg.Model
	started := time.Now()
	defer metricskey.PerfLLMCall.MeasureSince(started, r.provider, modelName)

	r.res.ModelCalls++
	call := r.res.ModelCalls
	r.cb.OnModelCallStart(ctx, call, msgs)

	metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(msgs)), r.provider, modelName)
	metricskey.StatsLLMBytesSent.IncrCounter(float64(llmutils.CountMessagesContentSize(msgs)), r.provider, modelName)

	callOptions := r.cfg.GetCallOptions(r.dispatcher.Registry().LLMTools())

	r.text, r.reqs = "", nil
	sm, canStream := c.model.(llms.StreamingModel)
	if r.cfg.Streaming && canStream {
		err = r.stream(ctx, sm, msgs, callOptions)
	} else {
		err = r.generate(ctx, c.model, msgs, callOptions)
	}
	if err != nil {
		metricskey.StatsLLMCallsFailed.IncrCounter(1, r.provider, modelName)
		return errors.WithMessagef(err, "model call %d failed", call)
	}
	metricskey.StatsLLMBytesReceived.IncrCounter(float64(len(r.text)), r.provider, modelName)

	logger.ContextKV(ctx, xlog.DEBUG,
		"chat_id", r.conv.ChatID(),
		"run_id", chatmodel.GetRunID(ctx),
		"status", "model_responded",
		"call", call,
		"tool_calls", len(r.reqs),
		"text", slices.StringUpto(r.text, 64),
	)
	r.cb.OnModelCallEnd(ctx, call, r.text, r.reqs)
	return nil
}

func (r *run) generate(ctx context.Context, model llms.Model, msgs []llms.Message, callOptions []llms.CallOption) error {
	resp, err := model.GenerateContent(ctx, msgs, callOptions...)
	if err != nil {
		return err
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return ErrEmptyResponse
	}
	choice := resp.Choices[0]
	r.text = choice.Content
	r.reqs = extractor.FromToolCalls(choice.ToolCalls)
	return nil
}

func (r *run) stream(ctx context.Context, model llms.StreamingModel, msgs []llms.Message, callOptions []llms.CallOption) error {
	stream, err := model.StreamContent(ctx, msgs, callOptions...)
	if err != nil {
		return err
	}
	defer func() {
		_ = stream.Close()
	}()

	var onText func(context.Context, string) error
	if r.cfg.StreamingFunc != nil {
		onText = func(ctx context.Context, text string) error {
			return r.cfg.StreamingFunc(ctx, []byte(text))
		}
	}

	acc := extractor.NewAccumulator()
	if err = acc.Drain(ctx, stream, onText); err != nil {
		return err
	}
	r.text = acc.Text()
	r.reqs = acc.Requests()
	return nil
}
