package extractor

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/pkg/metricskey"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/xlog"
)

type slot struct {
	id   string
	name string
	args strings.Builder
}

// Accumulator collects fragments of a streamed response.
// It is not safe for concurrent use.
type Accumulator struct {
	slots      map[int]*slot
	text       strings.Builder
	stopReason string
	fragments  int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		slots: map[int]*slot{},
	}
}

// Add appends a fragment.
// Argument text is concatenated per slot in arrival order,
// non-empty ID and Name replace earlier values.
func (a *Accumulator) Add(f *llms.Fragment) {
	if f == nil {
		return
	}
	a.fragments++
	a.text.WriteString(f.Text)
	if f.StopReason != "" {
		a.stopReason = f.StopReason
	}

	tc := f.ToolCall
	if tc == nil {
		return
	}
	s := a.slots[tc.Index]
	if s == nil {
		s = &slot{}
		a.slots[tc.Index] = s
	}
	if tc.ID != "" {
		s.id = tc.ID
	}
	if tc.Name != "" {
		s.name = tc.Name
	}
	s.args.WriteString(tc.Arguments)
}

// Text returns the accumulated content text.
func (a *Accumulator) Text() string {
	return a.text.String()
}

// StopReason returns the last reported stop reason.
func (a *Accumulator) StopReason() string {
	return a.stopReason
}

// Requests returns one request per slot, in ascending slot order.
// Slots without an ID get a generated one, stable across calls.
func (a *Accumulator) Requests() []*tools.CallRequest {
	if len(a.slots) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(a.slots))
	for idx := range a.slots {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	res := make([]*tools.CallRequest, 0, len(indexes))
	for _, idx := range indexes {
		s := a.slots[idx]
		if s.id == "" {
			s.id = NewCallID()
		}
		res = append(res, &tools.CallRequest{
			ID:        s.id,
			Name:      s.name,
			Arguments: ParseArguments(s.args.String()),
		})
	}
	return res
}

// Drain reads the stream until it is complete.
// Text fragments are passed to onText, if provided; an error from onText
// stops the stream. Cancellation is checked between fragments.
func (a *Accumulator) Drain(ctx context.Context, stream llms.FragmentStream, onText func(ctx context.Context, text string) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		f, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return errors.WithMessage(err, "failed to read stream")
		}
		a.Add(f)
		if f != nil && f.Text != "" && onText != nil {
			if err = onText(ctx, f.Text); err != nil {
				return err
			}
		}
	}

	if n := len(a.slots); n > 0 {
		metricskey.StatsToolCallsExtracted.IncrCounter(float64(n), "stream")
	}
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "stream_done",
		"fragments", a.fragments,
		"slots", len(a.slots),
		"stop_reason", a.stopReason,
	)
	return nil
}
