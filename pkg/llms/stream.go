package llms

import (
	"context"
	"io"
)

// ToolCallFragment is an incremental piece of one tool call.
// Fragments of the same call share the slot Index; ID and Name are
// usually sent once, Arguments arrives as a sequence of JSON text pieces.
type ToolCallFragment struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Fragment is an incremental piece of a streamed model response.
// A fragment carries text, a tool call fragment, or both.
type Fragment struct {
	Text     string            `json:"text,omitempty"`
	ToolCall *ToolCallFragment `json:"tool_call,omitempty"`
	// StopReason is set on the last fragment, when reported by the provider.
	StopReason string `json:"stop_reason,omitempty"`
}

// FragmentStream is a pull iterator over response fragments.
// Next returns io.EOF when the stream is complete.
type FragmentStream interface {
	Next() (*Fragment, error)
	Close() error
}

// SliceStream is a FragmentStream over a fixed list of fragments.
type SliceStream struct {
	fragments []*Fragment
	pos       int
	closed    bool
}

// NewSliceStream returns a stream which yields the fragments in order.
func NewSliceStream(fragments ...*Fragment) *SliceStream {
	return &SliceStream{fragments: fragments}
}

// Next returns the next fragment or io.EOF.
func (s *SliceStream) Next() (*Fragment, error) {
	if s.closed || s.pos >= len(s.fragments) {
		return nil, io.EOF
	}
	f := s.fragments[s.pos]
	s.pos++
	return f, nil
}

// Close marks the stream as done.
func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

// ChannelStream is a FragmentStream fed by a producer goroutine.
// Backends push fragments with Send and finish with Finish.
type ChannelStream struct {
	ch     chan *Fragment
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

// NewChannelStream returns a stream and a context that is cancelled
// when the consumer closes the stream.
func NewChannelStream(ctx context.Context, buffer int) (*ChannelStream, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &ChannelStream{
		ch:     make(chan *Fragment, buffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}, ctx
}

// Send pushes a fragment to the consumer, it returns false if the
// consumer has gone away.
func (s *ChannelStream) Send(ctx context.Context, f *Fragment) bool {
	select {
	case s.ch <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

// Finish ends the stream with an optional error.
// It must be called exactly once by the producer.
func (s *ChannelStream) Finish(err error) {
	s.err = err
	close(s.ch)
	close(s.done)
}

// Next returns the next fragment, io.EOF at the end of the stream,
// or the error the producer finished with.
func (s *ChannelStream) Next() (*Fragment, error) {
	f, ok := <-s.ch
	if ok {
		return f, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, io.EOF
}

// Close cancels the producer and waits for it to finish.
func (s *ChannelStream) Close() error {
	s.cancel()
	// drain to unblock the producer
	for range s.ch {
	}
	<-s.done
	return nil
}
