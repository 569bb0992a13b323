package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/assistants"
	"github.com/effective-security/toolchat/callbacks"
	"github.com/effective-security/toolchat/conversation"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/toolchat/tools/local"
	"github.com/effective-security/toolchat/tools/timetool"
	"github.com/effective-security/toolchat/tools/websearch"
)

const localSessionID = "local"

// newLocalSession returns the session with enabled in-process tools,
// or nil if none is enabled.
func newLocalSession(names []string) (tools.Session, error) {
	var list []tools.ITool
	for _, name := range names {
		var (
			t   tools.ITool
			err error
		)
		switch name {
		case timetool.ToolName:
			t, err = timetool.New()
		case websearch.ToolName:
			t, err = websearch.New(websearch.Config{})
		default:
			err = errors.Newf("unknown local tool: %s", name)
		}
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return local.NewSession(list...)
}

type chat struct {
	controller *assistants.Controller
	conv       *conversation.Conversation
	in         io.Reader
	out        io.Writer
	streaming  bool

	// stats is set in verbose mode, the run summary is written to statsOut
	stats    *callbacks.Scratchpad
	statsOut io.Writer
}

func isQuit(line string) bool {
	switch strings.ToLower(line) {
	case "quit", "exit":
		return true
	}
	return false
}

// loop reads questions line by line until quit, end of input or cancellation.
func (c *chat) loop(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(c.out, "You: ")

		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.out)
				return nil
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}
		if isQuit(line) {
			return nil
		}

		if err := c.ask(ctx, line); err != nil {
			return err
		}
	}
}

func (c *chat) ask(ctx context.Context, question string) error {
	var opts []assistants.Option
	if c.streaming {
		fmt.Fprint(c.out, "Assistant: ")
		opts = append(opts, assistants.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			_, err := c.out.Write(chunk)
			return err
		}))
	}

	res, err := c.controller.GetResponse(ctx, c.conv, question, opts...)
	if c.streaming {
		fmt.Fprintln(c.out)
	}
	c.printStats()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprintf(c.out, "Error: %v\n", err)
		if errors.Is(err, conversation.ErrInvariantViolation) {
			return err
		}
		return nil
	}

	switch {
	case res.Aborted():
		fmt.Fprintf(c.out, "Assistant: (stopped: %v)\n", res.Reason)
	case !c.streaming:
		fmt.Fprintf(c.out, "Assistant: %s\n", res.Answer)
	}
	for _, req := range res.PendingCalls {
		fmt.Fprintf(c.out, "Tool call: %s %s\n", req.Name, req.ArgumentsJSON())
	}
	return nil
}

func (c *chat) printStats() {
	if c.stats == nil {
		return
	}
	st, _ := c.stats.EndRun(c.conv.ChatID())
	if st == nil {
		return
	}
	fmt.Fprintf(c.statsOut, "Run %s: %s, iterations: %d, model calls: %d, tool calls: %d, failed: %d, retries: %d, not found: %d\n",
		st.RunID,
		st.Duration.Round(time.Millisecond),
		st.Iterations,
		st.ModelCalls,
		st.ToolCalls,
		st.ToolCallsFailed,
		st.ToolRetries,
		st.ToolNotFound,
	)
	if st.Aborted {
		fmt.Fprintf(c.statsOut, "Run %s stopped: %s\n", st.RunID, st.Reason)
	}
}
