// Command toolchat is an interactive chat client that lets the model call
// tools exposed by MCP servers and in-process tools.
//
// Usage:
//
//	LLM_API_KEY=sk-... LLM_MODEL_TYPE=deepseek toolchat -config servers_config.json
//
// Type `quit` or `exit` to end the chat.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/assistants"
	"github.com/effective-security/toolchat/callbacks"
	"github.com/effective-security/toolchat/chatmodel"
	"github.com/effective-security/toolchat/config"
	"github.com/effective-security/toolchat/conversation"
	"github.com/effective-security/toolchat/dispatcher"
	"github.com/effective-security/toolchat/mcp"
	"github.com/effective-security/toolchat/pkg/llmfactory"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/pkg/prompts"
	"github.com/effective-security/toolchat/store"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "toolchat")

const cleanupTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "toolchat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		cfgFile       = flag.String("config", "", "Path to the configuration file: .json, .yaml or .toml")
		model         = flag.String("model", "", "Preferred model name")
		streaming     = flag.Bool("stream", false, "Stream model output")
		maxIterations = flag.Int("max-iterations", 0, "Maximum tool rounds per question")
		verbose       = flag.Bool("verbose", false, "Print debug logs and model calls")
	)
	flag.Parse()

	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	if *verbose {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.WARNING)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		return err
	}

	llm, err := newModel(&cfg.LLM, *model)
	if err != nil {
		return err
	}

	sessions, err := connectSessions(ctx, cfg)
	if err != nil {
		return err
	}
	// cleanup must run even when ctx was interrupted
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		if err := mcp.CleanupAll(cctx, sessions); err != nil {
			fmt.Fprintf(os.Stderr, "cleanup: %v\n", err)
		}
	}()

	registry, err := tools.BuildRegistry(ctx, sessions)
	if err != nil {
		return err
	}
	systemPrompt, err := prompts.SystemPrompt(registry.Descriptors(), cfg.SystemPrompt)
	if err != nil {
		return err
	}

	mode := callbacks.ModeDefault
	if *verbose {
		mode = callbacks.ModeVerbose
	}
	handlers := []assistants.Callback{
		callbacks.NewPrinter(os.Stderr, mode),
		callbacks.NewPackageLogger(logger),
	}
	var scratchpad *callbacks.Scratchpad
	if *verbose {
		scratchpad = callbacks.NewScratchpad(mode)
		handlers = append(handlers, scratchpad)
	}
	cb := callbacks.NewFanout(handlers...)

	opts := cfg.Engine.ControllerOptions()
	opts = append(opts, assistants.WithCallback(cb))
	if *streaming {
		opts = append(opts, assistants.WithStreaming(true))
	}
	if *maxIterations > 0 {
		opts = append(opts, assistants.WithMaxIterations(*maxIterations))
	}
	controller := assistants.NewController(llm, dispatcher.New(registry, cfg.Engine.DispatcherOptions()...), opts...)

	conv, err := conversation.New(ctx, chatmodel.NewChatID(), systemPrompt, store.NewMemoryStore())
	if err != nil {
		return err
	}
	defer func() {
		_ = conv.Close(context.Background())
	}()

	fmt.Fprintf(os.Stderr, "Connected to %d tool sessions, %d tools available.\n", len(sessions), registry.Len())

	c := &chat{
		controller: controller,
		conv:       conv,
		in:         os.Stdin,
		out:        os.Stdout,
		streaming:  controller.Config().Streaming,
		stats:      scratchpad,
		statsOut:   os.Stderr,
	}
	err = c.loop(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "\nInterrupted.")
		return nil
	}
	return err
}

func newModel(cfg *llmfactory.Config, preferred string) (llms.Model, error) {
	f := llmfactory.New(cfg)
	if preferred != "" {
		return f.ModelByName(preferred)
	}
	return f.DefaultModel()
}

// connectSessions returns the MCP sessions and the in-process tools session.
func connectSessions(ctx context.Context, cfg *config.Config) (map[string]tools.Session, error) {
	if _, ok := cfg.MCPServers[localSessionID]; ok && len(cfg.LocalTools) > 0 {
		return nil, errors.Wrapf(tools.ErrDuplicateSession, "server name %q is reserved for local tools", localSessionID)
	}

	local, err := newLocalSession(cfg.LocalTools)
	if err != nil {
		return nil, err
	}

	sessions, err := mcp.ConnectAll(ctx, cfg.MCPServers)
	if err != nil {
		return nil, err
	}
	if local != nil {
		sessions[localSessionID] = local
	}
	return sessions, nil
}
