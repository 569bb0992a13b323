package assistants

import (
	"context"

	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/tools"
)

// NoopCallback does nothing.
type NoopCallback struct{}

func NewNoopCallback() *NoopCallback {
	return &NoopCallback{}
}

var _ Callback = (*NoopCallback)(nil)

func (l *NoopCallback) OnRunStart(ctx context.Context, input string) {}
func (l *NoopCallback) OnModelCallStart(ctx context.Context, call int, messages []llms.Message) {
}
func (l *NoopCallback) OnModelCallEnd(ctx context.Context, call int, text string, reqs []*tools.CallRequest) {
}
func (l *NoopCallback) OnRunEnd(ctx context.Context, res *Result) {}
func (l *NoopCallback) OnRunError(ctx context.Context, res *Result, err error) {}
func (l *NoopCallback) OnToolStart(ctx context.Context, req *tools.CallRequest, attempt int) {}
func (l *NoopCallback) OnToolEnd(ctx context.Context, req *tools.CallRequest, attempt int, result string) {
}
func (l *NoopCallback) OnToolError(ctx context.Context, req *tools.CallRequest, attempt int, err error) {
}
func (l *NoopCallback) OnToolNotFound(ctx context.Context, req *tools.CallRequest) {}
