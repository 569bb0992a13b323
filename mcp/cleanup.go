package mcp

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/xlog"
	"go.uber.org/multierr"
)

// ConnectAll connects to every configured server in name order.
// If one fails, the sessions connected so far are cleaned up.
func ConnectAll(ctx context.Context, servers map[string]*ServerConfig) (map[string]tools.Session, error) {
	sessions := make(map[string]tools.Session, len(servers))
	for _, name := range slices.Sorted(maps.Keys(servers)) {
		s := NewSession(name, servers[name])
		if err := s.Connect(ctx); err != nil {
			if cerr := CleanupAll(ctx, sessions); cerr != nil {
				logger.ContextKV(ctx, xlog.WARNING, "reason", "cleanup", "err", cerr.Error())
			}
			return nil, err
		}
		sessions[name] = s
	}
	return sessions, nil
}

// CleanupAll releases all sessions concurrently.
// Every cleanup is attempted; failures are combined into the returned error.
func CleanupAll(ctx context.Context, sessions map[string]tools.Session) error {
	names := slices.Sorted(maps.Keys(sessions))
	errs := make([]error, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string, s tools.Session) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = errors.Newf("cleanup of %s panicked: %v", name, r)
					logger.ContextKV(ctx, xlog.ERROR, "reason", "panic", "server", name, "err", errs[i].Error())
				}
			}()
			errs[i] = s.Cleanup(ctx)
		}(i, name, sessions[name])
	}
	wg.Wait()

	return multierr.Combine(errs...)
}
