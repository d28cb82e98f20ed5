// Package demo turns hook declarations from the config file into lifecycle
// hooks, so the CLI can exercise a manager without application code.
package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/stagehand/internal/cliconfig"
	"github.com/bft-labs/stagehand/pkg/lifecycle"
	"github.com/bft-labs/stagehand/pkg/log"
)

// Hook waits for Delay, honouring ctx, and then fails if Fail is set.
func Hook(spec cliconfig.HookSpec, logger log.Logger) lifecycle.Hook {
	return lifecycle.HookFunc(func(ctx context.Context) error {
		logger.Debug("hook running",
			log.String("hook", spec.Name),
			log.Stringer("stage", spec.Stage),
		)

		if spec.Delay > 0 {
			t := time.NewTimer(spec.Delay)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if spec.Fail {
			return fmt.Errorf("hook %q configured to fail", spec.Name)
		}

		logger.Info("hook done",
			log.String("hook", spec.Name),
			log.Stringer("stage", spec.Stage),
			log.Duration("delay", spec.Delay),
		)
		return nil
	})
}

// Register adds one hook per spec to m.
func Register(m lifecycle.Manager, specs []cliconfig.HookSpec, logger log.Logger) {
	for _, spec := range specs {
		m.On(spec.Stage, Hook(spec, logger))
	}
}
