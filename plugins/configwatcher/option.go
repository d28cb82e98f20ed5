package configwatcher

import (
	"context"

	"github.com/bft-labs/stagehand/pkg/lifecycle"
)

// HookRegistrar is the part of a manager Bind needs.
type HookRegistrar interface {
	On(stage lifecycle.Stage, hook lifecycle.Hook) lifecycle.HookID
}

// Bind ties the watcher to a manager: it starts watching when the manager
// enters starting and stops when it enters stopping.
//
//	w := configwatcher.New(configwatcher.Config{Path: path, Load: cliconfig.LoadHookTimeout}, m)
//	configwatcher.Bind(m, w)
func Bind(m HookRegistrar, p *Plugin) {
	m.On(lifecycle.StageStarting, lifecycle.HookFunc(func(ctx context.Context) error {
		return p.Start()
	}))
	m.On(lifecycle.StageStopping, lifecycle.HookFunc(func(ctx context.Context) error {
		return p.Close()
	}))
}
