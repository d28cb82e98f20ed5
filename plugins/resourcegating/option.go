package resourcegating

import "github.com/bft-labs/stagehand/pkg/lifecycle"

// HookRegistrar is the part of a manager Bind needs.
type HookRegistrar interface {
	On(stage lifecycle.Stage, hook lifecycle.Hook) lifecycle.HookID
}

// Bind registers g as a starting hook on m. Binding the same gate twice
// keeps a single registration.
//
// Usage:
//
//	g := resourcegating.New(resourcegating.Config{CPUThreshold: 0.85})
//	resourcegating.Bind(m, g)
//	err := lifecycle.Retry(ctx, m.Start, lifecycle.NewBackOff(time.Second, 10*time.Second, 5))
func Bind(m HookRegistrar, g *Gate) lifecycle.HookID {
	return m.On(lifecycle.StageStarting, g)
}
