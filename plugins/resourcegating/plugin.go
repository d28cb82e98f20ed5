// Package resourcegating refuses to start a manager while the host is under
// heavy load. The gate runs as a starting hook, so a refusal rolls the
// manager back to initialized and lifecycle.Retry can try again later.
package resourcegating

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/bft-labs/stagehand/pkg/lifecycle"
	"github.com/bft-labs/stagehand/pkg/log"
)

// ErrOverloaded is matched by every OverloadError.
var ErrOverloaded = errors.New("resourcegating: host overloaded")

// OverloadError reports which resource tripped the gate.
type OverloadError struct {
	Resource  string
	Usage     float64
	Threshold float64
}

func (e *OverloadError) Error() string {
	return fmt.Sprintf("resourcegating: %s usage %.2f above threshold %.2f", e.Resource, e.Usage, e.Threshold)
}

func (e *OverloadError) Unwrap() error { return ErrOverloaded }

// Sampler reports host usage as fractions between 0 and 1.
type Sampler interface {
	CPU(ctx context.Context) (float64, error)
	Memory(ctx context.Context) (float64, error)
}

// hostSampler reads usage from the operating system.
type hostSampler struct {
	interval time.Duration
}

func (s hostSampler) CPU(ctx context.Context) (float64, error) {
	pct, err := cpu.PercentWithContext(ctx, s.interval, false)
	if err != nil {
		return 0, err
	}
	if len(pct) == 0 {
		return 0, errors.New("no cpu samples")
	}
	return pct[0] / 100, nil
}

func (s hostSampler) Memory(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent / 100, nil
}

// Config holds configuration options for the gate.
type Config struct {
	// CPUThreshold is the CPU usage fraction (0.0-1.0) above which start is refused.
	// Zero disables the CPU check.
	CPUThreshold float64

	// MemoryThreshold is the memory usage fraction (0.0-1.0) above which start is refused.
	// Zero disables the memory check.
	MemoryThreshold float64

	// SampleInterval is how long CPU usage is measured for.
	// Default: 200ms
	SampleInterval time.Duration

	// Sampler overrides the host sampler.
	Sampler Sampler

	Logger log.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CPUThreshold:    0.85,
		MemoryThreshold: 0.90,
		SampleInterval:  200 * time.Millisecond,
	}
}

// Gate checks host usage against thresholds. It implements lifecycle.Hook.
type Gate struct {
	mu sync.RWMutex

	cpuThreshold float64
	memThreshold float64

	sampler Sampler
	logger  log.Logger
}

// New creates a gate with the given configuration.
func New(cfg Config) *Gate {
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 200 * time.Millisecond
	}
	if cfg.Sampler == nil {
		cfg.Sampler = hostSampler{interval: cfg.SampleInterval}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNoopLogger()
	}
	return &Gate{
		cpuThreshold: cfg.CPUThreshold,
		memThreshold: cfg.MemoryThreshold,
		sampler:      cfg.Sampler,
		logger:       cfg.Logger,
	}
}

// Name returns the plugin identifier.
func (g *Gate) Name() string {
	return "resourcegating"
}

// Enabled reports whether any threshold is set.
func (g *Gate) Enabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cpuThreshold > 0 || g.memThreshold > 0
}

// SetThresholds replaces both thresholds. Zero disables a check.
func (g *Gate) SetThresholds(cpuFrac, memFrac float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cpuThreshold = cpuFrac
	g.memThreshold = memFrac
}

// Check samples the host and returns an *OverloadError when a resource is
// above its threshold. Sampling errors are logged and let the check pass.
func (g *Gate) Check(ctx context.Context) error {
	g.mu.RLock()
	cpuMax, memMax := g.cpuThreshold, g.memThreshold
	g.mu.RUnlock()

	if cpuMax > 0 {
		usage, err := g.sampler.CPU(ctx)
		switch {
		case err != nil:
			g.logger.Warn("cpu sample failed", log.Err(err))
		case usage > cpuMax:
			return &OverloadError{Resource: "cpu", Usage: usage, Threshold: cpuMax}
		default:
			g.logger.Debug("cpu within threshold", log.Any("usage", usage))
		}
	}

	if memMax > 0 {
		usage, err := g.sampler.Memory(ctx)
		switch {
		case err != nil:
			g.logger.Warn("memory sample failed", log.Err(err))
		case usage > memMax:
			return &OverloadError{Resource: "memory", Usage: usage, Threshold: memMax}
		default:
			g.logger.Debug("memory within threshold", log.Any("usage", usage))
		}
	}

	return nil
}

// Run implements lifecycle.Hook.
func (g *Gate) Run(ctx context.Context) error {
	err := g.Check(ctx)
	if err != nil {
		g.logger.Warn("start refused", log.Err(err))
	}
	return err
}

var _ lifecycle.Hook = (*Gate)(nil)
