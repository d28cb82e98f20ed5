// Package configwatcher reloads the hook timeout when the config file changes.
// It watches the file's directory, so editors that replace the file on save
// are picked up too.
package configwatcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/stagehand/pkg/log"
)

// TimeoutTarget receives reloaded timeouts. *lifecycle.DefaultManager implements it.
type TimeoutTarget interface {
	Timeout() time.Duration
	SetTimeout(d time.Duration)
}

// Loader reads the hook timeout from the file at path. ok is false when the
// file does not set one.
type Loader func(path string) (d time.Duration, ok bool, err error)

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the config file to watch.
	Path string

	// Load parses the timeout out of the file.
	Load Loader

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	Logger log.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// Plugin watches one config file.
type Plugin struct {
	mu sync.Mutex

	path          string
	load          Loader
	debounceDelay time.Duration
	target        TimeoutTarget
	logger        log.Logger

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// New creates a watcher applying reloads to target.
func New(cfg Config, target TimeoutTarget) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNoopLogger()
	}
	return &Plugin{
		path:          cfg.Path,
		load:          cfg.Load,
		debounceDelay: cfg.DebounceDelay,
		target:        target,
		logger:        cfg.Logger,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Start begins watching. Calling Start on a running watcher is a no-op.
func (p *Plugin) Start() error {
	if p.path == "" || p.load == nil {
		return errors.New("configwatcher: path and loader are required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.logger.Info("config watcher started", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(ctx, watcher)
	return nil
}

// Close stops watching and waits for the loop to exit.
func (p *Plugin) Close() error {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.Reload()
	})
}

// Reload reads the file once and applies a changed timeout.
func (p *Plugin) Reload() {
	d, ok, err := p.load(p.path)
	if err != nil {
		p.logger.Warn("config reload failed", log.String("path", p.path), log.Err(err))
		return
	}
	if !ok {
		p.logger.Debug("hook_timeout not set, keeping current", log.Duration("hook_timeout", p.target.Timeout()))
		return
	}
	if d < 0 {
		p.logger.Warn("ignoring negative hook timeout", log.Duration("hook_timeout", d))
		return
	}
	if prev := p.target.Timeout(); prev != d {
		p.target.SetTimeout(d)
		p.logger.Info("hook timeout reloaded",
			log.Duration("from", prev),
			log.Duration("to", d),
		)
	}
}
