package configwatcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bft-labs/stagehand/internal/cliconfig"
	"github.com/bft-labs/stagehand/pkg/lifecycle"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPlugin_ReloadsTimeoutOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `hook_timeout = "1s"`)

	m := lifecycle.NewManager(lifecycle.WithTimeout(time.Second))
	p := New(Config{
		Path:          path,
		Load:          cliconfig.LoadHookTimeout,
		DebounceDelay: 10 * time.Millisecond,
	}, m)

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Close()

	writeFile(t, path, `hook_timeout = "250ms"`)

	waitFor(t, func() bool { return m.Timeout() == 250*time.Millisecond })
}

func TestPlugin_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `hook_timeout = "1s"`)

	loads := make(chan string, 10)
	p := New(Config{
		Path: path,
		Load: func(p string) (time.Duration, bool, error) {
			loads <- p
			return time.Second, true, nil
		},
		DebounceDelay: 5 * time.Millisecond,
	}, lifecycle.NewManager())

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Close()

	writeFile(t, filepath.Join(dir, "other.toml"), "x = 1")

	select {
	case got := <-loads:
		t.Errorf("unexpected reload of %s", got)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestPlugin_ReloadKeepsTimeoutOnError(t *testing.T) {
	m := lifecycle.NewManager(lifecycle.WithTimeout(time.Second))
	p := New(Config{
		Path: "unused",
		Load: func(string) (time.Duration, bool, error) { return 0, false, errors.New("bad file") },
	}, m)

	p.Reload()

	if m.Timeout() != time.Second {
		t.Errorf("Timeout() = %v, want unchanged 1s", m.Timeout())
	}
}

func TestPlugin_ReloadKeepsTimeoutWhenUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `name = "api"`)

	m := lifecycle.NewManager(lifecycle.WithTimeout(3 * time.Second))
	p := New(Config{Path: path, Load: cliconfig.LoadHookTimeout}, m)

	p.Reload()

	if m.Timeout() != 3*time.Second {
		t.Errorf("Timeout() = %v, want flag value 3s kept", m.Timeout())
	}

	writeFile(t, path, `hook_timeout = "0s"`)
	p.Reload()

	if m.Timeout() != 0 {
		t.Errorf("Timeout() = %v, want explicit 0", m.Timeout())
	}
}

func TestPlugin_StartRequiresPathAndLoader(t *testing.T) {
	if err := New(DefaultConfig(), lifecycle.NewManager()).Start(); err == nil {
		t.Error("Start() without path succeeded")
	}
}

func TestBind_FollowsManager(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `hook_timeout = "0s"`)

	m := lifecycle.NewManager()
	p := New(Config{Path: path, Load: cliconfig.LoadHookTimeout, DebounceDelay: 10 * time.Millisecond}, m)
	Bind(m, p)
	ctx := context.Background()

	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	writeFile(t, path, `hook_timeout = "2s"`)
	waitFor(t, func() bool { return m.Timeout() == 2*time.Second })

	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	p.mu.Lock()
	running := p.cancel != nil
	p.mu.Unlock()
	if running {
		t.Error("watcher still running after Stop")
	}
}
