package config

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, `limits:
  rate_per_minute: 30
`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	go func() {
		if err := Watch(ctx, p, func(c *Config) {
			select {
			case reloaded <- c:
			default:
			}
		}); err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()

	// Give the watcher a moment to install itself.
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(p, []byte("limits:\n  rate_per_minute: 5\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Limits.RatePerMinute != 5 {
			t.Errorf("rate_per_minute after reload: got %d, want 5", cfg.Limits.RatePerMinute)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestWatch_KeepsPreviousOnBadReload(t *testing.T) {
	p := writeConfig(t, `limits:
  rate_per_minute: 30
`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	go Watch(ctx, p, func(c *Config) { reloaded <- c }) //nolint:errcheck

	time.Sleep(50 * time.Millisecond)

	// Invalid yaml must not reach onChange.
	if err := os.WriteFile(p, []byte("limits: [broken"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		t.Fatalf("onChange called with %+v for invalid config", cfg)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatch_MissingFile(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := Watch(ctx, t.TempDir()+"/absent.yaml", func(*Config) {})
	if err == nil {
		t.Fatal("Watch: expected error for missing file")
	}
}
