package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadController_EmptyFilenameReturnsDefaults(t *testing.T) {
	cfg, err := LoadController("")
	if err != nil {
		t.Fatalf("LoadController: %v", err)
	}
	if cfg.UpdateDelay != defaultUpdateDelay || cfg.Timeout != 3*defaultUpdateDelay {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadController_OverridesDefaults(t *testing.T) {
	path := writeTemp(t, "controller:\n  log_dir: /var/log/sdnctl\n  metrics_addr: :9999\n  update_delay_sec: 5\n")
	cfg, err := LoadController(path)
	if err != nil {
		t.Fatalf("LoadController: %v", err)
	}
	if cfg.LogDir != "/var/log/sdnctl" {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if cfg.MetricsAddr != ":9999" {
		t.Errorf("MetricsAddr = %q", cfg.MetricsAddr)
	}
	if cfg.UpdateDelay != 5*time.Second {
		t.Errorf("UpdateDelay = %v", cfg.UpdateDelay)
	}
	if cfg.Timeout != 15*time.Second {
		t.Errorf("Timeout should derive from update_delay_sec when timeout_sec unset, got %v", cfg.Timeout)
	}
}

func TestLoadController_ExplicitTimeoutOverridesDerived(t *testing.T) {
	path := writeTemp(t, "controller:\n  update_delay_sec: 5\n  timeout_sec: 100\n")
	cfg, err := LoadController(path)
	if err != nil {
		t.Fatalf("LoadController: %v", err)
	}
	if cfg.Timeout != 100*time.Second {
		t.Errorf("Timeout = %v, want 100s", cfg.Timeout)
	}
}

func TestLoadController_MissingFile(t *testing.T) {
	if _, err := LoadController("/nonexistent/path.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadSwitch_EmptyFilenameReturnsDefaults(t *testing.T) {
	cfg, err := LoadSwitch("")
	if err != nil {
		t.Fatalf("LoadSwitch: %v", err)
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("expected metrics disabled by default for switches, got %q", cfg.MetricsAddr)
	}
}

func TestLoadSwitch_OverridesDefaults(t *testing.T) {
	path := writeTemp(t, "switch:\n  log_dir: /tmp/switches\n  update_delay_sec: 1\n  timeout_sec: 10\n")
	cfg, err := LoadSwitch(path)
	if err != nil {
		t.Fatalf("LoadSwitch: %v", err)
	}
	if cfg.LogDir != "/tmp/switches" || cfg.UpdateDelay != time.Second || cfg.Timeout != 10*time.Second {
		t.Errorf("got %+v", cfg)
	}
}
