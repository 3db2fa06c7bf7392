package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Pipeline.ResizeFactor != 1.2 {
		t.Errorf("expected resize factor 1.2, got %v", cfg.Pipeline.ResizeFactor)
	}
	if cfg.Pipeline.ApplyContrast {
		t.Error("contrast stage should be off by default")
	}
	if cfg.Engine.EngineMode != 1 {
		t.Errorf("expected LSTM engine mode 1, got %d", cfg.Engine.EngineMode)
	}
	if cfg.Engine.PageSegMode != 6 {
		t.Errorf("expected PSM 6, got %d", cfg.Engine.PageSegMode)
	}
	if !cfg.Engine.PreserveInterwordSpaces {
		t.Error("expected preserve_interword_spaces enabled")
	}
	if cfg.Rasterize.PDFRenderDPI != 300 {
		t.Errorf("expected 300 DPI, got %d", cfg.Rasterize.PDFRenderDPI)
	}
}

func TestValidPageSegMode(t *testing.T) {
	for _, psm := range []int{3, 4, 6, 11, 12} {
		if !ValidPageSegMode(psm) {
			t.Errorf("PSM %d should be valid", psm)
		}
	}
	for _, psm := range []int{0, 1, 7, 13} {
		if ValidPageSegMode(psm) {
			t.Errorf("PSM %d should not be exposed", psm)
		}
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_TESSDATA", "/usr/share/tessdata")
		defer os.Unsetenv("TEST_TESSDATA")

		result := ResolveEnvVars("${TEST_TESSDATA}")
		if result != "/usr/share/tessdata" {
			t.Errorf("expected /usr/share/tessdata, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("/opt/tessdata")
		if result != "/opt/tessdata" {
			t.Errorf("expected /opt/tessdata, got %s", result)
		}
	})
}

func TestManagerHotReload(t *testing.T) {
	defer viper.Reset()

	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte("pipeline:\n  resize_factor: 1.5\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if got := mgr.Get().Pipeline.ResizeFactor; got != 1.5 {
		t.Fatalf("expected resize factor 1.5 from file, got %v", got)
	}

	changed := make(chan *Config, 1)
	mgr.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	mgr.WatchConfig()

	if err := os.WriteFile(path, []byte("pipeline:\n  resize_factor: 2.5\n"), 0o644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case c := <-changed:
		if c.Pipeline.ResizeFactor != 2.5 {
			t.Errorf("callback got resize factor %v, want 2.5", c.Pipeline.ResizeFactor)
		}
		if got := mgr.Get().Pipeline.ResizeFactor; got != 2.5 {
			t.Errorf("Get() returned %v after reload, want 2.5", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change callback did not fire")
	}
}

func TestWriteDefault(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	content := string(data)

	if !strings.HasPrefix(content, "# pagetext configuration") {
		t.Error("expected header comment")
	}
	if !strings.Contains(content, "resize_factor: 1.2") {
		t.Error("expected resize_factor in written config")
	}
	if !strings.Contains(content, "page_seg_mode: 6") {
		t.Error("expected page_seg_mode in written config")
	}
}
