package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("uses explicit path", func(t *testing.T) {
		d, err := New("/tmp/pagetext-test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Path() != "/tmp/pagetext-test" {
			t.Errorf("expected /tmp/pagetext-test, got %s", d.Path())
		}
	})

	t.Run("defaults to home dotdir", func(t *testing.T) {
		d, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		home, _ := os.UserHomeDir()
		want := filepath.Join(home, DefaultDirName)
		if d.Path() != want {
			t.Errorf("expected %s, got %s", want, d.Path())
		}
	})
}

func TestEnsureExists(t *testing.T) {
	tmp := t.TempDir()
	d, err := New(filepath.Join(tmp, ".pagetext"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Exists() {
		t.Fatal("directory should not exist yet")
	}

	if err := d.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	if !d.Exists() {
		t.Error("directory should exist after EnsureExists")
	}
	if _, err := os.Stat(d.ExportsPath()); err != nil {
		t.Errorf("exports directory missing: %v", err)
	}
}

func TestConfigPath(t *testing.T) {
	d, _ := New("/srv/pagetext")
	if d.ConfigPath() != "/srv/pagetext/config.yaml" {
		t.Errorf("unexpected config path: %s", d.ConfigPath())
	}
	if d.ConfigExists() {
		t.Error("config should not exist")
	}
}
