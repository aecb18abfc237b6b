package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "7430" {
		t.Errorf("Port = %q, want 7430", cfg.Server.Port)
	}
	if cfg.Engine.RootFolderTitle != "Arcify" {
		t.Errorf("RootFolderTitle = %q", cfg.Engine.RootFolderTitle)
	}
	if !cfg.RateLimit.Enabled {
		t.Error("Rate limiting should default to enabled")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	os.Setenv("ARCIFY_PORT", "9999")
	os.Setenv("ARCIFY_ARCHIVE_ENABLED", "true")
	defer os.Unsetenv("ARCIFY_PORT")
	defer os.Unsetenv("ARCIFY_ARCHIVE_ENABLED")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9999" {
		t.Errorf("Port = %q, want 9999", cfg.Server.Port)
	}
	if !cfg.Engine.ArchiveEnabled {
		t.Error("ArchiveEnabled not read from environment")
	}
}
