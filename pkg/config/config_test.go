package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFromEnvPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
	  "bridge": {"host": "127.0.0.1", "port": 25000, "packet_size": 8192},
	  "dispatcher": {"interval_ms": 25},
	  "pipeline": {"shared_library": "shared.toml", "mesh_extensions": [".pskx"]},
	  "mapping": {"rules_file": "rules.toml", "watch": true},
	  "logging": {"format": "json", "level": "debug", "add_source": true}
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("MHUR_BRIDGE_CONFIG", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if got := cfg.Bridge.Address(); got != "127.0.0.1:25000" {
		t.Fatalf("bridge address = %q, want %q", got, "127.0.0.1:25000")
	}
	if cfg.Bridge.PacketSize != 8192 {
		t.Fatalf("bridge.packet_size = %d, want 8192", cfg.Bridge.PacketSize)
	}
	if got := cfg.Bridge.ReadTimeout(); got != 3*time.Second {
		t.Fatalf("read timeout = %v, want 3s", got)
	}
	if got := cfg.Dispatcher.Interval(); got != 25*time.Millisecond {
		t.Fatalf("dispatcher interval = %v, want 25ms", got)
	}
	if len(cfg.Pipeline.MeshExtensions) != 1 || cfg.Pipeline.MeshExtensions[0] != ".pskx" {
		t.Fatalf("mesh extensions = %v, want [.pskx]", cfg.Pipeline.MeshExtensions)
	}
	if cfg.Pipeline.LODSuffix != DefaultLODSuffix {
		t.Fatalf("lod suffix = %q, want default", cfg.Pipeline.LODSuffix)
	}
	if !cfg.Pipeline.ShouldReorientBones() {
		t.Fatal("reorient bones = false, want true by default")
	}
	if !cfg.Mapping.Watch || cfg.Mapping.RulesFile != "rules.toml" {
		t.Fatalf("mapping = %+v, want rules.toml with watch", cfg.Mapping)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("logging.format = %q, want %q", cfg.Logging.Format, "json")
	}
	if !cfg.Logging.AddSource {
		t.Fatal("logging.add_source = false, want true")
	}
}

func TestLoadConfigInvalidEnvPath(t *testing.T) {
	t.Setenv("MHUR_BRIDGE_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing config path")
	}
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	t.Setenv("MHUR_BRIDGE_CONFIG", "")
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if got := cfg.Bridge.Address(); got != "localhost:24290" {
		t.Fatalf("bridge address = %q, want localhost:24290", got)
	}
	if got := cfg.Dispatcher.Interval(); got != 10*time.Millisecond {
		t.Fatalf("dispatcher interval = %v, want 10ms", got)
	}
	if cfg.Pipeline.MeshExtensions[0] != ".psk" || cfg.Pipeline.MeshExtensions[1] != ".pskx" {
		t.Fatalf("mesh extensions = %v, want [.psk .pskx]", cfg.Pipeline.MeshExtensions)
	}
	if cfg.Status.Enabled {
		t.Fatal("status endpoint enabled by default")
	}
	if got := cfg.Status.Address(); got != "localhost:24291" {
		t.Fatalf("status address = %q, want localhost:24291", got)
	}
}

func TestEnvOverridesPort(t *testing.T) {
	t.Setenv("MHUR_BRIDGE_CONFIG", "")
	t.Setenv("MHUR_BRIDGE_PORT", "31000")
	t.Setenv("MHUR_BRIDGE_HOST", "0.0.0.0")
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if got := cfg.Bridge.Address(); got != "0.0.0.0:31000" {
		t.Fatalf("bridge address = %q, want 0.0.0.0:31000", got)
	}
}

func TestEnvOverridesRejectInvalidPort(t *testing.T) {
	t.Setenv("MHUR_BRIDGE_CONFIG", "")
	t.Setenv("MHUR_BRIDGE_PORT", "not-a-port")
	t.Chdir(t.TempDir())

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for invalid port override")
	}
}
