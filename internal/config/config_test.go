package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxReconnectAttempts != 5 {
		t.Errorf("MaxReconnectAttempts = %d, want 5", cfg.MaxReconnectAttempts)
	}
	if cfg.Bulk.BatchSize != 30 {
		t.Errorf("Bulk.BatchSize = %d, want 30", cfg.Bulk.BatchSize)
	}
	if !cfg.GroupsOnly {
		t.Error("GroupsOnly should default to true")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.MaxReconnectAttempts = 3
	cfg.Bulk.MinDelayMS = 100
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.MaxReconnectAttempts != 3 {
		t.Errorf("MaxReconnectAttempts = %d, want 3", loaded.MaxReconnectAttempts)
	}
	if loaded.Bulk.MinDelayMS != 100 {
		t.Errorf("Bulk.MinDelayMS = %d, want 100", loaded.Bulk.MinDelayMS)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.GroupsOnly = false
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.GroupsOnly {
		t.Error("GroupsOnly should be false after load")
	}
	if loaded.GroupCacheSize != 1000 {
		t.Errorf("GroupCacheSize = %d, want default 1000", loaded.GroupCacheSize)
	}
}
