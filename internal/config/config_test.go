package config

import (
	"path/filepath"
	"testing"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Sequencer.MaxTxPerBatch != 5 {
		t.Errorf("MaxTxPerBatch = %d, want 5", cfg.Sequencer.MaxTxPerBatch)
	}
	if cfg.Sequencer.QueueCapacity != 100 {
		t.Errorf("QueueCapacity = %d, want 100", cfg.Sequencer.QueueCapacity)
	}

	configPath := filepath.Join(dir, ConfigFileName)
	if _, err := LoadConfig(dir); err != nil {
		t.Fatalf("second LoadConfig() error = %v", err)
	}
	_ = configPath
}

func TestLoadConfigRoundTripsCustomValues(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Sequencer.MaxTxPerBatch = 42
	cfg.API.ListenAddr = "0.0.0.0:9999"
	if err := cfg.Save(ConfigPath(dir)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if got.Sequencer.MaxTxPerBatch != 42 {
		t.Errorf("MaxTxPerBatch = %d, want 42", got.Sequencer.MaxTxPerBatch)
	}
	if got.API.ListenAddr != "0.0.0.0:9999" {
		t.Errorf("ListenAddr = %q, want %q", got.API.ListenAddr, "0.0.0.0:9999")
	}
}
