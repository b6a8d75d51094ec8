package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultConfig(t *testing.T) {
	opts := GetDefaultOptions()
	if opts.CacheTTLDuration() != 10*time.Minute {
		t.Errorf("Expected cache ttl 10m, got %s", opts.CacheTTLDuration())
	}
	if opts.ChunkThreshold != 50000 || opts.ChunkSize != 30000 {
		t.Errorf("Unexpected chunking defaults: %d/%d", opts.ChunkThreshold, opts.ChunkSize)
	}
	if opts.FeedTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected feed timeout 30s, got %s", opts.FeedTimeoutDuration())
	}
	if opts.ImageTimeoutDuration() != 10*time.Second {
		t.Errorf("Expected image timeout 10s, got %s", opts.ImageTimeoutDuration())
	}
}

func TestResolveData(t *testing.T) {
	opts := GetDefaultOptions()
	opts.Data = filepath.Join(t.TempDir(), "nested", "data")
	if err := opts.ResolveData(); err != nil {
		t.Fatalf("Error resolving data dir: %v", err)
	}
	if _, err := os.Stat(opts.Data); err != nil {
		t.Fatalf("Data dir not created: %v", err)
	}
	if opts.DSN != filepath.Join(opts.Data, "e-oasis.db") {
		t.Errorf("DSN not derived from data dir: %s", opts.DSN)
	}
	if opts.CatalogPath() != filepath.Join(opts.Data, "library.json") {
		t.Errorf("Unexpected catalog path: %s", opts.CatalogPath())
	}
}

func TestLoadConfigFile(t *testing.T) {
	GetDefaultOptions()
	file := filepath.Join(t.TempDir(), "config.toml")
	content := `
log_level = "DEBUG"
log_file = "test.log"
port = 2333
host = "127.0.0.1"
chunk_size = 1000
dedup_quorum = 0.75
`
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	opts, err := ParseFile(file)
	if err != nil {
		t.Fatalf("Error loading config: %s", err)
	}
	if opts.Host != "127.0.0.1" {
		t.Errorf("Host not set")
	}
	if opts.LogFile != "test.log" {
		t.Errorf("LogFile not set")
	}
	if opts.Port != 2333 {
		t.Errorf("Port not set")
	}
	if opts.LogLevel != "DEBUG" {
		t.Errorf("LogLevel not set")
	}
	if opts.ChunkSize != 1000 {
		t.Errorf("ChunkSize not set")
	}
	if opts.DedupQuorum != 0.75 {
		t.Errorf("DedupQuorum not set")
	}
	// Keys missing from the file keep their defaults
	if opts.ChunkThreshold != defaultChunkThreshold {
		t.Errorf("ChunkThreshold lost its default: %d", opts.ChunkThreshold)
	}
}

func TestParseMissingFile(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("Expected an error for a missing config file")
	}
}
