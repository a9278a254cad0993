package config

import "testing"

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if cfg.Backend.TimeoutSeconds != 15 {
		t.Errorf("timeout = %d", cfg.Backend.TimeoutSeconds)
	}
	if cfg.Feed.ReplyConcurrency != 3 {
		t.Errorf("reply concurrency = %d", cfg.Feed.ReplyConcurrency)
	}
	if cfg.Feed.RefreshIntervalMinutes != 5 {
		t.Errorf("refresh interval = %d", cfg.Feed.RefreshIntervalMinutes)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache disabled by default")
	}
}

func TestDBPathExplicitOverride(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Cache.DBPath = "/tmp/custom.db"

	path, err := cfg.DBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path != "/tmp/custom.db" {
		t.Errorf("path = %q", path)
	}
}

func TestDBPathDefault(t *testing.T) {
	t.Parallel()

	path, err := Default().DBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Error("empty default db path")
	}
}
