package main

import (
	"testing"

	"pagewiki/app/internal/config"
)

func TestApplyOverridesOnlyTouchesChangedFlags(t *testing.T) {
	root := newRootCmd()
	if err := root.ParseFlags([]string{"--port", "9191"}); err != nil {
		t.Fatalf("ParseFlags returned error: %v", err)
	}

	cfg := &config.Config{ServerPort: 8090, DB: config.DB{Path: "./data/wiki.db"}}
	port, err := root.Flags().GetInt("port")
	if err != nil {
		t.Fatalf("GetInt returned error: %v", err)
	}
	applyOverrides(root, cfg, overrides{port: port})

	if cfg.ServerPort != 9191 {
		t.Fatalf("expected port override, got %d", cfg.ServerPort)
	}
	if cfg.DB.Path != "./data/wiki.db" {
		t.Fatalf("expected db path to be kept, got %q", cfg.DB.Path)
	}
}

func TestRootCommandHasMigrate(t *testing.T) {
	root := newRootCmd()

	cmd, _, err := root.Find([]string{"migrate"})
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	if cmd.Name() != "migrate" {
		t.Fatalf("expected migrate command, got %q", cmd.Name())
	}
}
