package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server_url: https://dav.example.com
home_set: /calendars/alice/
username: alice
password: hunter2
data_dir: /tmp/davtask-test
sync_interval: 90s
calendars:
  - name: Work
    href: /calendars/alice/work/
  - name: Journal
    href: local://journal-cal
    local_only: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServerURL != "https://dav.example.com" {
		t.Errorf("unexpected server url %q", cfg.ServerURL)
	}
	if cfg.SyncInterval != 90*time.Second {
		t.Errorf("unexpected sync interval %v", cfg.SyncInterval)
	}
	if len(cfg.Calendars) != 2 {
		t.Fatalf("expected 2 calendars, got %d", len(cfg.Calendars))
	}

	locals := cfg.LocalCalendars()
	if len(locals) != 1 || locals[0].Href != "local://journal-cal" {
		t.Errorf("unexpected local calendars %+v", locals)
	}
	if !locals[0].LocalOnly {
		t.Errorf("local calendar entry must be flagged local-only")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "username: bob\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.SyncInterval != time.Minute {
		t.Errorf("default sync interval not applied: %v", cfg.SyncInterval)
	}
	if cfg.DataDir == "" {
		t.Errorf("default data dir not applied")
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Errorf("explicitly named missing config must error")
	}
}
