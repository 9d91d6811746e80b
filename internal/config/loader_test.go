package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsWhenNoFiles(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "absent.json"), filepath.Join(dir, "also-absent.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := DefaultConfig()
	if cfg.MaxConcurrent != want.MaxConcurrent {
		t.Errorf("max concurrent = %d, want default %d", cfg.MaxConcurrent, want.MaxConcurrent)
	}
	if cfg.Retry.Multiplier != want.Retry.Multiplier {
		t.Errorf("multiplier = %v, want default %v", cfg.Retry.Multiplier, want.Retry.Multiplier)
	}
	if _, ok := cfg.Agents["shell"]; !ok {
		t.Error("default shell agent missing")
	}
}

func TestLoad_ProjectOverridesGlobal(t *testing.T) {
	dir := t.TempDir()

	global := writeConfig(t, dir, "global.json", `{
		"max_concurrent": 8,
		"retry": {"initial_interval_ms": 250},
		"agents": {"python": {"command": "python3", "args": ["-u"]}}
	}`)
	project := writeConfig(t, dir, "project.json", `{
		"max_concurrent": 2,
		"breaker": {"failure_threshold": 10}
	}`)

	cfg, err := Load(global, project)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.MaxConcurrent != 2 {
		t.Errorf("max concurrent = %d, want project value 2", cfg.MaxConcurrent)
	}
	if cfg.Retry.InitialIntervalMS != 250 {
		t.Errorf("retry initial = %d, want global value 250", cfg.Retry.InitialIntervalMS)
	}
	if cfg.Breaker.FailureThreshold != 10 {
		t.Errorf("failure threshold = %d, want project value 10", cfg.Breaker.FailureThreshold)
	}
	// Unset fields keep defaults
	if cfg.Breaker.CooldownSeconds != 30 {
		t.Errorf("cooldown = %d, want default 30", cfg.Breaker.CooldownSeconds)
	}
	// Agent maps merge: the global python agent joins the default shell agent
	if _, ok := cfg.Agents["python"]; !ok {
		t.Error("global python agent missing after merge")
	}
	if _, ok := cfg.Agents["shell"]; !ok {
		t.Error("default shell agent lost during merge")
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	bad := writeConfig(t, dir, "bad.json", "{not valid")

	if _, err := Load(bad, ""); err == nil {
		t.Error("expected error for malformed global config")
	}
	if _, err := Load("", bad); err == nil {
		t.Error("expected error for malformed project config")
	}
}

func TestSave_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	// Parent directory does not exist yet; Save must create it
	path := filepath.Join(dir, "nested", "config.json")

	cfg := DefaultConfig()
	cfg.MaxConcurrent = 16
	cfg.Breaker.CooldownSeconds = 120

	if err := Save(cfg, path); err != nil {
		t.Fatalf("saving config: %v", err)
	}

	loaded, err := Load(path, "")
	if err != nil {
		t.Fatalf("reloading config: %v", err)
	}
	if loaded.MaxConcurrent != 16 {
		t.Errorf("max concurrent = %d, want 16", loaded.MaxConcurrent)
	}
	if loaded.Breaker.CooldownSeconds != 120 {
		t.Errorf("cooldown = %d, want 120", loaded.Breaker.CooldownSeconds)
	}
}
