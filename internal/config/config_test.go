package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Provider != "ollama" || c.Model != "mistral" {
		t.Fatalf("unexpected model defaults: %s/%s", c.Provider, c.Model)
	}
	if c.OllamaHost != "http://127.0.0.1:11434" {
		t.Fatalf("unexpected ollama host: %s", c.OllamaHost)
	}
	if !c.InsightsEnabled || c.InsightsStrict {
		t.Fatalf("insights should default to enabled, non-strict")
	}
	if c.RetryMaxAttempts != 2 || c.InsightsTimeout().Seconds() != 120 {
		t.Fatalf("unexpected retry/timeout defaults: %+v", c)
	}
	if c.UploadLimit() != 32<<20 {
		t.Fatalf("unexpected upload limit: %d", c.UploadLimit())
	}
	if filepath.Base(c.DataDir) != "data" {
		t.Fatalf("unexpected data dir: %s", c.DataDir)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "model: llama3\nlisten_addr: 0.0.0.0:9000\ndata_dir: /tmp/edaloom-test\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("EDALOOM_MODEL", "qwen2")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Model != "qwen2" {
		t.Fatalf("env should override file, got %s", c.Model)
	}
	if c.ListenAddr != "0.0.0.0:9000" || c.DataDir != "/tmp/edaloom-test" {
		t.Fatalf("file values not applied: %+v", c)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Model = "phi3"
	c.InsightsStrict = true
	if err := Save(c, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Model != "phi3" || !again.InsightsStrict {
		t.Fatalf("saved values lost: %+v", again)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("model: [unterminated\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for malformed config")
	}
}
