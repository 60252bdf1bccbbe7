package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Speech.MaxChunkLength != 300 {
		t.Fatalf("expected default chunk length 300, got %d", cfg.Speech.MaxChunkLength)
	}
	if cfg.Backend.Mode != "azure" {
		t.Fatalf("expected default backend azure, got %q", cfg.Backend.Mode)
	}
	if cfg.Bus.Enabled {
		t.Fatal("expected bus disabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "altavox.yaml")
	data := []byte(`
service_name: altavox-test
speech:
  max_chunk_length: 200
  concurrency: 3
backend:
  mode: mock
audit:
  retention_mode: persistent
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServiceName != "altavox-test" {
		t.Fatalf("expected service name override, got %q", cfg.ServiceName)
	}
	if cfg.Speech.MaxChunkLength != 200 || cfg.Speech.Concurrency != 3 {
		t.Fatalf("expected speech overrides, got %+v", cfg.Speech)
	}
	if cfg.Audit.RetentionMode != "persistent" {
		t.Fatalf("expected persistent retention, got %q", cfg.Audit.RetentionMode)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ALTAVOX_SPEECH_DEFAULT_VOICE", "en-GB-SoniaNeural")
	t.Setenv("ALTAVOX_SPEECH_CONCURRENCY", "8")
	t.Setenv("ALTAVOX_AUTH_API_KEY", "secret")
	t.Setenv("ALTAVOX_BACKEND_MODE", "mock")
	t.Setenv("ALTAVOX_BUS_ENABLED", "true")
	t.Setenv("ALTAVOX_BUS_EMBEDDED", "false")
	t.Setenv("ALTAVOX_BUS_SERVERS", "nats://one:4222, nats://two:4222")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Speech.DefaultVoice != "en-GB-SoniaNeural" {
		t.Fatalf("expected voice override, got %q", cfg.Speech.DefaultVoice)
	}
	if cfg.Speech.Concurrency != 8 {
		t.Fatalf("expected concurrency 8, got %d", cfg.Speech.Concurrency)
	}
	if cfg.Auth.APIKey != "secret" {
		t.Fatal("expected api key override")
	}
	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
}

func TestValidateRejectsBadBackend(t *testing.T) {
	t.Setenv("ALTAVOX_BACKEND_MODE", "carrier-pigeon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for unknown backend mode")
	}
}

func TestValidateExecRequiresCommand(t *testing.T) {
	t.Setenv("ALTAVOX_BACKEND_MODE", "exec")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for exec mode without command")
	}
}
