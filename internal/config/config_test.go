package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "8000" {
		t.Errorf("server port = %q, want 8000", cfg.Server.Port)
	}
	if cfg.Ingest.Concurrency != 1 {
		t.Errorf("ingest concurrency = %d, want 1", cfg.Ingest.Concurrency)
	}
	if cfg.Groq.Model != "whisper-large-v3" {
		t.Errorf("groq model = %q", cfg.Groq.Model)
	}
	if cfg.Ingest.VideoTimeout != 30*time.Minute {
		t.Errorf("video timeout = %v", cfg.Ingest.VideoTimeout)
	}
	if cfg.Audio.Mode != "service" {
		t.Errorf("audio mode = %q", cfg.Audio.Mode)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("INGEST_CONCURRENCY", "3")
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("AUDIO_MODE", "FFMPEG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Ingest.Concurrency != 3 {
		t.Errorf("ingest concurrency = %d, want 3", cfg.Ingest.Concurrency)
	}
	if cfg.Groq.APIKey != "gsk-test" {
		t.Errorf("groq api key = %q", cfg.Groq.APIKey)
	}
	if cfg.Audio.Mode != "ffmpeg" {
		t.Errorf("audio mode = %q, want ffmpeg", cfg.Audio.Mode)
	}
}

func TestReadSecretFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groq_key")
	if err := os.WriteFile(path, []byte("gsk-from-file\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("GROQ_API_KEY_FILE", path)

	readSecret("GROQ_API_KEY")

	if got := os.Getenv("GROQ_API_KEY"); got != "gsk-from-file" {
		t.Errorf("GROQ_API_KEY = %q, want gsk-from-file", got)
	}
}

func TestMissing(t *testing.T) {
	cfg := &Config{
		Audio: AudioConfig{Mode: "service", ServiceURL: "http://audio"},
		Mongo: MongoConfig{URI: "mongodb://localhost"},
	}
	missing := cfg.Missing()
	if len(missing) != 1 || missing[0] != "GROQ_API_KEY" {
		t.Fatalf("Missing() = %v, want [GROQ_API_KEY]", missing)
	}

	cfg.Groq.APIKey = "key"
	if missing := cfg.Missing(); len(missing) != 0 {
		t.Fatalf("Missing() = %v, want none", missing)
	}
}
