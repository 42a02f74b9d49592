package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != "memory" || cfg.Quiz.AnswerSeconds != 20 || !cfg.EnforceTiming() {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
server:
  port: "9090"
store:
  driver: redis
redis:
  addr: redis:6379
  ttl: 1h
quiz:
  hosts: [alice, bob]
  questionCount: 5
  enforcePhaseTiming: false
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Store.Driver != "redis" || cfg.Redis.Addr != "redis:6379" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.Quiz.Hosts) != 2 || cfg.Quiz.QuestionCount != 5 || cfg.EnforceTiming() {
		t.Fatalf("unexpected quiz config %+v", cfg.Quiz)
	}
	// untouched keys keep their defaults
	if cfg.Quiz.ReviewSeconds != 3 || cfg.Questions.Source != "static" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if Duration(cfg.Redis.TTL, time.Minute) != time.Hour {
		t.Fatalf("expected 1h ttl")
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: ["), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDuration(t *testing.T) {
	if Duration("", time.Second) != time.Second {
		t.Fatalf("empty should fall back")
	}
	if Duration("nonsense", time.Second) != time.Second {
		t.Fatalf("malformed should fall back")
	}
	if Duration("250ms", time.Second) != 250*time.Millisecond {
		t.Fatalf("expected 250ms")
	}
}
