package cli

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"trivia-service/internal/config"
)

func TestSampleQuestionsAreValid(t *testing.T) {
	seen := map[string]bool{}
	for _, q := range sampleQuestions() {
		if err := q.Validate(); err != nil {
			t.Fatalf("invalid sample question: %v", err)
		}
		if seen[q.ID] {
			t.Fatalf("duplicate id %s", q.ID)
		}
		seen[q.ID] = true
	}
	if len(seen) < config.Default().Quiz.QuestionCount {
		t.Fatalf("sample bank has %d questions, fewer than a default game", len(seen))
	}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.Default()
	s := settingsFromConfig(cfg)
	if s.QuestionCount != 10 || s.AnswerSeconds != 20 || s.ReviewSeconds != 3 || s.SoloQuestionCount != 1 {
		t.Fatalf("unexpected defaults %+v", s)
	}
	if !s.Policy.EnforceTiming || s.Policy.Grace != time.Second {
		t.Fatalf("expected enforced timing with 1s grace, got %+v", s.Policy)
	}

	off := false
	cfg.Quiz.EnforcePhaseTiming = &off
	cfg.Quiz.QuestionCount = 3
	cfg.Quiz.PhaseGrace = "250ms"
	cfg.Quiz.Hosts = []string{"host"}
	s = settingsFromConfig(cfg)
	if s.Policy.EnforceTiming || s.Policy.Grace != 250*time.Millisecond || s.QuestionCount != 3 || len(s.Hosts) != 1 {
		t.Fatalf("overrides not applied: %+v", s)
	}
}

func TestUnknownBackendsAreRejected(t *testing.T) {
	ctx := context.Background()
	var b backends
	defer b.close()

	cfg := config.Default()
	cfg.Store.Driver = "cassandra"
	if _, err := gameStore(ctx, cfg, nil, &b); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
	cfg = config.Default()
	cfg.Questions.Source = "ftp"
	if _, err := questionLoader(ctx, cfg, &b); err == nil {
		t.Fatalf("expected error for unknown source")
	}
	cfg.Questions.Source = "file"
	if _, err := questionLoader(ctx, cfg, &b); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestTokenCommand(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	writeFile(t, path, "auth:\n  jwtSecret: s3cret\n")

	cmd := NewTokenCmd(&path)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--id", "alice", "--name", "Alice"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("token: %v", err)
	}
	if strings.Count(strings.TrimSpace(out.String()), ".") != 2 {
		t.Fatalf("expected a JWT, got %q", out.String())
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
