package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trivia-service/internal/domain"
)

func TestQuestionBankCaches(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(sampleQuestions())}
	bank := NewQuestionBank(loader, time.Minute)

	if _, err := bank.Sample(context.Background(), 2); err != nil {
		t.Fatalf("sample: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader once, got %d", loader.count())
	}

	qs, err := bank.Questions(context.Background(), []string{"q3", "q1"})
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(qs) != 2 || qs[0].ID != "q3" || qs[1].ID != "q1" {
		t.Fatalf("expected q3,q1 in request order, got %+v", qs)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.count())
	}
}

func TestQuestionBankReloadsAfterTTL(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(sampleQuestions())}
	bank := NewQuestionBank(loader, time.Minute)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	bank.clock = func() time.Time { return now }

	if _, err := bank.Sample(context.Background(), 1); err != nil {
		t.Fatalf("sample: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := bank.Sample(context.Background(), 1); err != nil {
		t.Fatalf("sample after ttl: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.count())
	}
}

func TestQuestionBankLoadsOnceUnderConcurrency(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(sampleQuestions())}
	bank := NewQuestionBank(loader, 0)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = bank.Sample(context.Background(), 3)
		}()
	}
	wg.Wait()
	if _, err := bank.Sample(context.Background(), 3); err != nil {
		t.Fatalf("sample: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected a single load, got %d", loader.count())
	}
}

func TestQuestionBankSampleIsDistinct(t *testing.T) {
	bank := NewQuestionBank(NewStaticQuestionLoader(sampleQuestions()), 0)
	qs, err := bank.Sample(context.Background(), 10)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if len(qs) != 3 {
		t.Fatalf("expected the whole bank of 3, got %d", len(qs))
	}
	seen := map[string]bool{}
	for _, q := range qs {
		if seen[q.ID] {
			t.Fatalf("duplicate question %s", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestQuestionBankUnknownID(t *testing.T) {
	bank := NewQuestionBank(NewStaticQuestionLoader(sampleQuestions()), 0)
	if _, err := bank.Questions(context.Background(), []string{"q1", "nope"}); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestQuestionBankEmpty(t *testing.T) {
	bank := NewQuestionBank(NewStaticQuestionLoader(nil), 0)
	if _, err := bank.Sample(context.Background(), 1); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

type countingLoader struct {
	QuestionLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.QuestionLoader.LoadQuestions(ctx)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		domain.NewQuestion("q1", "What is 2 + 2?", [4]string{"3", "4", "5", "22"}, "B", 20),
		domain.NewQuestion("q2", "Capital of France?", [4]string{"Paris", "Rome", "Lima", "Oslo"}, "A", 20),
		domain.NewQuestion("q3", "Largest planet?", [4]string{"Mars", "Venus", "Jupiter", "Earth"}, "C", 20),
	}
}
