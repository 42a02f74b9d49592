package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"trivia-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches the whole question bank from a backing store (file, Postgres, Mongo).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// QuestionBank caches the question bank with a TTL to avoid repeated loader hits.
// A TTL of zero keeps the bank until the process exits.
type QuestionBank struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache *cachedBank
}

type cachedBank struct {
	questions []domain.Question
	byID      map[string]domain.Question
	expiresAt time.Time
}

func (c *cachedBank) fresh(now time.Time) bool {
	return c != nil && (c.expiresAt.IsZero() || c.expiresAt.After(now))
}

func NewQuestionBank(loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) Sample(ctx context.Context, n int) ([]domain.Question, error) {
	bank, err := b.bank(ctx)
	if err != nil {
		return nil, err
	}
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return domain.SampleQuestions(bank.questions, n, b.rnd), nil
}

func (b *QuestionBank) Questions(ctx context.Context, ids []string) ([]domain.Question, error) {
	bank, err := b.bank(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := bank.byID[id]
		if !ok {
			return nil, domain.ErrQuestionNotFound
		}
		out = append(out, q)
	}
	return out, nil
}

func (b *QuestionBank) bank(ctx context.Context) (*cachedBank, error) {
	b.mu.RLock()
	cached := b.cache
	b.mu.RUnlock()
	if cached.fresh(b.clock()) {
		return cached, nil
	}

	result, err, _ := b.sf.Do("bank", func() (interface{}, error) {
		now := b.clock()
		b.mu.RLock()
		cached := b.cache
		b.mu.RUnlock()
		if cached.fresh(now) {
			return cached, nil
		}

		questions, err := b.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		entry := &cachedBank{
			questions: questions,
			byID:      make(map[string]domain.Question, len(questions)),
		}
		for _, q := range questions {
			entry.byID[q.ID] = q
		}
		if ttl := b.ttlWithJitter(); ttl > 0 {
			entry.expiresAt = now.Add(ttl)
		}

		b.mu.Lock()
		b.cache = entry
		b.mu.Unlock()
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*cachedBank), nil
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
