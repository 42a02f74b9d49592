package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionBank caches the question bank in Redis and falls back to a loader on a miss.
// Questions are stored as: HSET trivia:questions {questionID} {question JSON}
type QuestionBank struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

const questionsKey = "trivia:questions"

func NewQuestionBank(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) Sample(ctx context.Context, n int) ([]domain.Question, error) {
	raw, err := b.client.HGetAll(ctx, questionsKey).Result()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		if err := b.fill(ctx); err != nil {
			return nil, err
		}
		if raw, err = b.client.HGetAll(ctx, questionsKey).Result(); err != nil {
			return nil, err
		}
	}
	bank := make([]domain.Question, 0, len(raw))
	for id, data := range raw {
		q, err := decodeQuestion(id, data)
		if err != nil {
			return nil, err
		}
		bank = append(bank, q)
	}
	if len(bank) == 0 {
		return nil, domain.ErrNoQuestions
	}
	// hash order is arbitrary; sort so that a seeded sampler is reproducible
	sort.Slice(bank, func(i, j int) bool { return bank[i].ID < bank[j].ID })

	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return domain.SampleQuestions(bank, n, b.rnd), nil
}

func (b *QuestionBank) Questions(ctx context.Context, ids []string) ([]domain.Question, error) {
	if len(ids) == 0 {
		return []domain.Question{}, nil
	}
	values, err := b.client.HMGet(ctx, questionsKey, ids...).Result()
	if err != nil {
		return nil, err
	}
	// Unknown ids must not reload the bank; only a missing hash does.
	if hasMissing(values) {
		cached, err := b.client.Exists(ctx, questionsKey).Result()
		if err != nil {
			return nil, err
		}
		if cached == 0 {
			if err := b.fill(ctx); err != nil {
				return nil, err
			}
			if values, err = b.client.HMGet(ctx, questionsKey, ids...).Result(); err != nil {
				return nil, err
			}
		}
	}
	out := make([]domain.Question, 0, len(ids))
	for i, v := range values {
		data, ok := v.(string)
		if !ok {
			return nil, domain.ErrQuestionNotFound
		}
		q, err := decodeQuestion(ids[i], data)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// fill loads the bank into Redis. Concurrent misses share one load.
func (b *QuestionBank) fill(ctx context.Context) error {
	_, err, _ := b.sf.Do(questionsKey, func() (interface{}, error) {
		questions, err := b.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		if len(questions) == 0 {
			return nil, domain.ErrNoQuestions
		}

		fields := make(map[string]interface{}, len(questions))
		for _, q := range questions {
			data, err := json.Marshal(q)
			if err != nil {
				return nil, err
			}
			fields[q.ID] = data
		}
		pipe := b.client.TxPipeline()
		pipe.Del(ctx, questionsKey)
		pipe.HSet(ctx, questionsKey, fields)
		if ttl := b.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, questionsKey, ttl)
		}
		_, err = pipe.Exec(ctx)
		return nil, err
	})
	return err
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

func hasMissing(values []interface{}) bool {
	for _, v := range values {
		if v == nil {
			return true
		}
	}
	return false
}

func decodeQuestion(id, data string) (domain.Question, error) {
	var q domain.Question
	if err := json.Unmarshal([]byte(data), &q); err != nil {
		return domain.Question{}, fmt.Errorf("decode question %s: %w", id, err)
	}
	return q, nil
}
