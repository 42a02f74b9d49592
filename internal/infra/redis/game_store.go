package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trivia-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// GameStore keeps games and participants in Redis so that every instance sees the
// same state. Read-modify-writes run under WATCH/MULTI and are retried a few times
// when a watched key changes; after that the caller gets domain.ErrConflict.
//
// Layout:
//
//	trivia:game:{id}                      game JSON
//	trivia:game:{id}:participant:{key}    participant JSON
//	trivia:game:{id}:participants         list of participant keys in join order
//	trivia:lobby                          id of the waiting hosted game
//	trivia:games:finished:{kind}          zset of game ids scored by finish time
//	trivia:player:{identity}:games        set of game ids the identity joined
type GameStore struct {
	client     *redis.Client
	ttl        time.Duration
	maxRetries int
}

func NewGameStore(client *redis.Client, ttl time.Duration) *GameStore {
	return &GameStore{client: client, ttl: ttl, maxRetries: 8}
}

const lobbyKey = "trivia:lobby"

func gameKey(gameID string) string { return "trivia:game:" + gameID }

func participantKey(gameID, key string) string {
	return "trivia:game:" + gameID + ":participant:" + key
}

func participantsKey(gameID string) string { return "trivia:game:" + gameID + ":participants" }

func finishedKey(kind domain.Kind) string { return "trivia:games:finished:" + string(kind) }

func playerKey(identity string) string { return "trivia:player:" + identity + ":games" }

func (s *GameStore) CreateGame(ctx context.Context, game domain.Game, first domain.Participant) error {
	gameJSON, err := json.Marshal(game)
	if err != nil {
		return err
	}
	first.GameID = game.ID
	playerJSON, err := json.Marshal(first)
	if err != nil {
		return err
	}

	return s.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, gameKey(game.ID)).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return fmt.Errorf("%w: game %s already exists", domain.ErrConflict, game.ID)
		}
		if game.IsLobby() {
			taken, err := s.lobbyTaken(ctx, tx)
			if err != nil {
				return err
			}
			if taken {
				return domain.ErrLobbyTaken
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, gameKey(game.ID), gameJSON, s.ttl)
			pipe.Set(ctx, participantKey(game.ID, first.Key), playerJSON, s.ttl)
			pipe.RPush(ctx, participantsKey(game.ID), first.Key)
			s.expire(ctx, pipe, participantsKey(game.ID))
			if game.IsLobby() {
				pipe.Set(ctx, lobbyKey, game.ID, s.ttl)
			}
			if first.Identity != "" {
				pipe.SAdd(ctx, playerKey(first.Identity), game.ID)
				s.expire(ctx, pipe, playerKey(first.Identity))
			}
			return nil
		})
		return err
	}, gameKey(game.ID), lobbyKey)
}

func (s *GameStore) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	return getGame(ctx, s.client, gameID)
}

func (s *GameStore) UpdateGame(ctx context.Context, gameID string, fn func(*domain.Game) error) (domain.Game, error) {
	var result domain.Game
	err := s.watch(ctx, func(tx *redis.Tx) error {
		current, err := getGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		next := current
		next.QuestionIDs = append([]string(nil), current.QuestionIDs...)
		if err := fn(&next); err != nil {
			if errors.Is(err, domain.ErrUnchanged) {
				result = current
				return nil
			}
			return err
		}
		next.ID = current.ID
		next.Version = current.Version + 1
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}

		lobby, err := tx.Get(ctx, lobbyKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, gameKey(gameID), data, s.ttl)
			if lobby == gameID && !next.IsLobby() {
				pipe.Del(ctx, lobbyKey)
			}
			if next.Status == domain.StatusFinished && current.Status != domain.StatusFinished && next.FinishedAt != nil {
				pipe.ZAdd(ctx, finishedKey(next.Kind), redis.Z{
					Score:  float64(next.FinishedAt.UnixMilli()),
					Member: gameID,
				})
			}
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}, gameKey(gameID), lobbyKey)
	if err != nil {
		return domain.Game{}, err
	}
	return result, nil
}

func (s *GameStore) UpdateParticipant(ctx context.Context, gameID, key string, fn func(domain.Game, *domain.Participant) error) (domain.Participant, error) {
	var result domain.Participant
	pKey := participantKey(gameID, key)
	err := s.watch(ctx, func(tx *redis.Tx) error {
		game, err := getGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		current := domain.Participant{GameID: gameID, Key: key}
		raw, err := tx.Get(ctx, pKey).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, &current); err != nil {
				return fmt.Errorf("decode participant %s: %w", pKey, err)
			}
		}

		next := current
		next.Answers = append([]domain.Answer{}, current.Answers...)
		if err := fn(game, &next); err != nil {
			if errors.Is(err, domain.ErrUnchanged) {
				result = current
				return nil
			}
			return err
		}
		next.GameID = gameID
		next.Key = key
		next.Version = current.Version + 1
		if current.Exists() {
			next.ID = current.ID
		}
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, pKey, data, s.ttl)
			if !current.Exists() {
				pipe.RPush(ctx, participantsKey(gameID), key)
				s.expire(ctx, pipe, participantsKey(gameID))
				if next.Identity != "" {
					pipe.SAdd(ctx, playerKey(next.Identity), gameID)
					s.expire(ctx, pipe, playerKey(next.Identity))
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}, gameKey(gameID), pKey)
	if err != nil {
		return domain.Participant{}, err
	}
	return result, nil
}

func (s *GameStore) ListParticipants(ctx context.Context, gameID string) ([]domain.Participant, error) {
	keys, err := s.client.LRange(ctx, participantsKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = participantKey(gameID, k)
	}
	return s.participants(ctx, redisKeys)
}

func (s *GameStore) FindLobby(ctx context.Context) (domain.Game, error) {
	id, err := s.client.Get(ctx, lobbyKey).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.Game{}, err
	}
	game, err := s.GetGame(ctx, id)
	if err != nil {
		return domain.Game{}, err
	}
	if !game.IsLobby() {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return game, nil
}

func (s *GameStore) ListFinished(ctx context.Context, kind domain.Kind, limit int) ([]domain.Game, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := s.client.ZRevRange(ctx, finishedKey(kind), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gameKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	games := make([]domain.Game, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// expired
			continue
		}
		var g domain.Game
		if err := json.Unmarshal([]byte(raw), &g); err != nil {
			return nil, fmt.Errorf("decode game %s: %w", ids[i], err)
		}
		games = append(games, g)
	}
	return games, nil
}

func (s *GameStore) ListParticipations(ctx context.Context, identity string) ([]domain.Participant, error) {
	gameIDs, err := s.client.SMembers(ctx, playerKey(identity)).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(gameIDs))
	for i, id := range gameIDs {
		keys[i] = participantKey(id, identity)
	}
	return s.participants(ctx, keys)
}

func (s *GameStore) participants(ctx context.Context, keys []string) ([]domain.Participant, error) {
	out := make([]domain.Participant, 0, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var p domain.Participant
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode participant %s: %w", keys[i], err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *GameStore) lobbyTaken(ctx context.Context, tx *redis.Tx) (bool, error) {
	id, err := tx.Get(ctx, lobbyKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	game, err := getGame(ctx, tx, id)
	if errors.Is(err, domain.ErrGameNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return game.IsLobby(), nil
}

// watch runs fn optimistically, starting over while a watched key changes underneath.
func (s *GameStore) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < s.maxRetries; i++ {
		err := s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("%w: gave up after %d attempts", domain.ErrConflict, s.maxRetries)
}

func (s *GameStore) expire(ctx context.Context, pipe redis.Pipeliner, key string) {
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getGame(ctx context.Context, c getter, gameID string) (domain.Game, error) {
	raw, err := c.Get(ctx, gameKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.Game{}, err
	}
	var g domain.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return domain.Game{}, fmt.Errorf("decode game %s: %w", gameID, err)
	}
	return g, nil
}
