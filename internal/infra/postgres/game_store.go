package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trivia-service/internal/domain"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const lobbyIndex = "trivia_games_single_lobby"

type gameRow struct {
	bun.BaseModel `bun:"table:trivia_games"`

	ID                   string     `bun:"id,pk"`
	Kind                 string     `bun:"kind,notnull"`
	Status               string     `bun:"status,notnull"`
	HostID               string     `bun:"host_id,notnull"`
	QuestionIDs          []string   `bun:"question_ids,type:jsonb,notnull"`
	CurrentQuestionIndex int        `bun:"current_question_index,notnull"`
	InReviewPhase        bool       `bun:"in_review_phase,notnull"`
	PhaseStartedAt       time.Time  `bun:"phase_started_at,notnull"`
	AnswerSeconds        int        `bun:"answer_seconds,notnull"`
	ReviewSeconds        int        `bun:"review_seconds,notnull"`
	StartTime            *time.Time `bun:"start_time"`
	EndTime              *time.Time `bun:"end_time"`
	FinishedAt           *time.Time `bun:"finished_at"`
	CreatedAt            time.Time  `bun:"created_at,notnull"`
	Version              int64      `bun:"version,notnull"`
}

type participantRow struct {
	bun.BaseModel `bun:"table:trivia_participants"`

	Seq      int64           `bun:"seq,scanonly"`
	ID       string          `bun:"id,pk"`
	GameID   string          `bun:"game_id,notnull"`
	Key      string          `bun:"participant_key,notnull"`
	Identity string          `bun:"identity,notnull"`
	Name     string          `bun:"name,notnull"`
	Score    int             `bun:"score,notnull"`
	Answers  []domain.Answer `bun:"answers,type:jsonb,notnull"`
	JoinedAt time.Time       `bun:"joined_at,notnull"`
	Version  int64           `bun:"version,notnull"`
}

func toGameRow(g domain.Game) *gameRow {
	ids := g.QuestionIDs
	if ids == nil {
		ids = []string{}
	}
	return &gameRow{
		ID:                   g.ID,
		Kind:                 string(g.Kind),
		Status:               string(g.Status),
		HostID:               g.HostID,
		QuestionIDs:          ids,
		CurrentQuestionIndex: g.CurrentQuestionIndex,
		InReviewPhase:        g.InReviewPhase,
		PhaseStartedAt:       g.PhaseStartedAt,
		AnswerSeconds:        g.AnswerSeconds,
		ReviewSeconds:        g.ReviewSeconds,
		StartTime:            g.StartTime,
		EndTime:              g.EndTime,
		FinishedAt:           g.FinishedAt,
		CreatedAt:            g.CreatedAt,
		Version:              g.Version,
	}
}

func (r *gameRow) toDomain() domain.Game {
	return domain.Game{
		ID:                   r.ID,
		Kind:                 domain.Kind(r.Kind),
		Status:               domain.Status(r.Status),
		HostID:               r.HostID,
		QuestionIDs:          r.QuestionIDs,
		CurrentQuestionIndex: r.CurrentQuestionIndex,
		InReviewPhase:        r.InReviewPhase,
		PhaseStartedAt:       r.PhaseStartedAt,
		AnswerSeconds:        r.AnswerSeconds,
		ReviewSeconds:        r.ReviewSeconds,
		StartTime:            r.StartTime,
		EndTime:              r.EndTime,
		FinishedAt:           r.FinishedAt,
		CreatedAt:            r.CreatedAt,
		Version:              r.Version,
	}
}

func toParticipantRow(p domain.Participant) *participantRow {
	answers := p.Answers
	if answers == nil {
		answers = []domain.Answer{}
	}
	return &participantRow{
		ID:       p.ID,
		GameID:   p.GameID,
		Key:      p.Key,
		Identity: p.Identity,
		Name:     p.Name,
		Score:    p.Score,
		Answers:  answers,
		JoinedAt: p.JoinedAt,
		Version:  p.Version,
	}
}

func (r *participantRow) toDomain() domain.Participant {
	answers := r.Answers
	if answers == nil {
		answers = []domain.Answer{}
	}
	return domain.Participant{
		ID:       r.ID,
		GameID:   r.GameID,
		Key:      r.Key,
		Identity: r.Identity,
		Name:     r.Name,
		Score:    r.Score,
		Answers:  answers,
		JoinedAt: r.JoinedAt,
		Version:  r.Version,
	}
}

// GameStore persists games in Postgres. Each read-modify-write runs in one
// transaction holding a row lock on the game, and on the participant when one is
// involved. A partial unique index keeps at most one waiting hosted game.
type GameStore struct {
	db *bun.DB
}

func NewGameStore(db *bun.DB) *GameStore {
	return &GameStore{db: db}
}

func (s *GameStore) CreateGame(ctx context.Context, game domain.Game, first domain.Participant) error {
	first.GameID = game.ID
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(toGameRow(game)).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(toParticipantRow(first)).Exec(ctx)
		return err
	})
	return mapError(err)
}

func (s *GameStore) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	row := new(gameRow)
	if err := s.db.NewSelect().Model(row).Where("id = ?", gameID).Scan(ctx); err != nil {
		return domain.Game{}, notFound(err, domain.ErrGameNotFound)
	}
	return row.toDomain(), nil
}

func (s *GameStore) UpdateGame(ctx context.Context, gameID string, fn func(*domain.Game) error) (domain.Game, error) {
	var result domain.Game
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(gameRow)
		if err := tx.NewSelect().Model(row).Where("id = ?", gameID).For("UPDATE").Scan(ctx); err != nil {
			return notFound(err, domain.ErrGameNotFound)
		}
		current := row.toDomain()
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
		if _, err := tx.NewUpdate().Model(toGameRow(next)).WherePK().Exec(ctx); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return domain.Game{}, mapError(err)
	}
	return result, nil
}

func (s *GameStore) UpdateParticipant(ctx context.Context, gameID, key string, fn func(domain.Game, *domain.Participant) error) (domain.Participant, error) {
	var result domain.Participant
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// FOR SHARE holds off game transitions until the participant write commits.
		game := new(gameRow)
		if err := tx.NewSelect().Model(game).Where("id = ?", gameID).For("SHARE").Scan(ctx); err != nil {
			return notFound(err, domain.ErrGameNotFound)
		}

		current := domain.Participant{GameID: gameID, Key: key}
		row := new(participantRow)
		err := tx.NewSelect().Model(row).
			Where("game_id = ?", gameID).
			Where("participant_key = ?", key).
			For("UPDATE").
			Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return err
		default:
			current = row.toDomain()
		}

		next := current
		next.Answers = append([]domain.Answer{}, current.Answers...)
		if err := fn(game.toDomain(), &next); err != nil {
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
			if _, err := tx.NewUpdate().Model(toParticipantRow(next)).WherePK().Exec(ctx); err != nil {
				return err
			}
		} else if _, err := tx.NewInsert().Model(toParticipantRow(next)).Exec(ctx); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return domain.Participant{}, mapError(err)
	}
	return result, nil
}

func (s *GameStore) ListParticipants(ctx context.Context, gameID string) ([]domain.Participant, error) {
	var rows []participantRow
	if err := s.db.NewSelect().Model(&rows).Where("game_id = ?", gameID).Order("seq ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return participantsFromRows(rows), nil
}

func (s *GameStore) FindLobby(ctx context.Context) (domain.Game, error) {
	row := new(gameRow)
	err := s.db.NewSelect().Model(row).
		Where("kind = ?", string(domain.KindHosted)).
		Where("status = ?", string(domain.StatusWaiting)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Game{}, notFound(err, domain.ErrGameNotFound)
	}
	return row.toDomain(), nil
}

func (s *GameStore) ListFinished(ctx context.Context, kind domain.Kind, limit int) ([]domain.Game, error) {
	var rows []gameRow
	q := s.db.NewSelect().Model(&rows).
		Where("kind = ?", string(kind)).
		Where("status = ?", string(domain.StatusFinished)).
		Order("finished_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	games := make([]domain.Game, len(rows))
	for i := range rows {
		games[i] = rows[i].toDomain()
	}
	return games, nil
}

func (s *GameStore) ListParticipations(ctx context.Context, identity string) ([]domain.Participant, error) {
	if identity == "" {
		return []domain.Participant{}, nil
	}
	var rows []participantRow
	if err := s.db.NewSelect().Model(&rows).Where("identity = ?", identity).Order("seq ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return participantsFromRows(rows), nil
}

func participantsFromRows(rows []participantRow) []domain.Participant {
	out := make([]domain.Participant, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out
}

func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

// mapError turns constraint and serialization failures into domain errors.
func mapError(err error) error {
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.IntegrityViolation() && pgErr.Field('n') == lobbyIndex:
		return domain.ErrLobbyTaken
	case pgErr.IntegrityViolation():
		return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.Field('M'))
	case pgErr.Field('C') == "40001" || pgErr.Field('C') == "40P01":
		return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.Field('M'))
	}
	return err
}
