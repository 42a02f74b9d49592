package app

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"trivia-service/internal/domain"
	"trivia-service/internal/metrics"

	"github.com/google/uuid"
)

// GameStore abstracts where games and participants live (in-memory, Redis, Postgres).
// Every mutation is an atomic read-modify-write scoped to one game, or to one game
// plus one of its participants.
type GameStore interface {
	// CreateGame inserts a game together with its first participant. A waiting hosted
	// game occupies the lobby; a second one fails with domain.ErrLobbyTaken.
	CreateGame(ctx context.Context, game domain.Game, first domain.Participant) error
	GetGame(ctx context.Context, gameID string) (domain.Game, error)
	// UpdateGame applies fn to the stored game and persists the result with the next
	// version. Errors from fn abort the update; domain.ErrUnchanged aborts it silently.
	UpdateGame(ctx context.Context, gameID string, fn func(*domain.Game) error) (domain.Game, error)
	// UpdateParticipant applies fn to the participant stored under key, or to a fresh
	// Participant{GameID, Key} when none exists. fn sees the game as of the same
	// transaction; the write fails if the game changes before it commits.
	UpdateParticipant(ctx context.Context, gameID, key string, fn func(domain.Game, *domain.Participant) error) (domain.Participant, error)
	// ListParticipants returns a game's participants in the order they were created.
	ListParticipants(ctx context.Context, gameID string) ([]domain.Participant, error)
	// FindLobby returns the waiting hosted game, or domain.ErrGameNotFound.
	FindLobby(ctx context.Context) (domain.Game, error)
	// ListFinished returns finished games of a kind, most recently finished first;
	// games that finished at the same instant are ordered by id, highest first.
	// limit <= 0 means no limit.
	ListFinished(ctx context.Context, kind domain.Kind, limit int) ([]domain.Game, error)
	// ListParticipations returns every participant record of an identity across games.
	ListParticipations(ctx context.Context, identity string) ([]domain.Participant, error)
}

// QuestionBank reads questions (from cache/backing store).
type QuestionBank interface {
	// Sample returns up to n distinct questions chosen at random.
	Sample(ctx context.Context, n int) ([]domain.Question, error)
	// Questions returns the questions with the given ids in the same order.
	Questions(ctx context.Context, ids []string) ([]domain.Question, error)
}

// EventPublisher receives game lifecycle events after they are committed.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.GameEvent) error
}

// EventSubscriber streams events of one game.
// The caller must invoke the returned cancel function to avoid leaks.
type EventSubscriber interface {
	Subscribe(ctx context.Context, gameID string) (<-chan domain.GameEvent, func(), error)
}

// Settings holds the game rules.
type Settings struct {
	// Hosts lists identities allowed to host; empty means any signed-in identity.
	Hosts             []string
	QuestionCount     int
	SoloQuestionCount int
	AnswerSeconds     int
	SoloAnswerSeconds int
	ReviewSeconds     int
	Policy            domain.TransitionPolicy
	// TrustClientTime scores with the client's time remaining as reported.
	TrustClientTime bool
}

// DefaultSettings mirrors the production rules: 10 questions of 20s, 3s review, 1-question solo of 10s.
func DefaultSettings() Settings {
	return Settings{
		QuestionCount:     10,
		SoloQuestionCount: 1,
		AnswerSeconds:     20,
		SoloAnswerSeconds: 10,
		ReviewSeconds:     3,
		Policy:            domain.TransitionPolicy{EnforceTiming: true, Grace: time.Second},
	}
}

// Option customizes a GameService.
type Option func(*GameService)

// WithClock is mostly for tests that need deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *GameService) { s.now = now }
}

// WithRand seeds question sampling and anonymous names.
func WithRand(rnd *rand.Rand) Option {
	return func(s *GameService) { s.rnd = rnd }
}

// WithPublishers adds event sinks notified after each committed change.
func WithPublishers(publishers ...EventPublisher) Option {
	return func(s *GameService) { s.publishers = append(s.publishers, publishers...) }
}

// GameService contains the quiz game use cases.
type GameService struct {
	games      GameStore
	questions  QuestionBank
	settings   Settings
	publishers []EventPublisher
	now        func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewGameService(games GameStore, questions QuestionBank, settings Settings, opts ...Option) *GameService {
	s := &GameService{
		games:     games,
		questions: questions,
		settings:  settings,
		now:       time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GameView is everything a client needs to render a game.
type GameView struct {
	Game         domain.Game          `json:"game"`
	Questions    []domain.Question    `json:"questions"`
	Participants []domain.Participant `json:"participants"`
	// RemainingSeconds is the server's view of the current phase countdown.
	RemainingSeconds float64   `json:"remainingSeconds"`
	ServerTime       time.Time `json:"serverTime"`
}

// AdvanceResult reports the outcome of a question transition.
type AdvanceResult struct {
	Game        domain.Game `json:"game"`
	Finished    bool        `json:"finished"`
	NewIndex    int         `json:"newIndex"`
	ReviewPhase bool        `json:"reviewPhase"`
	// Changed is false when a racing caller had already moved the game on.
	Changed bool `json:"changed"`
}

// CreateGame opens a waiting hosted game with the host as its first participant.
func (s *GameService) CreateGame(ctx context.Context, host domain.Identity) (domain.Game, error) {
	if host.Anonymous() {
		return domain.Game{}, domain.ErrUnauthenticated
	}
	if !s.CanHost(host) {
		return domain.Game{}, domain.ErrHostNotAllowed
	}

	questions, err := s.questions.Sample(ctx, s.settings.QuestionCount)
	if err != nil {
		return domain.Game{}, err
	}
	if len(questions) == 0 {
		return domain.Game{}, domain.ErrNoQuestions
	}

	now := s.now()
	game := domain.NewGame(uuid.NewString(), domain.KindHosted, host.ID, domain.QuestionIDs(questions),
		s.settings.AnswerSeconds, s.settings.ReviewSeconds, now)
	game.Version = 1
	first := newParticipant(game.ID, host.ID, host.ID, host.Name, now)
	first.Version = 1

	if err := s.games.CreateGame(ctx, game, first); err != nil {
		return domain.Game{}, err
	}
	metrics.GamesCreated.WithLabelValues(string(domain.KindHosted)).Inc()
	s.publish(ctx, domain.NewGameEvent(domain.EventGameCreated, game, now))
	return game, nil
}

// CanHost reports whether the identity may create hosted games.
func (s *GameService) CanHost(who domain.Identity) bool {
	if who.Anonymous() {
		return false
	}
	if len(s.settings.Hosts) == 0 {
		return true
	}
	for _, h := range s.settings.Hosts {
		if h == who.ID {
			return true
		}
	}
	return false
}

// JoinGame registers the identity in a waiting game. Joining twice is a no-op.
func (s *GameService) JoinGame(ctx context.Context, gameID string, who domain.Identity) (domain.Participant, error) {
	if who.Anonymous() {
		return domain.Participant{}, domain.ErrUnauthenticated
	}

	var created bool
	var participant domain.Participant
	err := retryOnConflict(func() error {
		created = false
		var err error
		participant, err = s.games.UpdateParticipant(ctx, gameID, who.ID, func(g domain.Game, p *domain.Participant) error {
			if g.Kind != domain.KindHosted {
				return domain.ErrWrongKind
			}
			if g.Status != domain.StatusWaiting {
				return domain.ErrNotJoinable
			}
			if p.Exists() {
				return domain.ErrUnchanged
			}
			*p = newParticipant(gameID, who.ID, who.ID, who.Name, s.now())
			created = true
			return nil
		})
		return err
	})
	if err != nil {
		return domain.Participant{}, err
	}
	if created {
		event := domain.GameEvent{Type: domain.EventParticipantJoined, GameID: gameID, Status: domain.StatusWaiting, ParticipantID: participant.ID, At: s.now()}
		s.publish(ctx, event)
	}
	return participant, nil
}

// StartGame moves a waiting game into its first question. Host only.
func (s *GameService) StartGame(ctx context.Context, gameID string, caller domain.Identity) (domain.Game, error) {
	game, err := s.updateGame(ctx, gameID, func(g *domain.Game) error {
		if err := authorizeHost(*g, caller); err != nil {
			return err
		}
		return g.Start(s.now())
	})
	if err != nil {
		return domain.Game{}, err
	}
	metrics.Transitions.WithLabelValues("start").Inc()
	s.publish(ctx, domain.NewGameEvent(domain.EventGameStarted, game, s.now()))
	return game, nil
}

// EnterReview closes answering on the current question and starts its review. Host only.
func (s *GameService) EnterReview(ctx context.Context, gameID string, caller domain.Identity) (domain.Game, error) {
	game, err := s.updateGame(ctx, gameID, func(g *domain.Game) error {
		if err := authorizeHost(*g, caller); err != nil {
			return err
		}
		return g.EnterReview(s.now(), s.settings.Policy)
	})
	if err != nil {
		return domain.Game{}, err
	}
	metrics.Transitions.WithLabelValues("review").Inc()
	s.publish(ctx, domain.NewGameEvent(domain.EventReviewStarted, game, s.now()))
	return game, nil
}

// AdvanceQuestion moves a hosted game to its next question or finishes it. Host only.
// When fromIndex is set and the game is no longer on that question, the call is a
// no-op so that racing timers cannot skip a question.
func (s *GameService) AdvanceQuestion(ctx context.Context, gameID string, caller domain.Identity, fromIndex *int) (AdvanceResult, error) {
	changed := false
	game, err := s.updateGame(ctx, gameID, func(g *domain.Game) error {
		changed = false
		if err := authorizeHost(*g, caller); err != nil {
			return err
		}
		if fromIndex != nil && (g.Status == domain.StatusFinished || *fromIndex != g.CurrentQuestionIndex) {
			return domain.ErrUnchanged
		}
		if _, err := g.Advance(s.now(), s.settings.Policy); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return AdvanceResult{}, err
	}
	res := advanceResult(game, changed)
	if changed {
		s.announceAdvance(ctx, game)
	}
	return res, nil
}

// SubmitAnswer files the participant's answer to a question of the game. The first
// answer per question wins; later calls return it with AlreadySubmitted set.
func (s *GameService) SubmitAnswer(ctx context.Context, gameID string, who domain.Identity, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	if who.Anonymous() {
		return domain.AnswerResult{}, domain.ErrUnauthenticated
	}
	question, err := s.question(ctx, sub)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	var result domain.AnswerResult
	var participant domain.Participant
	err = retryOnConflict(func() error {
		var err error
		participant, err = s.games.UpdateParticipant(ctx, gameID, who.ID, func(g domain.Game, p *domain.Participant) error {
			if g.Kind != domain.KindHosted {
				return domain.ErrWrongKind
			}
			if !p.Exists() {
				*p = newParticipant(gameID, who.ID, who.ID, who.Name, s.now())
			}
			return s.fileAnswer(g, p, question, sub, &result)
		})
		return err
	})
	if err != nil {
		return domain.AnswerResult{}, err
	}
	s.afterAnswer(ctx, gameID, participant, result)
	return result, nil
}

// GetGame returns the game with its questions and participants. Correct choices are
// hidden until the question has been reviewed.
func (s *GameService) GetGame(ctx context.Context, gameID string) (GameView, error) {
	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return GameView{}, err
	}
	questions, err := s.questions.Questions(ctx, game.QuestionIDs)
	if err != nil {
		return GameView{}, err
	}
	participants, err := s.games.ListParticipants(ctx, gameID)
	if err != nil {
		return GameView{}, err
	}
	now := s.now()
	view := GameView{
		Game:         game,
		Questions:    redactQuestions(game, questions),
		Participants: participants,
		ServerTime:   now,
	}
	if game.Status == domain.StatusInProgress {
		view.RemainingSeconds = game.Remaining(now).Seconds()
	}
	return view, nil
}

func (s *GameService) fileAnswer(g domain.Game, p *domain.Participant, q domain.Question, sub domain.AnswerSubmission, result *domain.AnswerResult) error {
	if g.Status != domain.StatusInProgress {
		return domain.ErrNotInProgress
	}
	if !g.HasQuestion(q.ID) {
		return domain.ErrQuestionNotFound
	}
	if existing, ok := p.AnswerFor(q.ID); ok {
		*result = answerResult(existing, p.Score, true)
		return domain.ErrUnchanged
	}
	if !q.HasChoice(sub.Choice) {
		return domain.ErrChoiceNotFound
	}
	now := s.now()
	if !g.AcceptsAnswer(q.ID) {
		return domain.ErrAnswerWindowClosed
	}

	remaining := sub.TimeRemaining
	if !s.settings.TrustClientTime {
		remaining = domain.ClampRemaining(remaining, g.Remaining(now).Seconds(), s.settings.Policy.Grace.Seconds())
	}
	stored, _ := p.RecordAnswer(domain.Answer{
		QuestionID:    q.ID,
		Choice:        sub.Choice,
		TimeRemaining: remaining,
		PointsEarned:  domain.Score(q.CorrectChoice, sub.Choice, remaining),
		Correct:       sub.Choice == q.CorrectChoice,
		SubmittedAt:   now,
	})
	*result = answerResult(stored, p.Score, false)
	return nil
}

func (s *GameService) afterAnswer(ctx context.Context, gameID string, p domain.Participant, result domain.AnswerResult) {
	switch {
	case result.AlreadySubmitted:
		metrics.Answers.WithLabelValues("duplicate").Inc()
		return
	case result.Correct:
		metrics.Answers.WithLabelValues("correct").Inc()
	default:
		metrics.Answers.WithLabelValues("incorrect").Inc()
	}
	s.publish(ctx, domain.GameEvent{
		Type:          domain.EventAnswerSubmitted,
		GameID:        gameID,
		Status:        domain.StatusInProgress,
		ParticipantID: p.ID,
		At:            s.now(),
	})
}

func (s *GameService) question(ctx context.Context, sub domain.AnswerSubmission) (domain.Question, error) {
	found, err := s.questions.Questions(ctx, []string{sub.QuestionID})
	if err != nil {
		return domain.Question{}, err
	}
	if len(found) != 1 {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return found[0], nil
}

func (s *GameService) updateGame(ctx context.Context, gameID string, fn func(*domain.Game) error) (domain.Game, error) {
	var game domain.Game
	err := retryOnConflict(func() error {
		var err error
		game, err = s.games.UpdateGame(ctx, gameID, fn)
		return err
	})
	return game, err
}

func (s *GameService) announceAdvance(ctx context.Context, game domain.Game) {
	if game.Status == domain.StatusFinished {
		metrics.Transitions.WithLabelValues("finish").Inc()
		s.publish(ctx, domain.NewGameEvent(domain.EventGameFinished, game, s.now()))
		return
	}
	metrics.Transitions.WithLabelValues("advance").Inc()
	s.publish(ctx, domain.NewGameEvent(domain.EventQuestionAdvanced, game, s.now()))
}

func (s *GameService) publish(ctx context.Context, event domain.GameEvent) {
	for _, p := range s.publishers {
		if err := p.Publish(ctx, event); err != nil {
			log.Printf("publish %s for game %s: %v", event.Type, event.GameID, err)
		}
	}
}

func (s *GameService) anonymousName() string {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return domain.AnonymousName(s.rnd)
}

func authorizeHost(g domain.Game, caller domain.Identity) error {
	if g.IsSolo() {
		return domain.ErrWrongKind
	}
	if caller.Anonymous() {
		return domain.ErrUnauthenticated
	}
	if caller.ID != g.HostID {
		return domain.ErrNotHost
	}
	return nil
}

// retryOnConflict runs fn again once if it lost an atomic-update race.
func retryOnConflict(fn func() error) error {
	err := fn()
	if errors.Is(err, domain.ErrConflict) && !errors.Is(err, domain.ErrLobbyTaken) {
		metrics.Conflicts.Inc()
		err = fn()
	}
	return err
}

func newParticipant(gameID, key, identity, name string, now time.Time) domain.Participant {
	return domain.Participant{
		ID:       uuid.NewString(),
		GameID:   gameID,
		Key:      key,
		Identity: identity,
		Name:     name,
		Answers:  []domain.Answer{},
		JoinedAt: now,
	}
}

func answerResult(a domain.Answer, total int, already bool) domain.AnswerResult {
	return domain.AnswerResult{
		QuestionID:       a.QuestionID,
		Correct:          a.Correct,
		PointsEarned:     a.PointsEarned,
		TotalScore:       total,
		AlreadySubmitted: already,
	}
}

func advanceResult(g domain.Game, changed bool) AdvanceResult {
	return AdvanceResult{
		Game:        g,
		Finished:    g.Status == domain.StatusFinished,
		NewIndex:    g.CurrentQuestionIndex,
		ReviewPhase: g.InReviewPhase,
		Changed:     changed,
	}
}

// redactQuestions hides the correct choice of questions that have not been reviewed yet.
func redactQuestions(g domain.Game, questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	for i, q := range questions {
		revealed := g.Status == domain.StatusFinished ||
			i < g.CurrentQuestionIndex ||
			(i == g.CurrentQuestionIndex && g.Status == domain.StatusInProgress && g.InReviewPhase)
		if !revealed {
			q.CorrectChoice = ""
		}
		out[i] = q
	}
	return out
}
