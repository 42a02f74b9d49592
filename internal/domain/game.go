package domain

import "time"

// Status is the lifecycle state of a game. It only ever moves forward.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Kind distinguishes host-driven multiplayer games from solo games.
type Kind string

const (
	KindHosted Kind = "hosted"
	KindSolo   Kind = "solo"
)

// Phase is the sub-state of an in-progress game.
type Phase string

const (
	PhaseAnswering Phase = "answering"
	PhaseReviewing Phase = "reviewing"
)

// TransitionPolicy controls server-side validation of client-triggered transitions.
type TransitionPolicy struct {
	// EnforceTiming rejects a transition until the current phase has run out.
	EnforceTiming bool
	// Grace is subtracted from the phase duration to absorb client clock skew.
	Grace time.Duration
}

// Game is the aggregate root of one quiz session.
type Game struct {
	ID     string `json:"id"`
	Kind   Kind   `json:"kind"`
	Status Status `json:"status"`
	// HostID is empty for solo games.
	HostID               string    `json:"hostId,omitempty"`
	QuestionIDs          []string  `json:"questionIds"`
	CurrentQuestionIndex int       `json:"currentQuestionIndex"`
	InReviewPhase        bool      `json:"isInReviewPhase"`
	PhaseStartedAt       time.Time `json:"questionPhaseStartedAt"`
	AnswerSeconds        int       `json:"answerSeconds"`
	ReviewSeconds        int       `json:"reviewSeconds"`

	StartTime  *time.Time `json:"startTime,omitempty"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`

	// Version increases by one on every persisted change.
	Version int64 `json:"version"`
}

// NewGame returns a waiting game positioned on its first question.
func NewGame(id string, kind Kind, hostID string, questionIDs []string, answerSeconds, reviewSeconds int, now time.Time) Game {
	ids := make([]string, len(questionIDs))
	copy(ids, questionIDs)
	return Game{
		ID:             id,
		Kind:           kind,
		Status:         StatusWaiting,
		HostID:         hostID,
		QuestionIDs:    ids,
		AnswerSeconds:  answerSeconds,
		ReviewSeconds:  reviewSeconds,
		PhaseStartedAt: now,
		CreatedAt:      now,
	}
}

// IsSolo reports whether the game has no host.
func (g Game) IsSolo() bool { return g.Kind == KindSolo }

// IsLobby reports whether the game is the kind of waiting game the matchmaker hands out.
func (g Game) IsLobby() bool { return g.Kind == KindHosted && g.Status == StatusWaiting }

// Phase returns the current sub-phase.
func (g Game) Phase() Phase {
	if g.InReviewPhase {
		return PhaseReviewing
	}
	return PhaseAnswering
}

// PhaseDuration is the length of the current phase.
func (g Game) PhaseDuration() time.Duration {
	if g.InReviewPhase {
		return time.Duration(g.ReviewSeconds) * time.Second
	}
	return time.Duration(g.AnswerSeconds) * time.Second
}

// Remaining is the time left in the current phase, never negative.
func (g Game) Remaining(now time.Time) time.Duration {
	left := g.PhaseDuration() - now.Sub(g.PhaseStartedAt)
	if left < 0 {
		return 0
	}
	return left
}

// CurrentQuestionID returns the id of the question the game is on.
func (g Game) CurrentQuestionID() string {
	if g.CurrentQuestionIndex < 0 || g.CurrentQuestionIndex >= len(g.QuestionIDs) {
		return ""
	}
	return g.QuestionIDs[g.CurrentQuestionIndex]
}

// HasQuestion reports whether questionID is part of the game.
func (g Game) HasQuestion(questionID string) bool {
	for _, id := range g.QuestionIDs {
		if id == questionID {
			return true
		}
	}
	return false
}

// AcceptsAnswer reports whether an answer for questionID can be filed right now.
func (g Game) AcceptsAnswer(questionID string) bool {
	return g.Status == StatusInProgress && !g.InReviewPhase && g.CurrentQuestionID() == questionID
}

// Start moves a waiting game into its first answering phase.
func (g *Game) Start(now time.Time) error {
	if g.Status != StatusWaiting {
		return ErrNotWaiting
	}
	perQuestion := time.Duration(g.AnswerSeconds+g.ReviewSeconds) * time.Second
	end := now.Add(time.Duration(len(g.QuestionIDs)) * perQuestion)
	start := now
	g.Status = StatusInProgress
	g.StartTime = &start
	g.EndTime = &end
	g.InReviewPhase = false
	g.PhaseStartedAt = now
	return nil
}

// EnterReview switches the current question from answering to reviewing.
func (g *Game) EnterReview(now time.Time, policy TransitionPolicy) error {
	if g.Status != StatusInProgress {
		return ErrNotInProgress
	}
	if g.InReviewPhase {
		return ErrAlreadyReviewing
	}
	if err := g.checkElapsed(now, policy); err != nil {
		return err
	}
	g.InReviewPhase = true
	g.PhaseStartedAt = now
	return nil
}

// Advance moves to the next question, or finishes the game after the last one.
// The index is pinned to the last question when the game finishes.
func (g *Game) Advance(now time.Time, policy TransitionPolicy) (finished bool, err error) {
	if g.Status != StatusInProgress {
		return false, ErrNotInProgress
	}
	if err := g.checkElapsed(now, policy); err != nil {
		return false, err
	}
	next := g.CurrentQuestionIndex + 1
	if next >= len(g.QuestionIDs) {
		done := now
		g.Status = StatusFinished
		g.CurrentQuestionIndex = next - 1
		g.FinishedAt = &done
		return true, nil
	}
	g.CurrentQuestionIndex = next
	g.InReviewPhase = false
	g.PhaseStartedAt = now
	return false, nil
}

func (g Game) checkElapsed(now time.Time, policy TransitionPolicy) error {
	if !policy.EnforceTiming {
		return nil
	}
	if g.Remaining(now) > policy.Grace {
		return ErrPhaseNotElapsed
	}
	return nil
}
