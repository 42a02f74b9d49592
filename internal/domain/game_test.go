package domain

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestGame(questions int) Game {
	ids := make([]string, questions)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}
	return NewGame("g1", KindHosted, "host", ids, 20, 3, t0)
}

func TestStartComputesSchedule(t *testing.T) {
	g := newTestGame(10)
	if err := g.Start(t0); err != nil {
		t.Fatalf("start: %v", err)
	}
	if g.Status != StatusInProgress || g.Phase() != PhaseAnswering {
		t.Fatalf("unexpected state %s/%s", g.Status, g.Phase())
	}
	if want := t0.Add(230 * time.Second); !g.EndTime.Equal(want) {
		t.Fatalf("expected end %v, got %v", want, g.EndTime)
	}
	if err := g.Start(t0); !errors.Is(err, ErrNotWaiting) {
		t.Fatalf("expected ErrNotWaiting on restart, got %v", err)
	}
}

func TestAdvanceFinishesAndPinsIndex(t *testing.T) {
	g := newTestGame(2)
	_ = g.Start(t0)
	policy := TransitionPolicy{}

	finished, err := g.Advance(t0, policy)
	if err != nil || finished || g.CurrentQuestionIndex != 1 {
		t.Fatalf("first advance: finished=%v index=%d err=%v", finished, g.CurrentQuestionIndex, err)
	}
	finished, err = g.Advance(t0, policy)
	if err != nil || !finished {
		t.Fatalf("second advance: finished=%v err=%v", finished, err)
	}
	if g.Status != StatusFinished || g.CurrentQuestionIndex != 1 {
		t.Fatalf("expected finished at index 1, got %s at %d", g.Status, g.CurrentQuestionIndex)
	}
	if _, err := g.Advance(t0, policy); !errors.Is(err, ErrNotInProgress) {
		t.Fatalf("expected ErrNotInProgress after finish, got %v", err)
	}
	if g.CurrentQuestionIndex != 1 {
		t.Fatalf("index moved after finish: %d", g.CurrentQuestionIndex)
	}
}

func TestReviewPhaseResetsTimer(t *testing.T) {
	g := newTestGame(3)
	_ = g.Start(t0)
	later := t0.Add(20 * time.Second)
	if err := g.EnterReview(later, TransitionPolicy{}); err != nil {
		t.Fatalf("review: %v", err)
	}
	if !g.PhaseStartedAt.Equal(later) || g.Phase() != PhaseReviewing {
		t.Fatalf("review did not reset phase: %+v", g)
	}
	if got := g.Remaining(later.Add(time.Second)); got != 2*time.Second {
		t.Fatalf("expected 2s review left, got %v", got)
	}
	if err := g.EnterReview(later, TransitionPolicy{}); !errors.Is(err, ErrAlreadyReviewing) {
		t.Fatalf("expected ErrAlreadyReviewing, got %v", err)
	}
}

func TestEnforcedTimingRejectsEarlyTransitions(t *testing.T) {
	g := newTestGame(3)
	_ = g.Start(t0)
	policy := TransitionPolicy{EnforceTiming: true, Grace: time.Second}

	if err := g.EnterReview(t0.Add(10*time.Second), policy); !errors.Is(err, ErrPhaseNotElapsed) {
		t.Fatalf("expected early review rejected, got %v", err)
	}
	if err := g.EnterReview(t0.Add(19*time.Second), policy); err != nil {
		t.Fatalf("review within grace: %v", err)
	}
	reviewStart := t0.Add(19 * time.Second)
	if _, err := g.Advance(reviewStart.Add(time.Second), policy); !errors.Is(err, ErrPhaseNotElapsed) {
		t.Fatalf("expected early advance rejected, got %v", err)
	}
	if _, err := g.Advance(reviewStart.Add(3*time.Second), policy); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if g.CurrentQuestionIndex != 1 {
		t.Fatalf("expected index 1, got %d", g.CurrentQuestionIndex)
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	g := newTestGame(1)
	_ = g.Start(t0)
	if got := g.Remaining(t0.Add(time.Hour)); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestAcceptsAnswerOnlyForCurrentQuestion(t *testing.T) {
	g := newTestGame(2)
	if g.AcceptsAnswer("a") {
		t.Fatalf("waiting game must not accept answers")
	}
	_ = g.Start(t0)
	if !g.AcceptsAnswer("a") || g.AcceptsAnswer("b") {
		t.Fatalf("expected only the current question to be open")
	}
	_ = g.EnterReview(t0, TransitionPolicy{})
	if g.AcceptsAnswer("a") {
		t.Fatalf("review phase must not accept answers")
	}
}
