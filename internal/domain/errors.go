package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the game service wraps exactly one of these,
// so callers can decide how to react with errors.Is.
var (
	// ErrUnauthorized means the caller is not authenticated or may not perform the operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidState means the operation is not legal in the game's current status or phase.
	ErrInvalidState = errors.New("invalid state")
	// ErrNotFound means a game, question or participant does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means an atomic update lost a race; a fresh read-modify-write may succeed.
	ErrConflict = errors.New("conflict")
)

var (
	// ErrUnauthenticated is returned when no identity could be resolved for the caller.
	ErrUnauthenticated = fmt.Errorf("%w: not authenticated", ErrUnauthorized)
	// ErrNotHost is returned when someone other than the host drives a hosted game.
	ErrNotHost = fmt.Errorf("%w: only the host can do this", ErrUnauthorized)
	// ErrHostNotAllowed is returned when the identity is not on the host list.
	ErrHostNotAllowed = fmt.Errorf("%w: not allowed to host a game", ErrUnauthorized)

	// ErrNotJoinable is returned when joining a game that has already started.
	ErrNotJoinable = fmt.Errorf("%w: game not available for joining", ErrInvalidState)
	// ErrNotWaiting is returned when starting a game that is not waiting.
	ErrNotWaiting = fmt.Errorf("%w: game is not waiting", ErrInvalidState)
	// ErrNotInProgress is returned for in-game operations on a waiting or finished game.
	ErrNotInProgress = fmt.Errorf("%w: game is not in progress", ErrInvalidState)
	// ErrAlreadyReviewing is returned when entering review twice for the same question.
	ErrAlreadyReviewing = fmt.Errorf("%w: game is already in review phase", ErrInvalidState)
	// ErrPhaseNotElapsed is returned when a transition is requested before the phase timer ran out.
	ErrPhaseNotElapsed = fmt.Errorf("%w: current phase has not elapsed", ErrInvalidState)
	// ErrAnswerWindowClosed is returned for answers to a question that is no longer open.
	ErrAnswerWindowClosed = fmt.Errorf("%w: question is not accepting answers", ErrInvalidState)
	// ErrWrongKind is returned when solo operations target a hosted game, and vice versa.
	ErrWrongKind = fmt.Errorf("%w: operation does not apply to this kind of game", ErrInvalidState)

	// ErrGameNotFound is returned when a game id is unknown.
	ErrGameNotFound = fmt.Errorf("%w: game", ErrNotFound)
	// ErrParticipantNotFound is returned when a participant is required but missing.
	ErrParticipantNotFound = fmt.Errorf("%w: participant", ErrNotFound)
	// ErrQuestionNotFound indicates a submitted question id is not part of the game or bank.
	ErrQuestionNotFound = fmt.Errorf("%w: question", ErrNotFound)
	// ErrChoiceNotFound indicates a submitted choice is not one of the question's labels.
	ErrChoiceNotFound = fmt.Errorf("%w: choice", ErrNotFound)
	// ErrNoQuestions is returned when the question bank is empty.
	ErrNoQuestions = fmt.Errorf("%w: no questions available", ErrNotFound)

	// ErrLobbyTaken is returned when a second waiting hosted game would be created.
	ErrLobbyTaken = fmt.Errorf("%w: another game is already waiting for players", ErrConflict)
)

// ErrUnchanged is returned by update callbacks to end a transaction without writing.
// Stores treat it as success and hand back the record as read.
var ErrUnchanged = errors.New("record unchanged")
