package domain

import "time"

// EventType names a game lifecycle event.
type EventType string

const (
	EventGameCreated       EventType = "game.created"
	EventParticipantJoined EventType = "participant.joined"
	EventGameStarted       EventType = "game.started"
	EventReviewStarted     EventType = "game.review"
	EventQuestionAdvanced  EventType = "game.advanced"
	EventGameFinished      EventType = "game.finished"
	EventAnswerSubmitted   EventType = "answer.submitted"
)

// GameEvent tells subscribers that a game or one of its participants changed.
type GameEvent struct {
	Type          EventType `json:"type"`
	GameID        string    `json:"gameId"`
	Status        Status    `json:"status"`
	QuestionIndex int       `json:"questionIndex"`
	ParticipantID string    `json:"participantId,omitempty"`
	At            time.Time `json:"at"`
}

// NewGameEvent builds an event describing g at time at.
func NewGameEvent(typ EventType, g Game, at time.Time) GameEvent {
	return GameEvent{
		Type:          typ,
		GameID:        g.ID,
		Status:        g.Status,
		QuestionIndex: g.CurrentQuestionIndex,
		At:            at,
	}
}
