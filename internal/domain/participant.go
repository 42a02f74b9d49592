package domain

import "time"

// Answer is one recorded submission. It is never modified once stored.
type Answer struct {
	QuestionID    string    `json:"questionId"`
	Choice        string    `json:"answerSubmitted"`
	TimeRemaining float64   `json:"timeRemaining"`
	PointsEarned  int       `json:"pointsEarned"`
	Correct       bool      `json:"correct"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// Participant is one player's ledger within one game.
type Participant struct {
	ID     string `json:"id"`
	GameID string `json:"gameId"`
	// Key identifies the participant within its game: the identity for signed-in
	// players, a generated value for anonymous solo players.
	Key string `json:"key"`
	// Identity is empty for anonymous players.
	Identity string    `json:"identity,omitempty"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	Answers  []Answer  `json:"answers"`
	JoinedAt time.Time `json:"joinedAt"`
	Version  int64     `json:"version"`
}

// Exists reports whether the participant has been persisted.
func (p Participant) Exists() bool { return p.Version > 0 }

// AnswerFor returns the recorded answer for questionID, if any.
func (p Participant) AnswerFor(questionID string) (Answer, bool) {
	for _, a := range p.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return Answer{}, false
}

// RecordAnswer appends a and adds its points to the score. A second answer for
// the same question is not recorded; the first one is returned with recorded=false.
func (p *Participant) RecordAnswer(a Answer) (stored Answer, recorded bool) {
	if existing, ok := p.AnswerFor(a.QuestionID); ok {
		return existing, false
	}
	if a.PointsEarned < 0 {
		a.PointsEarned = 0
	}
	p.Answers = append(p.Answers, a)
	p.Score += a.PointsEarned
	return a, true
}

// CurrentScore recomputes the score from the recorded answers.
func (p Participant) CurrentScore() int {
	total := 0
	for _, a := range p.Answers {
		total += a.PointsEarned
	}
	return total
}
