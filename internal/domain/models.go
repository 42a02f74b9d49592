package domain

import (
	"sort"
	"time"
)

// Identity is a resolved caller: a stable user id and a display name.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Anonymous reports whether no identity was resolved.
func (i Identity) Anonymous() bool { return i.ID == "" }

// AnswerSubmission models the scoring signal from clients.
type AnswerSubmission struct {
	QuestionID string `json:"questionId"`
	Choice     string `json:"choice"`
	// TimeRemaining is the client's count of seconds left when it submitted.
	TimeRemaining float64 `json:"timeRemaining"`
}

// AnswerResult summarizes the outcome of a submission for a single participant.
type AnswerResult struct {
	QuestionID       string `json:"questionId"`
	Correct          bool   `json:"correct"`
	PointsEarned     int    `json:"pointsEarned"`
	TotalScore       int    `json:"totalScore"`
	AlreadySubmitted bool   `json:"alreadySubmitted"`
}

// LeaderboardEntry is a snapshot-friendly view of a participant.
type LeaderboardEntry struct {
	ParticipantID string `json:"participantId"`
	GameID        string `json:"gameId"`
	Name          string `json:"name"`
	Score         int    `json:"score"`
}

// Leaderboard captures the ordered scoreboard for one game or a group of games.
type Leaderboard struct {
	GameID    string             `json:"gameId,omitempty"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// RankParticipants orders participants by score, highest first. Participants are
// expected in insertion order; ties keep that order.
func RankParticipants(participants []Participant) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		entries = append(entries, LeaderboardEntry{
			ParticipantID: p.ID,
			GameID:        p.GameID,
			Name:          p.Name,
			Score:         p.Score,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}
