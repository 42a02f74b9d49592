package domain

import "testing"

func TestRecordAnswerKeepsFirst(t *testing.T) {
	p := Participant{ID: "p1"}
	first, recorded := p.RecordAnswer(Answer{QuestionID: "q1", Choice: "A", TimeRemaining: 15, PointsEarned: 15})
	if !recorded || first.PointsEarned != 15 {
		t.Fatalf("expected first answer recorded, got %+v recorded=%v", first, recorded)
	}

	again, recorded := p.RecordAnswer(Answer{QuestionID: "q1", Choice: "B", TimeRemaining: 3, PointsEarned: 0})
	if recorded {
		t.Fatalf("second answer for q1 must not be recorded")
	}
	if again != first {
		t.Fatalf("expected first answer back, got %+v", again)
	}
	if len(p.Answers) != 1 || p.Score != 15 {
		t.Fatalf("ledger changed: answers=%d score=%d", len(p.Answers), p.Score)
	}
}

func TestScoreMatchesAnswers(t *testing.T) {
	p := Participant{}
	p.RecordAnswer(Answer{QuestionID: "q1", PointsEarned: 7})
	p.RecordAnswer(Answer{QuestionID: "q2", PointsEarned: 0})
	p.RecordAnswer(Answer{QuestionID: "q3", PointsEarned: 12})
	if p.Score != p.CurrentScore() || p.Score != 19 {
		t.Fatalf("score %d, recomputed %d", p.Score, p.CurrentScore())
	}
}

func TestRankParticipantsStable(t *testing.T) {
	ranked := RankParticipants([]Participant{
		{ID: "a", Name: "A", Score: 5},
		{ID: "b", Name: "B", Score: 9},
		{ID: "c", Name: "C", Score: 5},
		{ID: "d", Name: "D", Score: 0},
	})
	got := ""
	for _, e := range ranked {
		got += e.ParticipantID
	}
	if got != "bacd" {
		t.Fatalf("expected order bacd, got %s", got)
	}
}
