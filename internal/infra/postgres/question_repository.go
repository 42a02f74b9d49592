package postgres

import (
	"context"
	"fmt"

	"trivia-service/internal/domain"

	"github.com/uptrace/bun"
)

type questionRow struct {
	bun.BaseModel `bun:"table:trivia_questions"`

	ID            string `bun:"id,pk"`
	QuestionText  string `bun:"question_text,notnull"`
	ChoiceA       string `bun:"choice_a,notnull"`
	ChoiceB       string `bun:"choice_b,notnull"`
	ChoiceC       string `bun:"choice_c,notnull"`
	ChoiceD       string `bun:"choice_d,notnull"`
	CorrectChoice string `bun:"correct_choice,notnull"`
	MaxPoints     int    `bun:"max_points,notnull"`
}

// QuestionRepository writes the question bank.
type QuestionRepository struct {
	db *bun.DB
}

func NewQuestionRepository(db *bun.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Upsert inserts the questions, replacing any stored question with the same id.
func (r *QuestionRepository) Upsert(ctx context.Context, questions []domain.Question) (int, error) {
	if len(questions) == 0 {
		return 0, domain.ErrNoQuestions
	}
	rows := make([]questionRow, 0, len(questions))
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return 0, err
		}
		rows = append(rows, questionRow{
			ID:            q.ID,
			QuestionText:  q.Text,
			ChoiceA:       q.ChoiceText("A"),
			ChoiceB:       q.ChoiceText("B"),
			ChoiceC:       q.ChoiceText("C"),
			ChoiceD:       q.ChoiceText("D"),
			CorrectChoice: q.CorrectChoice,
			MaxPoints:     q.MaxPoints,
		})
	}
	res, err := r.db.NewInsert().Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("question_text = EXCLUDED.question_text").
		Set("choice_a = EXCLUDED.choice_a").
		Set("choice_b = EXCLUDED.choice_b").
		Set("choice_c = EXCLUDED.choice_c").
		Set("choice_d = EXCLUDED.choice_d").
		Set("correct_choice = EXCLUDED.correct_choice").
		Set("max_points = EXCLUDED.max_points").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("upsert questions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
