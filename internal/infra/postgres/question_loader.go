package postgres

import (
	"context"
	"fmt"

	"trivia-service/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionLoader loads the question bank from the trivia_questions table.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, question_text, choice_a, choice_b, choice_c, choice_d, correct_choice, max_points
		FROM trivia_questions
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			id, text, correct string
			choices           [4]string
			maxPoints         int
		)
		if err := rows.Scan(&id, &text, &choices[0], &choices[1], &choices[2], &choices[3], &correct, &maxPoints); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, domain.NewQuestion(id, text, choices, correct, maxPoints))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return questions, nil
}
