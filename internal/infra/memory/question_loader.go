package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"trivia-service/internal/domain"

	"github.com/google/uuid"
)

// StaticQuestionLoader is a simple loader backed by a fixed slice (useful for tests/demos).
type StaticQuestionLoader struct {
	questions []domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	if len(l.questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	out := make([]domain.Question, len(l.questions))
	copy(out, l.questions)
	return out, nil
}

// JSONQuestionLoader reads a question bank document from a file or an environment variable.
type JSONQuestionLoader struct {
	source string
	read   func() ([]byte, error)
}

// NewFileQuestionLoader loads the bank from a JSON file.
func NewFileQuestionLoader(path string) *JSONQuestionLoader {
	return &JSONQuestionLoader{
		source: path,
		read:   func() ([]byte, error) { return os.ReadFile(path) },
	}
}

// NewEnvQuestionLoader loads the bank from the JSON held in an environment variable.
func NewEnvQuestionLoader(name string) *JSONQuestionLoader {
	return &JSONQuestionLoader{
		source: "$" + name,
		read: func() ([]byte, error) {
			raw, ok := os.LookupEnv(name)
			if !ok || raw == "" {
				return nil, fmt.Errorf("%s is not set", name)
			}
			return []byte(raw), nil
		},
	}
}

func (l *JSONQuestionLoader) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	data, err := l.read()
	if err != nil {
		return nil, fmt.Errorf("read question bank %s: %w", l.source, err)
	}
	questions, err := ParseQuestionBank(data)
	if err != nil {
		return nil, fmt.Errorf("parse question bank %s: %w", l.source, err)
	}
	return questions, nil
}

// bankRecord is one entry of a question bank document.
type bankRecord struct {
	ID            string `json:"id"`
	QuestionText  string `json:"questionText"`
	ChoiceA       string `json:"choiceA"`
	ChoiceB       string `json:"choiceB"`
	ChoiceC       string `json:"choiceC"`
	ChoiceD       string `json:"choiceD"`
	CorrectChoice string `json:"correctChoice"`
	MaxPoints     int    `json:"maxPoints"`
}

// ParseQuestionBank decodes a JSON array of bank records. Records without an id get
// one derived from their text, so reloading the same bank yields the same ids.
func ParseQuestionBank(data []byte) ([]domain.Question, error) {
	var records []bankRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.ErrNoQuestions
	}
	seen := make(map[string]bool, len(records))
	questions := make([]domain.Question, 0, len(records))
	for _, r := range records {
		id := r.ID
		if id == "" {
			id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(r.QuestionText)).String()
		}
		q := domain.NewQuestion(id, r.QuestionText, [4]string{r.ChoiceA, r.ChoiceB, r.ChoiceC, r.ChoiceD}, r.CorrectChoice, r.MaxPoints)
		if err := q.Validate(); err != nil {
			return nil, err
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("duplicate question %s", q.ID)
		}
		seen[q.ID] = true
		questions = append(questions, q)
	}
	return questions, nil
}
