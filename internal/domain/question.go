package domain

import "fmt"

// ChoiceLabels are the labels of the four choices every question carries, in display order.
var ChoiceLabels = []string{"A", "B", "C", "D"}

// Choice is one labeled answer of a question.
type Choice struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question models an immutable multiple-choice question from the bank.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"questionText"`
	Choices       []Choice `json:"choices"`
	CorrectChoice string   `json:"correctChoice"`
	// MaxPoints is carried from the bank but scoring is driven by time remaining.
	MaxPoints int `json:"maxPoints"`
}

// HasChoice reports whether label is one of the question's choices.
func (q Question) HasChoice(label string) bool {
	for _, c := range q.Choices {
		if c.Label == label {
			return true
		}
	}
	return false
}

// Validate checks the question has an id, four A-D choices and a correct label among them.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("question without id")
	}
	if len(q.Choices) != len(ChoiceLabels) {
		return fmt.Errorf("question %s: expected %d choices, got %d", q.ID, len(ChoiceLabels), len(q.Choices))
	}
	for i, c := range q.Choices {
		if c.Label != ChoiceLabels[i] {
			return fmt.Errorf("question %s: choice %d labeled %q, want %q", q.ID, i, c.Label, ChoiceLabels[i])
		}
	}
	if !q.HasChoice(q.CorrectChoice) {
		return fmt.Errorf("question %s: correct choice %q is not a label", q.ID, q.CorrectChoice)
	}
	return nil
}

// NewQuestion builds a question from the four choice texts in A-D order.
func NewQuestion(id, text string, choices [4]string, correct string, maxPoints int) Question {
	q := Question{
		ID:            id,
		Text:          text,
		CorrectChoice: correct,
		MaxPoints:     maxPoints,
		Choices:       make([]Choice, 0, len(choices)),
	}
	for i, t := range choices {
		q.Choices = append(q.Choices, Choice{Label: ChoiceLabels[i], Text: t})
	}
	return q
}

// ChoiceText returns the text of the labeled choice, or "" if the label is unknown.
func (q Question) ChoiceText(label string) string {
	for _, c := range q.Choices {
		if c.Label == label {
			return c.Text
		}
	}
	return ""
}
