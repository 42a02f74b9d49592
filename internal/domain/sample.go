package domain

import "math/rand"

// SampleQuestions picks n distinct questions uniformly at random using a partial
// Fisher-Yates shuffle. The input slice is not modified. If the bank holds fewer
// than n questions, all of them are returned in random order.
func SampleQuestions(bank []Question, n int, rnd *rand.Rand) []Question {
	if n > len(bank) {
		n = len(bank)
	}
	if n <= 0 {
		return nil
	}
	pool := make([]Question, len(bank))
	copy(pool, bank)
	for i := 0; i < n; i++ {
		j := i + rnd.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

// QuestionIDs returns the ids of qs in order.
func QuestionIDs(qs []Question) []string {
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}
