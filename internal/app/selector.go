package app

import (
	"math/rand"

	"iqplay/internal/domain"
)

// DefaultBlockSize is the number of questions each player answers.
const DefaultBlockSize = 5

// UsedSet holds the texts of questions already presented in a session.
type UsedSet map[string]struct{}

// Add records every question of block as used.
func (u UsedSet) Add(block []domain.Question) {
	for _, q := range block {
		u[q.Text] = struct{}{}
	}
}

// Has reports whether text was already presented.
func (u UsedSet) Has(text string) bool {
	_, ok := u[text]
	return ok
}

// SelectBlock draws up to size unused questions from pool in uniformly random
// order. It never mutates pool or used. When fewer than size remain it returns
// all of them together with an *domain.InsufficientQuestionsError.
func SelectBlock(pool []domain.Question, used UsedSet, size int, rnd *rand.Rand) ([]domain.Question, error) {
	seen := make(map[string]struct{}, len(pool))
	remaining := make([]domain.Question, 0, len(pool))
	for _, q := range pool {
		if used.Has(q.Text) {
			continue
		}
		if _, dup := seen[q.Text]; dup {
			continue
		}
		seen[q.Text] = struct{}{}
		remaining = append(remaining, q)
	}

	rnd.Shuffle(len(remaining), func(i, j int) {
		remaining[i], remaining[j] = remaining[j], remaining[i]
	})

	if len(remaining) < size {
		return remaining, &domain.InsufficientQuestionsError{Want: size, Got: len(remaining)}
	}
	return remaining[:size], nil
}
