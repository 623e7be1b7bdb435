package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCatalogueMergesTierAliases(t *testing.T) {
	raw := []byte(`{
		"Science": {
			"Hard": [{"question": "Q1", "options": ["a", "b"], "correct": "a"}],
			"450":  [{"question": "Q2", "options": ["a", "b"], "correct": "b"}]
		},
		"History": {
			"Medium": [{"question": "Q3", "options": ["x", "y", "z"], "correct": "z"}]
		}
	}`)
	cat, err := ParseCatalogue(raw)
	require.NoError(t, err)

	pool, ok := cat.Pool("Science", TierHard)
	require.True(t, ok)
	require.Len(t, pool, 2)

	pool, ok = cat.Pool("History", Tier("250"))
	require.True(t, ok)
	require.Equal(t, "z", pool[0].Correct)

	_, ok = cat.Pool("Geography", TierHard)
	require.False(t, ok)
}

func TestParseCatalogueRejectsBadQuestion(t *testing.T) {
	raw := []byte(`{"Science": {"Hard": [{"question": "Q1", "options": ["a", "b"], "correct": "c"}]}}`)
	_, err := ParseCatalogue(raw)
	require.ErrorIs(t, err, ErrInvalidQuestion)
}

func TestQuestionValidate(t *testing.T) {
	valid := Question{Text: "Q", Options: []string{"a", "b"}, Correct: "a"}
	require.NoError(t, valid.Validate())

	for name, q := range map[string]Question{
		"empty text":        {Text: " ", Options: []string{"a", "b"}, Correct: "a"},
		"single option":     {Text: "Q", Options: []string{"a"}, Correct: "a"},
		"duplicate options": {Text: "Q", Options: []string{"a", "a"}, Correct: "a"},
		"correct missing":   {Text: "Q", Options: []string{"a", "b"}, Correct: "c"},
	} {
		require.ErrorIs(t, q.Validate(), ErrInvalidQuestion, name)
	}
}
