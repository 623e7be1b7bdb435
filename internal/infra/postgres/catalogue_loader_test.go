package postgres

import (
	"testing"

	"github.com/stretchr/testify/require"
	"iqplay/internal/domain"
)

func TestDecodeQuestion(t *testing.T) {
	q, err := decodeQuestion([]byte(`{"question": "2+2?", "options": ["3", "4"], "correct": "4"}`))
	require.NoError(t, err)
	require.Equal(t, domain.Question{Text: "2+2?", Options: []string{"3", "4"}, Correct: "4"}, q)

	cases := map[string]string{
		"correct not offered": `{"question": "2+2?", "options": ["3", "5"], "correct": "4"}`,
		"single option":       `{"question": "2+2?", "options": ["4"], "correct": "4"}`,
		"duplicate options":   `{"question": "2+2?", "options": ["4", "4"], "correct": "4"}`,
		"blank text":          `{"question": "", "options": ["3", "4"], "correct": "4"}`,
	}
	for name, raw := range cases {
		_, err := decodeQuestion([]byte(raw))
		require.ErrorIs(t, err, domain.ErrInvalidQuestion, name)
	}

	_, err = decodeQuestion([]byte(`not json`))
	require.Error(t, err)
}
