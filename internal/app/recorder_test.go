package app

import (
	"testing"

	"github.com/stretchr/testify/require"
	"iqplay/internal/domain"
)

func TestAnswerRecorderScores(t *testing.T) {
	r := NewAnswerRecorder()
	q := domain.Question{Text: "Capital of France?", Options: []string{"Paris", "Rome"}, Correct: "Paris"}
	right, wrong := "Paris", "Rome"

	resp, err := r.Record(domain.PlayerOne, "Alice", q, &right)
	require.NoError(t, err)
	require.True(t, resp.IsCorrect())
	require.Equal(t, domain.PlayerOne, resp.Seat)

	resp, err = r.Record(domain.PlayerTwo, "Bob", q, &wrong)
	require.NoError(t, err)
	require.Equal(t, domain.PlayerTwo, resp.Seat)

	require.Equal(t, Scoreboard{PlayerOne: 5, PlayerTwo: 0}, r.Scores())
	require.Equal(t, 2, r.Count())
}

func TestAnswerRecorderTimeout(t *testing.T) {
	r := NewAnswerRecorder()
	q := domain.Question{Text: "Q", Options: []string{"a", "b"}, Correct: "a"}

	resp, err := r.Record(domain.PlayerOne, "Alice", q, nil)
	require.NoError(t, err)
	require.Nil(t, resp.SelectedOption)
	require.False(t, resp.IsCorrect())
	require.Equal(t, Scoreboard{}, r.Scores())
}

func TestAnswerRecorderRejectsDuplicate(t *testing.T) {
	r := NewAnswerRecorder()
	q := domain.Question{Text: "Q", Options: []string{"a", "b"}, Correct: "a"}
	choice := "a"

	_, err := r.Record(domain.PlayerOne, "Alice", q, &choice)
	require.NoError(t, err)
	_, err = r.Record(domain.PlayerOne, "Alice", q, &choice)

	var stateErr *domain.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	require.ErrorIs(t, err, domain.ErrAlreadyAnswered)
	require.Equal(t, 1, r.Count())
	require.Equal(t, 5, r.Scores().PlayerOne)
}

func TestAnswerRecorderCopiesInput(t *testing.T) {
	r := NewAnswerRecorder()
	q := domain.Question{Text: "Q", Options: []string{"a", "b"}, Correct: "a"}
	choice := "b"

	_, err := r.Record(domain.PlayerOne, "Alice", q, &choice)
	require.NoError(t, err)
	choice = "a"
	q.Options[0] = "z"

	got := r.Responses()[0]
	require.Equal(t, "b", *got.SelectedOption)
	require.Equal(t, []string{"a", "b"}, got.Options)
}
