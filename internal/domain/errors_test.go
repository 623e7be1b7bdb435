package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{&ValidationError{Err: ErrSelectionRequired}, KindValidation},
		{&InvalidStateError{State: "Completing", Err: ErrNoActiveQuestion}, KindInvalidState},
		{&InsufficientQuestionsError{Want: 5, Got: 3}, KindInsufficientQuestions},
		{&PersistenceError{Op: "save outcome", Err: errors.New("boom")}, KindPersistence},
		{fmt.Errorf("%w: no token", ErrUnauthenticated), KindUnauthenticated},
		{ErrSessionActive, KindConflict},
		{ErrSessionCompleted, KindConflict},
		{fmt.Errorf("create game: %w", ErrGameNameTaken), KindConflict},
		{&InvalidStateError{State: "Completing", Err: ErrSettlementPending}, KindInvalidState},
		{fmt.Errorf("wrap: %w", ErrGameNotFound), KindNotFound},
		{errors.New("other"), KindInternal},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, KindOf(tc.err), tc.err.Error())
	}
	require.Equal(t, Kind(""), KindOf(nil))
}

func TestPersistenceErrorUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := &PersistenceError{Op: "settle points", Err: cause}
	require.ErrorIs(t, err, ErrPersistence)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "settle points")
}

func TestKindHTTPStatus(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, KindValidation.HTTPStatus())
	require.Equal(t, http.StatusServiceUnavailable, KindPersistence.HTTPStatus())
	require.Equal(t, http.StatusInternalServerError, Kind("mystery").HTTPStatus())
}
