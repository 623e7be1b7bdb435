package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSessionNotFound is returned when no round is in progress for a game.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionActive is returned when a round is started while another is still running.
	ErrSessionActive = errors.New("quiz session already in progress")
	// ErrSessionCompleted is returned for any action on a finished round.
	ErrSessionCompleted = errors.New("quiz session already completed")
	// ErrGameNotFound indicates the lobby document does not exist.
	ErrGameNotFound = errors.New("game not found")
	// ErrDocumentNotFound is returned by document stores on a missing key.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrPoolNotFound indicates the catalogue has no questions for a category and tier.
	ErrPoolNotFound = errors.New("question pool not found")
	// ErrInvalidQuestion indicates a catalogue entry breaks the question constraints.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrOptionNotFound indicates a selected option is not offered by the question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrUnauthenticated is returned when no user is signed in.
	ErrUnauthenticated = errors.New("user not signed in")

	// ErrGameNameTaken is returned when the user already has a game with that name.
	ErrGameNameTaken = errors.New("game name already exists")
	// ErrSettlementPending is returned when a round is dropped before its outcome is stored.
	ErrSettlementPending = errors.New("round outcome not stored yet, retry before leaving")

	ErrGameNameRequired      = errors.New("game name is required")
	ErrPlayerNameRequired    = errors.New("both player names are required")
	ErrSamePlayerNames       = errors.New("player names must differ")
	ErrCategoryCount         = errors.New("wrong number of categories")
	ErrCategoryNotInGame     = errors.New("category was not picked for this game")
	ErrSelectionRequired     = errors.New("select an option before proceeding")
	ErrTimeUp                = errors.New("time is up, option can no longer be selected")
	ErrNoActiveQuestion      = errors.New("no question is active")
	ErrAlreadyAnswered       = errors.New("question already answered")
	ErrInsufficientQuestions = errors.New("insufficient questions")
	ErrPersistence           = errors.New("persist session outcome")
	ErrRoundInProgress       = errors.New("round still in progress")
	ErrFinalizing            = errors.New("finalization in progress")
)

// Kind is a stable error classification shared by transports.
type Kind string

const (
	KindValidation            Kind = "validation"
	KindInvalidState          Kind = "invalid_state"
	KindInsufficientQuestions Kind = "insufficient_questions"
	KindPersistence           Kind = "persistence"
	KindNotFound              Kind = "not_found"
	KindConflict              Kind = "conflict"
	KindUnauthenticated       Kind = "unauthenticated"
	KindInternal              Kind = "internal"
)

var kindStatus = map[Kind]int{
	KindValidation:            http.StatusBadRequest,
	KindInvalidState:          http.StatusConflict,
	KindInsufficientQuestions: http.StatusUnprocessableEntity,
	KindPersistence:           http.StatusServiceUnavailable,
	KindNotFound:              http.StatusNotFound,
	KindConflict:              http.StatusConflict,
	KindUnauthenticated:       http.StatusUnauthorized,
	KindInternal:              http.StatusInternalServerError,
}

// HTTPStatus maps the kind to a response status code.
func (k Kind) HTTPStatus() int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// ValidationError is a user-correctable condition. Session state is unchanged.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// InvalidStateError signals an action that the state machine does not allow.
type InvalidStateError struct {
	State string
	Err   error
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state %s: %v", e.State, e.Err)
}
func (e *InvalidStateError) Unwrap() error { return e.Err }

// InsufficientQuestionsError reports a pool that cannot fill a whole block.
type InsufficientQuestionsError struct {
	Want int
	Got  int
}

func (e *InsufficientQuestionsError) Error() string {
	return fmt.Sprintf("insufficient questions: need %d got %d", e.Want, e.Got)
}
func (e *InsufficientQuestionsError) Unwrap() error { return ErrInsufficientQuestions }

// CategoryCountError reports a lobby with the wrong number of categories.
type CategoryCountError struct {
	Want int
	Got  int
}

func (e *CategoryCountError) Error() string {
	return fmt.Sprintf("select exactly %d categories (%d selected)", e.Want, e.Got)
}
func (e *CategoryCountError) Unwrap() error { return ErrCategoryCount }

// PersistenceError wraps a store failure while finalizing a round.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// KindOf classifies err for transports.
func KindOf(err error) Kind {
	var (
		vErr *ValidationError
		sErr *InvalidStateError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &vErr):
		return KindValidation
	case errors.As(err, &sErr):
		return KindInvalidState
	case errors.Is(err, ErrInsufficientQuestions):
		return KindInsufficientQuestions
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrSessionActive), errors.Is(err, ErrSessionCompleted),
		errors.Is(err, ErrGameNameTaken):
		return KindConflict
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrGameNotFound),
		errors.Is(err, ErrDocumentNotFound), errors.Is(err, ErrPoolNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
