package app

import (
	"iqplay/internal/domain"
)

// Scoreboard holds the running in-quiz score of both players.
type Scoreboard struct {
	PlayerOne int `json:"playerOne"`
	PlayerTwo int `json:"playerTwo"`
}

// Add credits one correct answer to seat.
func (s *Scoreboard) Add(seat domain.Seat) {
	switch seat {
	case domain.PlayerOne:
		s.PlayerOne += domain.PointsPerCorrect
	case domain.PlayerTwo:
		s.PlayerTwo += domain.PointsPerCorrect
	}
}

type answerKey struct {
	seat     domain.Seat
	question string
}

// AnswerRecorder appends one response per presented question and keeps the
// scoreboard in step with it.
type AnswerRecorder struct {
	responses []domain.AnswerResponse
	answered  map[answerKey]struct{}
	scores    Scoreboard
}

func NewAnswerRecorder() *AnswerRecorder {
	return &AnswerRecorder{answered: make(map[answerKey]struct{})}
}

// Record stores the answer of seat (named player) to q. selected is nil on
// timeout. A second answer to the same question by the same seat is rejected.
func (r *AnswerRecorder) Record(seat domain.Seat, player string, q domain.Question, selected *string) (domain.AnswerResponse, error) {
	key := answerKey{seat: seat, question: q.Text}
	if _, dup := r.answered[key]; dup {
		return domain.AnswerResponse{}, &domain.InvalidStateError{State: "AnswerRecorded", Err: domain.ErrAlreadyAnswered}
	}

	var choice *string
	if selected != nil {
		v := *selected
		choice = &v
	}
	resp := domain.AnswerResponse{
		Seat:           seat,
		Player:         player,
		Question:       q.Text,
		Options:        append([]string(nil), q.Options...),
		CorrectAnswer:  q.Correct,
		SelectedOption: choice,
	}

	r.answered[key] = struct{}{}
	r.responses = append(r.responses, resp)
	if resp.IsCorrect() {
		r.scores.Add(seat)
	}
	return resp, nil
}

// Responses returns a copy of the audit trail in presentation order.
func (r *AnswerRecorder) Responses() []domain.AnswerResponse {
	out := make([]domain.AnswerResponse, len(r.responses))
	copy(out, r.responses)
	return out
}

// Scores returns the current scoreboard.
func (r *AnswerRecorder) Scores() Scoreboard {
	return r.scores
}

// Count returns how many responses were recorded.
func (r *AnswerRecorder) Count() int {
	return len(r.responses)
}
