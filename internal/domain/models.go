package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PointsPerCorrect is added to a player's score for every correct answer.
const PointsPerCorrect = 5

// Seat identifies which of the two players is acting.
type Seat int

const (
	PlayerOne Seat = 1
	PlayerTwo Seat = 2
)

func (s Seat) String() string {
	switch s {
	case PlayerOne:
		return "playerOne"
	case PlayerTwo:
		return "playerTwo"
	default:
		return "unknown"
	}
}

// User is the signed-in account that owns a game lobby.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Partition returns the document collection holding the user's games.
// Dots are not allowed in collection names, so they become underscores.
func (u User) Partition() string {
	return strings.ReplaceAll(u.Email, ".", "_")
}

// Question models a multiple choice question with exactly one correct option.
type Question struct {
	Text    string   `json:"question"`
	Options []string `json:"options"`
	Correct string   `json:"correct"`
}

// HasOption reports whether option is one of the question's options.
func (q Question) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// Validate checks the catalogue constraints on a single question.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return ErrInvalidQuestion
	}
	if len(q.Options) < 2 {
		return ErrInvalidQuestion
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, o := range q.Options {
		if _, dup := seen[o]; dup {
			return ErrInvalidQuestion
		}
		seen[o] = struct{}{}
	}
	if _, ok := seen[q.Correct]; !ok {
		return ErrInvalidQuestion
	}
	return nil
}

// Game is the lobby document a user creates before playing rounds.
type Game struct {
	ID         string    `json:"gameId"`
	GameName   string    `json:"gameName"`
	PlayerOne  string    `json:"playerOne"`
	PlayerTwo  string    `json:"playerTwo"`
	Categories []string  `json:"selectedCards"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HasCategory reports whether category was picked for the lobby.
func (g Game) HasCategory(category string) bool {
	for _, c := range g.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Player returns the name sitting in seat.
func (g Game) Player(seat Seat) string {
	if seat == PlayerTwo {
		return g.PlayerTwo
	}
	return g.PlayerOne
}

// AnswerResponse is the immutable audit record for one presented question.
// SelectedOption is nil when the turn timed out.
type AnswerResponse struct {
	Seat           Seat     `json:"seat,omitempty"`
	Player         string   `json:"player"`
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	CorrectAnswer  string   `json:"correctAnswer"`
	SelectedOption *string  `json:"selectedOption"`
}

// IsCorrect reports whether the selected option matches the correct answer.
func (r AnswerResponse) IsCorrect() bool {
	return r.SelectedOption != nil && *r.SelectedOption == r.CorrectAnswer
}

// SessionOutcome is written once, when both players have finished.
type SessionOutcome struct {
	GameName       string           `json:"gameName"`
	Player1        string           `json:"player1"`
	Player2        string           `json:"player2"`
	PlayerOneScore int              `json:"playerOneScore"`
	PlayerTwoScore int              `json:"playerTwoScore"`
	Responses      []AnswerResponse `json:"responses"`
}

// Winner classifies the outcome. Zero means a draw.
func (o SessionOutcome) Winner() Seat {
	switch {
	case o.PlayerOneScore > o.PlayerTwoScore:
		return PlayerOne
	case o.PlayerTwoScore > o.PlayerOneScore:
		return PlayerTwo
	default:
		return 0
	}
}

// Award is the bonus points granted to each player for one round.
type Award struct {
	PlayerOne decimal.Decimal `json:"playerOneAward"`
	PlayerTwo decimal.Decimal `json:"playerTwoAward"`
}

// LedgerEntry is the accumulated bonus points for a game.
type LedgerEntry struct {
	GameID          string          `json:"gameId"`
	PlayerOne       string          `json:"playerOne"`
	PlayerTwo       string          `json:"playerTwo"`
	PlayerOnePoints decimal.Decimal `json:"playerOnePoints"`
	PlayerTwoPoints decimal.Decimal `json:"playerTwoPoints"`
}

// Result is the summary shown after a round.
type Result struct {
	GameName         string `json:"gameName"`
	Player1          string `json:"player1"`
	Player2          string `json:"player2"`
	PlayerOneScore   int    `json:"playerOneScore"`
	PlayerTwoScore   int    `json:"playerTwoScore"`
	PlayerOneCorrect int    `json:"playerOneCorrect"`
	PlayerTwoCorrect int    `json:"playerTwoCorrect"`
	Winner           string `json:"winner"`
	Draw             bool   `json:"draw"`
}

// StandingsEntry is a snapshot-friendly view of one player's ledger points.
type StandingsEntry struct {
	Player string          `json:"player"`
	Points decimal.Decimal `json:"points"`
}

// Standings captures the ordered bonus points for a game lobby.
type Standings struct {
	GameID  string           `json:"gameId"`
	Entries []StandingsEntry `json:"entries"`
	Leader  string           `json:"leader"`
}
