package app

import (
	"context"

	"github.com/shopspring/decimal"
	"iqplay/internal/domain"
)

var two = decimal.NewFromInt(2)

// Settle maps the final scores and tier to the bonus points of each player.
// The winner takes the tier value; a draw splits it evenly without rounding.
func Settle(playerOneScore, playerTwoScore int, tier domain.Tier) domain.Award {
	value := decimal.NewFromInt(int64(tier.Points()))
	switch {
	case playerOneScore > playerTwoScore:
		return domain.Award{PlayerOne: value, PlayerTwo: decimal.Zero}
	case playerTwoScore > playerOneScore:
		return domain.Award{PlayerOne: decimal.Zero, PlayerTwo: value}
	default:
		half := value.Div(two)
		return domain.Award{PlayerOne: half, PlayerTwo: half}
	}
}

// MergeAward adds award to the game's ledger entry with a single atomic
// increment. Existing totals are never overwritten.
func MergeAward(ctx context.Context, store DocumentStore, game domain.Game, award domain.Award) error {
	seed := domain.Document{
		"gameId":    game.ID,
		"playerOne": game.PlayerOne,
		"playerTwo": game.PlayerTwo,
	}
	delta := map[string]decimal.Decimal{
		domain.FieldPlayerOnePoints: award.PlayerOne,
		domain.FieldPlayerTwoPoints: award.PlayerTwo,
	}
	return store.Increment(ctx, domain.CollectionPoints, game.ID, delta, seed)
}
