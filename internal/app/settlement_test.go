package app_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"iqplay/internal/app"
	"iqplay/internal/domain"
	"iqplay/internal/infra/memory"
)

func TestSettle(t *testing.T) {
	cases := []struct {
		name    string
		p1, p2  int
		tier    domain.Tier
		wantOne string
		wantTwo string
	}{
		{"player one wins very easy", 15, 10, domain.TierVeryEasy, "100", "0"},
		{"player two wins medium", 0, 5, domain.TierMedium, "0", "250"},
		{"player one wins hard", 25, 0, domain.TierHard, "450", "0"},
		{"player two wins very difficult", 10, 20, domain.TierVeryDifficult, "0", "600"},
		{"draw medium splits", 15, 15, domain.TierMedium, "125", "125"},
		{"draw very easy splits", 0, 0, domain.TierVeryEasy, "50", "50"},
		{"point value alias", 5, 0, domain.Tier("600"), "600", "0"},
		{"unspaced very difficult", 20, 10, domain.Tier("VeryDifficult"), "600", "0"},
		{"unspaced very easy draw", 5, 5, domain.Tier("VeryEasy"), "50", "50"},
		{"unknown tier falls back", 5, 0, domain.Tier("Impossible"), "100", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			award := app.Settle(tc.p1, tc.p2, tc.tier)
			require.Equal(t, tc.wantOne, award.PlayerOne.String())
			require.Equal(t, tc.wantTwo, award.PlayerTwo.String())
		})
	}
}

func TestSettleNeverExceedsTierValue(t *testing.T) {
	for _, tier := range []domain.Tier{domain.TierVeryEasy, domain.TierMedium, domain.TierHard, domain.TierVeryDifficult} {
		for p1 := 0; p1 <= 25; p1 += 5 {
			for p2 := 0; p2 <= 25; p2 += 5 {
				award := app.Settle(p1, p2, tier)
				total := award.PlayerOne.Add(award.PlayerTwo)
				require.True(t, total.Equal(decimal.NewFromInt(int64(tier.Points()))), "tier %s %d-%d", tier, p1, p2)
			}
		}
	}
}

func TestMergeAwardAccumulates(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	game := domain.Game{ID: "g1", PlayerOne: "Alice", PlayerTwo: "Bob"}

	require.NoError(t, app.MergeAward(ctx, store, game, app.Settle(10, 5, domain.TierHard)))
	require.NoError(t, app.MergeAward(ctx, store, game, app.Settle(5, 5, domain.TierHard)))

	doc, err := store.Get(ctx, domain.CollectionPoints, "g1")
	require.NoError(t, err)
	var entry domain.LedgerEntry
	require.NoError(t, doc.Decode(&entry))
	require.Equal(t, "g1", entry.GameID)
	require.Equal(t, "Bob", entry.PlayerTwo)
	require.Equal(t, "675", entry.PlayerOnePoints.String())
	require.Equal(t, "225", entry.PlayerTwoPoints.String())
}
