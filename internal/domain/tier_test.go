package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTier(t *testing.T) {
	cases := map[string]Tier{
		"Very Easy":      TierVeryEasy,
		"VeryEasy":       TierVeryEasy,
		" Medium ":       TierMedium,
		"hard":           TierHard,
		"450":            TierHard,
		"600":            TierVeryDifficult,
		"Very Difficult": TierVeryDifficult,
		"VeryDifficult":  TierVeryDifficult,
		"Legendary":      Tier("Legendary"),
	}
	for raw, want := range cases {
		require.Equal(t, want, ParseTier(raw), raw)
	}
}

func TestTierPoints(t *testing.T) {
	require.Equal(t, 100, TierVeryEasy.Points())
	require.Equal(t, 250, TierMedium.Points())
	require.Equal(t, 450, Tier("450").Points())
	require.Equal(t, 600, TierVeryDifficult.Points())
	require.Equal(t, 600, Tier("VeryDifficult").Points())
	require.Equal(t, 100, Tier("VeryEasy").Points())
	require.Equal(t, DefaultTierPoints, Tier("Legendary").Points())
}
