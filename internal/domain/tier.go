package domain

import "strings"

// Tier is the difficulty chosen for a round. It drives both the question
// pool and the bonus points awarded to the winner.
type Tier string

const (
	TierVeryEasy      Tier = "Very Easy"
	TierMedium        Tier = "Medium"
	TierHard          Tier = "Hard"
	TierVeryDifficult Tier = "Very Difficult"
)

// DefaultTierPoints is awarded for tiers that are not in the table.
const DefaultTierPoints = 100

var tierPoints = map[Tier]int{
	TierVeryEasy:      100,
	TierMedium:        250,
	TierHard:          450,
	TierVeryDifficult: 600,
}

// tierAliases is keyed by the lowercased name with spaces removed, so
// "Very Difficult", "VeryDifficult" and "very difficult" all match.
var tierAliases = map[string]Tier{
	"veryeasy":      TierVeryEasy,
	"medium":        TierMedium,
	"hard":          TierHard,
	"verydifficult": TierVeryDifficult,
	"100":           TierVeryEasy,
	"250":           TierMedium,
	"450":           TierHard,
	"600":           TierVeryDifficult,
}

// ParseTier resolves a tier name in any spacing or case, or its point value
// ("250"), to the canonical tier. Unknown input is returned trimmed.
func ParseTier(raw string) Tier {
	s := strings.TrimSpace(raw)
	key := strings.ToLower(strings.ReplaceAll(s, " ", ""))
	if t, ok := tierAliases[key]; ok {
		return t
	}
	return Tier(s)
}

// Points returns the bonus points for the tier, DefaultTierPoints if unknown.
func (t Tier) Points() int {
	if p, ok := tierPoints[ParseTier(string(t))]; ok {
		return p
	}
	return DefaultTierPoints
}
