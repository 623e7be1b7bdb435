package domain

import (
	"encoding/json"
	"fmt"
)

// Catalogue is the static question bank: category -> tier -> questions.
type Catalogue map[string]map[Tier][]Question

// ParseCatalogue decodes a questions.json style document. Tier keys may be
// names ("Hard") or point values ("450"); both resolve to the canonical tier
// and their questions are merged.
func ParseCatalogue(raw []byte) (Catalogue, error) {
	var doc map[string]map[string][]Question
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}
	cat := make(Catalogue, len(doc))
	for category, tiers := range doc {
		for rawTier, questions := range tiers {
			if err := cat.Add(category, ParseTier(rawTier), questions...); err != nil {
				return nil, err
			}
		}
	}
	return cat, nil
}

// Add validates and appends questions to the pool for category and tier.
func (c Catalogue) Add(category string, tier Tier, questions ...Question) error {
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("%s/%s question %d %q: %w", category, tier, i, q.Text, err)
		}
	}
	tiers, ok := c[category]
	if !ok {
		tiers = make(map[Tier][]Question)
		c[category] = tiers
	}
	tier = ParseTier(string(tier))
	tiers[tier] = append(tiers[tier], questions...)
	return nil
}

// Pool returns the questions for category and tier.
func (c Catalogue) Pool(category string, tier Tier) ([]Question, bool) {
	tiers, ok := c[category]
	if !ok {
		return nil, false
	}
	pool, ok := tiers[ParseTier(string(tier))]
	return pool, ok
}
