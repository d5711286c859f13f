// internal/rewards/rules.go
package rewards

import (
	"rewards-strategist/internal/models"
)

type chainStep struct {
	category models.Category
	kind     models.MatchKind
}

// resolutionChain is the single lookup order used by every component:
// the requested category, then general, then other.
func resolutionChain(category models.Category) []chainStep {
	return []chainStep{
		{category, models.MatchExact},
		{models.CategoryGeneral, models.MatchGeneral},
		{models.CategoryOther, models.MatchOther},
	}
}

// ResolveRule picks the rule that governs spend in category.
func ResolveRule(rules []models.RewardRule, category models.Category) (models.RewardRule, models.MatchKind, error) {
	for _, step := range resolutionChain(category) {
		if rule, ok := findRule(rules, step.category); ok {
			return rule, step.kind, nil
		}
	}
	return models.RewardRule{}, models.MatchNone, ErrNoApplicableRule
}

// ResolveRate applies the same chain to a catalog card's headline rates.
func ResolveRate(rates map[models.Category]float64, category models.Category) (float64, models.MatchKind, bool) {
	for _, step := range resolutionChain(category) {
		if rate, ok := rates[step.category]; ok {
			return rate, step.kind, true
		}
	}
	return 0, models.MatchNone, false
}

// findRule returns the rule for category. Duplicates resolve to the highest
// earn rate, then the lowest rule id.
func findRule(rules []models.RewardRule, category models.Category) (models.RewardRule, bool) {
	var (
		best  models.RewardRule
		found bool
	)
	for _, r := range rules {
		if r.Category != category {
			continue
		}
		if !found || r.EarnRate > best.EarnRate || (r.EarnRate == best.EarnRate && r.ID < best.ID) {
			best = r
			found = true
		}
	}
	return best, found
}

// excessRule is the rule that values spend above the matched rule's cap.
func excessRule(rules []models.RewardRule, matched models.RewardRule) (models.RewardRule, bool) {
	for _, c := range []models.Category{models.CategoryGeneral, models.CategoryOther} {
		if c == matched.Category {
			continue
		}
		if r, ok := findRule(rules, c); ok {
			return r, true
		}
	}
	return models.RewardRule{}, false
}
