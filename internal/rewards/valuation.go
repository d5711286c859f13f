// internal/rewards/valuation.go
package rewards

import (
	"fmt"
	"math"

	"rewards-strategist/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CapExcessPolicy decides how spend above a rule's cap is valued.
type CapExcessPolicy string

const (
	// CapExcessFallback values the excess at the card's general rule, then other.
	CapExcessFallback CapExcessPolicy = "fallback"
	// CapExcessZero values the excess at nothing.
	CapExcessZero CapExcessPolicy = "zero"
)

func ParseCapExcessPolicy(s string) (CapExcessPolicy, bool) {
	switch p := CapExcessPolicy(s); p {
	case CapExcessFallback, CapExcessZero:
		return p, true
	}
	return "", false
}

// ConversionTable maps a reward type to currency units per native unit.
type ConversionTable map[models.RewardType]float64

var DefaultConversion = ConversionTable{
	models.RewardPoints:   0.25,
	models.RewardMiles:    1.0,
	models.RewardCashback: 1.0,
}

// Factor returns the conversion for rt. Unknown types convert at par.
func (t ConversionTable) Factor(rt models.RewardType) float64 {
	if t == nil {
		t = DefaultConversion
	}
	if f, ok := t[rt]; ok {
		return f
	}
	return 1.0
}

type ValuationOptions struct {
	Conversion ConversionTable
	CapExcess  CapExcessPolicy
}

func DefaultValuationOptions() ValuationOptions {
	return ValuationOptions{
		Conversion: DefaultConversion,
		CapExcess:  CapExcessFallback,
	}
}

// ValidateSpend rejects negative and non-finite amounts.
func ValidateSpend(spend float64) error {
	if math.IsNaN(spend) || math.IsInf(spend, 0) || spend < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidSpend, spend)
	}
	return nil
}

// Evaluate values spend in category on a single card.
//
// When no rule applies the returned result is the zero-value entry flagged
// RuleMissing, together with an error wrapping ErrNoApplicableRule.
func Evaluate(card models.Card, rules []models.RewardRule, spend float64, category models.Category, opts ValuationOptions) (models.ValuationResult, error) {
	if err := ValidateSpend(spend); err != nil {
		return models.ValuationResult{}, err
	}

	rule, kind, err := ResolveRule(rules, category)
	if err != nil {
		return missingRuleResult(card), fmt.Errorf("card %d, category %s: %w", card.ID, category, err)
	}

	amount := decimal.NewFromFloat(spend)
	earning := amount
	excess := decimal.Zero
	capApplied := false
	if rule.Cap != nil {
		ceiling := decimal.NewFromFloat(*rule.Cap)
		if amount.GreaterThan(ceiling) {
			capApplied = true
			earning = ceiling
			excess = amount.Sub(ceiling)
		}
	}

	raw := earning.Mul(decimal.NewFromFloat(rule.EarnRate)).Div(hundred)

	var excessRate float64
	if capApplied && opts.CapExcess != CapExcessZero {
		if er, ok := excessRule(rules, rule); ok {
			excessRate = er.EarnRate
			raw = raw.Add(excess.Mul(decimal.NewFromFloat(er.EarnRate)).Div(hundred))
		}
	}

	value := raw.Mul(decimal.NewFromFloat(opts.Conversion.Factor(card.RewardType)))

	return models.ValuationResult{
		CardID:          card.ID,
		CardName:        card.Name,
		Bank:            card.Bank,
		RewardType:      card.RewardType,
		RawRewards:      raw.InexactFloat64(),
		EstimatedValue:  value.InexactFloat64(),
		EarnRate:        rule.EarnRate,
		CapApplied:      capApplied,
		Cap:             rule.Cap,
		CategoryMatched: kind,
		RuleCategory:    rule.Category,
		ExcessRate:      excessRate,
		Notes:           rule.Notes,
	}, nil
}

func missingRuleResult(card models.Card) models.ValuationResult {
	return models.ValuationResult{
		CardID:          card.ID,
		CardName:        card.Name,
		Bank:            card.Bank,
		RewardType:      card.RewardType,
		CategoryMatched: models.MatchNone,
		RuleMissing:     true,
	}
}
