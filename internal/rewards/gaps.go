// internal/rewards/gaps.go
package rewards

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/common/metrics"
	"rewards-strategist/internal/models"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Analyzer reports weakly covered categories and overlapping cards in a
// user's wallet.
type Analyzer struct {
	store  Store
	opts   Options
	logger logger.Logger
	tracer trace.Tracer
}

func NewAnalyzer(store Store, opts Options, log logger.Logger) *Analyzer {
	return &Analyzer{
		store:  store,
		opts:   opts.withDefaults(),
		logger: log.WithFields(map[string]interface{}{"component": "gap-analyzer"}),
		tracer: otel.Tracer(tracerName),
	}
}

func (a *Analyzer) Analyze(ctx context.Context, userID int64) (*models.GapReport, error) {
	start := time.Now()
	defer func() {
		metrics.OperationDuration.WithLabelValues("analyze").Observe(time.Since(start).Seconds())
	}()

	ctx, span := a.tracer.Start(ctx, "rewards.Analyze", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	cards, err := a.store.GetActiveCards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get active cards for user %d: %w", userID, err)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNoActiveCards)
	}

	cards = sortedByID(cards)
	rulesByCard := loadRules(ctx, a.store, cards, a.logger)

	coverage := bestCoverage(cards, rulesByCard, a.opts.GapThreshold)
	gaps := make([]models.CategoryCoverage, 0, len(coverage))
	threshold := decimal.NewFromFloat(a.opts.GapThreshold)
	for _, c := range coverage {
		if decimal.NewFromFloat(c.BestRate).LessThan(threshold) {
			gaps = append(gaps, c)
		}
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		if gaps[i].Shortfall != gaps[j].Shortfall {
			return gaps[i].Shortfall > gaps[j].Shortfall
		}
		return gaps[i].Category.Index() < gaps[j].Category.Index()
	})

	span.SetAttributes(attribute.Int("gaps", len(gaps)))
	return &models.GapReport{
		UserID:         userID,
		Threshold:      a.opts.GapThreshold,
		Coverage:       coverage,
		Gaps:           gaps,
		RedundantPairs: redundantPairs(cards, rulesByCard),
	}, nil
}

// bestCoverage computes, for every canonical category, the best rate any
// card offers through the shared resolution chain. Equal rates go to the
// card listed first.
func bestCoverage(cards []models.Card, rulesByCard map[int64][]models.RewardRule, threshold float64) []models.CategoryCoverage {
	limit := decimal.NewFromFloat(threshold)
	out := make([]models.CategoryCoverage, 0, len(models.Categories()))
	for _, cat := range models.Categories() {
		cov := models.CategoryCoverage{Category: cat}
		found := false
		for _, card := range cards {
			rule, _, err := ResolveRule(rulesByCard[card.ID], cat)
			if err != nil {
				continue
			}
			if !found || rule.EarnRate > cov.BestRate {
				cov.BestRate = rule.EarnRate
				cov.BestCardID = card.ID
				found = true
			}
		}
		if short := limit.Sub(decimal.NewFromFloat(cov.BestRate)); short.IsPositive() {
			cov.Shortfall = short.InexactFloat64()
		}
		out = append(out, cov)
	}
	return out
}

// topTwo returns a card's two strongest categories, or nil when it has
// fewer than two rules. Equal rates order by canonical category order.
func topTwo(rules []models.RewardRule) []models.Category {
	valid := make([]models.RewardRule, 0, len(rules))
	for _, r := range rules {
		if r.Category.Valid() {
			valid = append(valid, r)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].EarnRate != valid[j].EarnRate {
			return valid[i].EarnRate > valid[j].EarnRate
		}
		return valid[i].Category.Index() < valid[j].Category.Index()
	})

	top := make([]models.Category, 0, 2)
	for _, r := range valid {
		if len(top) == 2 {
			break
		}
		if len(top) == 1 && top[0] == r.Category {
			continue
		}
		top = append(top, r.Category)
	}
	if len(top) < 2 {
		return nil
	}
	sort.Slice(top, func(i, j int) bool { return top[i].Index() < top[j].Index() })
	return top
}

// redundantPairs reports card pairs (in id order) whose top two categories
// coincide.
func redundantPairs(cards []models.Card, rulesByCard map[int64][]models.RewardRule) []models.RedundantPair {
	tops := make([][]models.Category, len(cards))
	for i, c := range cards {
		tops[i] = topTwo(rulesByCard[c.ID])
	}

	pairs := []models.RedundantPair{}
	for i := 0; i < len(cards); i++ {
		if tops[i] == nil {
			continue
		}
		for j := i + 1; j < len(cards); j++ {
			if tops[j] == nil || tops[i][0] != tops[j][0] || tops[i][1] != tops[j][1] {
				continue
			}
			pairs = append(pairs, models.RedundantPair{
				FirstCardID:      cards[i].ID,
				SecondCardID:     cards[j].ID,
				FirstCardName:    cards[i].Name,
				SecondCardName:   cards[j].Name,
				SharedCategories: []models.Category{tops[i][0], tops[i][1]},
			})
		}
	}
	return pairs
}

func sortedByID(cards []models.Card) []models.Card {
	out := make([]models.Card, len(cards))
	copy(out, cards)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// loadRules fetches each card's rules; a card whose rules cannot be read
// contributes none.
func loadRules(ctx context.Context, store Store, cards []models.Card, log logger.Logger) map[int64][]models.RewardRule {
	out := make(map[int64][]models.RewardRule, len(cards))
	for _, c := range cards {
		rules, err := store.GetRules(ctx, c.ID)
		if err != nil {
			log.Warn("failed to load rules, card skipped", map[string]interface{}{
				"cardId": c.ID,
				"error":  err.Error(),
			})
			continue
		}
		out[c.ID] = rules
	}
	return out
}
