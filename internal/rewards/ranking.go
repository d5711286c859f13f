// internal/rewards/ranking.go
package rewards

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/common/metrics"
	"rewards-strategist/internal/models"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "rewards-strategist/internal/rewards"

// TieBrokenByCollaborator marks a ranking whose tied prefix was reordered
// by the TieBreaker.
const TieBrokenByCollaborator = "collaborator"

// Ranker values a purchase across a user's active cards and orders them.
type Ranker struct {
	store      Store
	tieBreaker TieBreaker
	opts       Options
	logger     logger.Logger
	tracer     trace.Tracer
}

// NewRanker builds a Ranker. tieBreaker may be nil.
func NewRanker(store Store, tieBreaker TieBreaker, opts Options, log logger.Logger) *Ranker {
	return &Ranker{
		store:      store,
		tieBreaker: tieBreaker,
		opts:       opts.withDefaults(),
		logger:     log.WithFields(map[string]interface{}{"component": "ranker"}),
		tracer:     otel.Tracer(tracerName),
	}
}

// Rank values spend in category on every active card of userID.
//
// A category outside the canonical set yields a needs_clarification result
// rather than an error. ErrInvalidSpend and ErrNoActiveCards are returned as
// errors; a card without an applicable rule is reported with RuleMissing.
func (r *Ranker) Rank(ctx context.Context, userID int64, spend float64, category string) (*models.RankedComparison, error) {
	start := time.Now()
	defer func() {
		metrics.OperationDuration.WithLabelValues("rank").Observe(time.Since(start).Seconds())
	}()

	ctx, span := r.tracer.Start(ctx, "rewards.Rank", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.String("category", category),
	))
	defer span.End()

	if err := ValidateSpend(spend); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	cat, ok := models.ParseCategory(category)
	if !ok {
		metrics.RankingsTotal.WithLabelValues(string(models.StatusNeedsClarification)).Inc()
		return &models.RankedComparison{
			UserID:        userID,
			SpendAmount:   spend,
			Category:      models.Category(strings.ToLower(strings.TrimSpace(category))),
			Ranked:        []models.ValuationResult{},
			OverallStatus: models.StatusNeedsClarification,
			TieBand:       r.opts.TieBand,
		}, nil
	}

	cards, err := r.store.GetActiveCards(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("get active cards for user %d: %w", userID, err)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNoActiveCards)
	}

	results, rulesByCard := r.valueAll(ctx, cards, spend, cat)
	SortResults(results)
	MarkCloseTies(results, r.opts.TieBand)

	out := &models.RankedComparison{
		UserID:        userID,
		SpendAmount:   spend,
		Category:      cat,
		Ranked:        results,
		OverallStatus: overallStatus(results),
		TieBand:       r.opts.TieBand,
	}

	if r.breakTie(ctx, out, rulesByCard) {
		out.TieBrokenBy = TieBrokenByCollaborator
	}

	metrics.RankingsTotal.WithLabelValues(string(out.OverallStatus)).Inc()
	span.SetAttributes(
		attribute.Int("cards", len(results)),
		attribute.String("status", string(out.OverallStatus)),
	)
	return out, nil
}

// Estimate values spend in category on a single active card of userID.
func (r *Ranker) Estimate(ctx context.Context, userID, cardID int64, spend float64, category string) (*models.ValuationResult, error) {
	ctx, span := r.tracer.Start(ctx, "rewards.Estimate", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("card.id", cardID),
	))
	defer span.End()

	if err := ValidateSpend(spend); err != nil {
		return nil, err
	}
	cat, ok := models.ParseCategory(category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnresolvedCategory, category)
	}

	cards, err := r.store.GetActiveCards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get active cards for user %d: %w", userID, err)
	}
	var card *models.Card
	for i := range cards {
		if cards[i].ID == cardID {
			card = &cards[i]
			break
		}
	}
	if card == nil {
		return nil, fmt.Errorf("card %d for user %d: %w", cardID, userID, ErrCardNotFound)
	}

	rules, err := r.store.GetRules(ctx, card.ID)
	if err != nil {
		return nil, fmt.Errorf("get rules for card %d: %w", card.ID, err)
	}
	result, err := Evaluate(*card, rules, spend, cat, r.opts.Valuation)
	if err != nil && !errors.Is(err, ErrNoApplicableRule) {
		return nil, err
	}
	return &result, nil
}

// valueAll values every card independently. A card whose rules cannot be
// read or do not apply becomes a RuleMissing entry.
func (r *Ranker) valueAll(ctx context.Context, cards []models.Card, spend float64, cat models.Category) ([]models.ValuationResult, map[int64][]models.RewardRule) {
	results := make([]models.ValuationResult, 0, len(cards))
	rulesByCard := make(map[int64][]models.RewardRule, len(cards))

	for _, card := range cards {
		rules, err := r.store.GetRules(ctx, card.ID)
		if err != nil {
			r.logger.Warn("failed to load rules, card valued as missing", map[string]interface{}{
				"cardId": card.ID,
				"error":  err.Error(),
			})
			results = append(results, missingRuleResult(card))
			continue
		}
		rulesByCard[card.ID] = rules

		result, err := Evaluate(card, rules, spend, cat, r.opts.Valuation)
		if err != nil {
			r.logger.Debug("no applicable rule", map[string]interface{}{
				"cardId":   card.ID,
				"category": string(cat),
			})
		}
		results = append(results, result)
	}
	return results, rulesByCard
}

// SortResults orders by value desc, earn rate desc, card id asc.
func SortResults(results []models.ValuationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.EstimatedValue != b.EstimatedValue {
			return a.EstimatedValue > b.EstimatedValue
		}
		if a.EarnRate != b.EarnRate {
			return a.EarnRate > b.EarnRate
		}
		return a.CardID < b.CardID
	})
}

// MarkCloseTies flags every non-top entry whose value is within band of
// the top value. A top value of zero marks nothing.
func MarkCloseTies(results []models.ValuationResult, band float64) {
	if len(results) == 0 {
		return
	}
	results[0].CloseTie = false
	top := decimal.NewFromFloat(results[0].EstimatedValue)
	limit := decimal.NewFromFloat(band)
	for i := 1; i < len(results); i++ {
		if !top.IsPositive() {
			results[i].CloseTie = false
			continue
		}
		gap := top.Sub(decimal.NewFromFloat(results[i].EstimatedValue)).Div(top)
		results[i].CloseTie = gap.LessThanOrEqual(limit)
	}
}

// tieGroupSize is the length of the prefix made of the top entry and the
// entries marked close_tie.
func tieGroupSize(results []models.ValuationResult) int {
	if len(results) == 0 {
		return 0
	}
	n := 1
	for n < len(results) && results[n].CloseTie {
		n++
	}
	return n
}

func overallStatus(results []models.ValuationResult) models.RankingStatus {
	missing := 0
	for _, res := range results {
		if res.RuleMissing {
			missing++
		}
	}
	switch {
	case missing == 0:
		return models.StatusOK
	case missing == len(results):
		return models.StatusNoRules
	default:
		return models.StatusPartial
	}
}

// breakTie hands the tied prefix to the TieBreaker and applies its order
// when it is a permutation of the prefix. It reports whether the order was
// applied. Entries outside the prefix never move.
func (r *Ranker) breakTie(ctx context.Context, out *models.RankedComparison, rulesByCard map[int64][]models.RewardRule) bool {
	n := tieGroupSize(out.Ranked)
	if r.tieBreaker == nil || n < 2 {
		return false
	}
	group := out.Ranked[:n]

	ids := make([]int64, n)
	for i, res := range group {
		ids[i] = res.CardID
	}
	tc := r.tieContext(ctx, out, group, rulesByCard)

	order, err := callCollaborator(ctx, r.opts.CollaboratorTimeout, func(ctx context.Context) ([]int64, error) {
		return r.tieBreaker.RankSubset(ctx, ids, tc)
	})
	if err != nil {
		reason := fallbackReason(err)
		recordFallback("tie_breaker", reason)
		r.logger.Warn("tie breaker unavailable, keeping deterministic order", map[string]interface{}{
			"userId": out.UserID,
			"reason": reason,
			"error":  err.Error(),
		})
		return false
	}
	if !isPermutation(ids, order) {
		recordFallback("tie_breaker", "invalid_order")
		r.logger.Warn("tie breaker returned invalid order, keeping deterministic order", map[string]interface{}{
			"userId":   out.UserID,
			"expected": ids,
			"received": order,
		})
		return false
	}

	byID := make(map[int64]models.ValuationResult, n)
	for _, res := range group {
		byID[res.CardID] = res
	}
	for i, id := range order {
		res := byID[id]
		res.CloseTie = i > 0
		group[i] = res
	}
	return true
}

func (r *Ranker) tieContext(ctx context.Context, out *models.RankedComparison, group []models.ValuationResult, rulesByCard map[int64][]models.RewardRule) TieContext {
	pref, err := r.store.GetUserPreference(ctx, out.UserID)
	if err != nil {
		r.logger.Debug("user preference unavailable", map[string]interface{}{
			"userId": out.UserID,
			"error":  err.Error(),
		})
	}

	catalog := map[string]models.AvailableCard{}
	if entries, err := r.store.GetCatalog(ctx); err == nil {
		for _, e := range entries {
			catalog[cardKey(e.Name, e.Bank)] = e
		}
	} else {
		r.logger.Debug("catalog unavailable for tie context", map[string]interface{}{"error": err.Error()})
	}

	candidates := make([]TieCandidate, 0, len(group))
	for _, res := range group {
		c := TieCandidate{
			CardID:         res.CardID,
			CardName:       res.CardName,
			Bank:           res.Bank,
			EstimatedValue: res.EstimatedValue,
			EarnRate:       res.EarnRate,
		}
		diversity := distinctCategories(rulesByCard[res.CardID])
		if entry, ok := catalog[cardKey(res.CardName, res.Bank)]; ok {
			fee := entry.AnnualFee
			c.AnnualFee = &fee
			diversity += len(entry.KeyBenefits)
		}
		c.BenefitDiversity = diversity
		candidates = append(candidates, c)
	}

	return TieContext{
		UserID:      out.UserID,
		Preference:  pref.OrBalanced(),
		SpendAmount: out.SpendAmount,
		Category:    out.Category,
		Candidates:  candidates,
	}
}

func distinctCategories(rules []models.RewardRule) int {
	seen := map[models.Category]struct{}{}
	for _, r := range rules {
		seen[r.Category] = struct{}{}
	}
	return len(seen)
}

// cardKey identifies a card by name and issuer, ignoring case and padding.
func cardKey(name, bank string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + strings.ToLower(strings.TrimSpace(bank))
}
