// internal/rewards/recommend.go
package rewards

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/common/metrics"
	"rewards-strategist/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Recommender scores catalog cards the user does not own.
type Recommender struct {
	store  Store
	ranker RecommendationRanker
	opts   Options
	logger logger.Logger
	tracer trace.Tracer
}

// NewRecommender builds a Recommender. ranker may be nil.
func NewRecommender(store Store, ranker RecommendationRanker, opts Options, log logger.Logger) *Recommender {
	return &Recommender{
		store:  store,
		ranker: ranker,
		opts:   opts.withDefaults(),
		logger: log.WithFields(map[string]interface{}{"component": "recommender"}),
		tracer: otel.Tracer(tracerName),
	}
}

// Recommend returns unowned catalog cards ordered by score. An empty
// preference falls back to the stored one, then to balanced. The slice is
// rebuilt on every call.
func (r *Recommender) Recommend(ctx context.Context, userID int64, pref models.Preference) ([]models.Recommendation, error) {
	start := time.Now()
	defer func() {
		metrics.OperationDuration.WithLabelValues("recommend").Observe(time.Since(start).Seconds())
	}()

	ctx, span := r.tracer.Start(ctx, "rewards.Recommend", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	cards, err := r.store.GetActiveCards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get active cards for user %d: %w", userID, err)
	}
	catalog, err := r.store.GetCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("get catalog: %w", err)
	}

	if pref == "" {
		stored, err := r.store.GetUserPreference(ctx, userID)
		if err != nil {
			r.logger.Debug("stored preference unavailable", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
		}
		pref = stored
	}
	pref = pref.OrBalanced()

	cards = sortedByID(cards)
	rulesByCard := loadRules(ctx, r.store, cards, r.logger)
	best := make(map[models.Category]float64, len(models.Categories()))
	for _, cov := range bestCoverage(cards, rulesByCard, r.opts.GapThreshold) {
		best[cov.Category] = cov.BestRate
	}

	owned := make(map[string]struct{}, len(cards))
	for _, c := range cards {
		owned[cardKey(c.Name, c.Bank)] = struct{}{}
	}

	recs := make([]models.Recommendation, 0, len(catalog))
	for _, candidate := range catalog {
		if _, ok := owned[cardKey(candidate.Name, candidate.Bank)]; ok {
			continue
		}
		recs = append(recs, r.score(candidate, pref, best))
	}
	SortRecommendations(recs)

	if r.refine(ctx, userID, pref, cards, recs) {
		span.SetAttributes(attribute.Bool("refined", true))
	}
	span.SetAttributes(attribute.Int("candidates", len(recs)))
	return recs, nil
}

func (r *Recommender) score(candidate models.AvailableCard, pref models.Preference, best map[models.Category]float64) models.Recommendation {
	w := r.opts.Weights
	rec := models.Recommendation{Card: candidate, GapCategories: []models.Category{}}

	audience := candidate.TargetAudience.OrBalanced()
	switch {
	case audience == pref:
		rec.Score += w.PreferenceMatch
		rec.PreferenceMatch = true
	case audience == models.PreferenceBalanced || pref == models.PreferenceBalanced:
		rec.Score += w.PreferencePartial
	}

	factor := r.opts.Valuation.Conversion.Factor(candidate.RewardType)
	incremental := 0.0
	for _, cat := range models.Categories() {
		rate, _, ok := ResolveRate(candidate.CategoryRates, cat)
		if !ok || rate <= best[cat] {
			continue
		}
		rec.Score += w.GapFill
		rec.GapCategories = append(rec.GapCategories, cat)
		incremental += (rate - best[cat]) / 100 * w.AnnualSpendPerCategory * factor
	}

	if candidate.AnnualFee > 0 {
		ratio := w.MaxFeeRatio
		if incremental > 0 {
			ratio = math.Min(candidate.AnnualFee/incremental, w.MaxFeeRatio)
		}
		rec.Score -= w.FeePenalty * ratio
	}
	return rec
}

// SortRecommendations orders by score desc, then annual fee asc, then
// name, bank and id so equal scores stay reproducible.
func SortRecommendations(recs []models.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Card.AnnualFee != b.Card.AnnualFee {
			return a.Card.AnnualFee < b.Card.AnnualFee
		}
		if a.Card.Name != b.Card.Name {
			return a.Card.Name < b.Card.Name
		}
		if a.Card.Bank != b.Card.Bank {
			return a.Card.Bank < b.Card.Bank
		}
		return a.Card.ID < b.Card.ID
	})
}

// refine lets the RecommendationRanker reorder the top N. Its reply is used
// only when it names exactly the pool it was given.
func (r *Recommender) refine(ctx context.Context, userID int64, pref models.Preference, owned []models.Card, recs []models.Recommendation) bool {
	if r.ranker == nil || len(recs) < 2 {
		return false
	}
	n := r.opts.TopN
	if n > len(recs) {
		n = len(recs)
	}
	pool := recs[:n]

	ids := make([]int64, n)
	for i, rec := range pool {
		ids[i] = rec.Card.ID
	}
	rc := RecommendationContext{
		UserID:     userID,
		Preference: pref,
		OwnedCards: owned,
		Candidates: append([]models.Recommendation(nil), pool...),
	}

	order, err := callCollaborator(ctx, r.opts.CollaboratorTimeout, func(ctx context.Context) ([]int64, error) {
		return r.ranker.RankCandidates(ctx, ids, rc)
	})
	if err != nil {
		reason := fallbackReason(err)
		recordFallback("recommendation_ranker", reason)
		r.logger.Warn("recommendation ranker unavailable, keeping deterministic order", map[string]interface{}{
			"userId": userID,
			"reason": reason,
			"error":  err.Error(),
		})
		return false
	}
	if !isPermutation(ids, order) {
		recordFallback("recommendation_ranker", "invalid_order")
		r.logger.Warn("recommendation ranker returned a different pool, discarded", map[string]interface{}{
			"userId":   userID,
			"expected": ids,
			"received": order,
		})
		return false
	}

	byID := make(map[int64]models.Recommendation, n)
	for _, rec := range pool {
		byID[rec.Card.ID] = rec
	}
	for i, id := range order {
		pool[i] = byID[id]
	}
	return true
}
