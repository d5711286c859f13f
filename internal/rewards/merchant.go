// internal/rewards/merchant.go
package rewards

import (
	"context"
	"fmt"
	"math"
	"strings"

	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/common/metrics"
	"rewards-strategist/internal/models"
)

var seedMerchants = []models.MerchantMapping{
	{MerchantName: "Swiggy", Category: models.CategoryDining, Confidence: 0.95},
	{MerchantName: "Zomato", Category: models.CategoryDining, Confidence: 0.95},
	{MerchantName: "Starbucks", Category: models.CategoryDining, Confidence: 0.9},
	{MerchantName: "MakeMyTrip", Category: models.CategoryTravel, Confidence: 0.95},
	{MerchantName: "IndiGo", Category: models.CategoryTravel, Confidence: 0.95},
	{MerchantName: "Uber", Category: models.CategoryTravel, Confidence: 0.65},
	{MerchantName: "Amazon", Category: models.CategoryOnline, Confidence: 0.6},
	{MerchantName: "Flipkart", Category: models.CategoryOnline, Confidence: 0.85},
	{MerchantName: "BigBasket", Category: models.CategoryShopping, Confidence: 0.8},
	{MerchantName: "HPCL", Category: models.CategoryFuel, Confidence: 0.95},
	{MerchantName: "Indian Oil", Category: models.CategoryFuel, Confidence: 0.95},
	{MerchantName: "Shell", Category: models.CategoryFuel, Confidence: 0.9},
}

// SeedMerchants returns the built-in merchant table.
func SeedMerchants() []models.MerchantMapping {
	out := make([]models.MerchantMapping, len(seedMerchants))
	for i, m := range seedMerchants {
		m.Source = models.SourceSeed
		out[i] = m
	}
	return out
}

// MerchantResolver maps merchant names to categories by exact,
// case-insensitive lookup. It never guesses.
type MerchantResolver struct {
	store  MerchantStore
	opts   Options
	logger logger.Logger
}

// NewMerchantResolver builds a resolver over the seed table plus any
// custom mappings in store. store may be nil.
func NewMerchantResolver(store MerchantStore, opts Options, log logger.Logger) *MerchantResolver {
	return &MerchantResolver{
		store:  store,
		opts:   opts.withDefaults(),
		logger: log.WithFields(map[string]interface{}{"component": "merchant-resolver"}),
	}
}

func merchantKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// table merges seed and custom mappings; custom entries win.
func (m *MerchantResolver) table(ctx context.Context) map[string]models.MerchantMapping {
	out := make(map[string]models.MerchantMapping, len(seedMerchants))
	for _, e := range SeedMerchants() {
		out[merchantKey(e.MerchantName)] = e
	}
	if m.store == nil {
		return out
	}
	custom, err := m.store.GetMerchantMappings(ctx)
	if err != nil {
		m.logger.Warn("custom merchant mappings unavailable, using seed table", map[string]interface{}{
			"error": err.Error(),
		})
		return out
	}
	for _, e := range custom {
		if !e.Category.Valid() {
			continue
		}
		e.Source = models.SourceCustom
		out[merchantKey(e.MerchantName)] = e
	}
	return out
}

// Resolve looks up name. Unknown names come back unresolved with zero
// confidence; known names below the confidence threshold carry their
// category as a hint but still need clarification.
func (m *MerchantResolver) Resolve(ctx context.Context, name string) models.Resolution {
	res := models.Resolution{
		Merchant: strings.TrimSpace(name),
		Status:   models.ResolutionNeedsClarification,
	}

	if key := merchantKey(name); key != "" {
		if e, ok := m.table(ctx)[key]; ok {
			cat := e.Category
			res.Category = &cat
			res.Confidence = e.Confidence
			if e.Confidence >= m.opts.ConfidenceThreshold {
				res.Status = models.ResolutionResolved
			}
		}
	}

	metrics.MerchantResolutions.WithLabelValues(string(res.Status)).Inc()
	return res
}

// AddMapping stores a custom mapping that overrides the seed table.
func (m *MerchantResolver) AddMapping(ctx context.Context, name, category string, confidence float64) (*models.MerchantMapping, error) {
	if m.store == nil {
		return nil, fmt.Errorf("merchant store not configured")
	}
	if merchantKey(name) == "" {
		return nil, fmt.Errorf("merchant name is required")
	}
	cat, ok := models.ParseCategory(category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnresolvedCategory, category)
	}
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("confidence %v outside [0,1]", confidence)
	}

	mapping := models.MerchantMapping{
		MerchantName: strings.TrimSpace(name),
		Category:     cat,
		Confidence:   confidence,
		Source:       models.SourceCustom,
	}
	if err := m.store.AddMerchantMapping(ctx, mapping); err != nil {
		return nil, fmt.Errorf("store merchant mapping: %w", err)
	}
	m.logger.Info("merchant mapping added", map[string]interface{}{
		"merchant":   mapping.MerchantName,
		"category":   string(cat),
		"confidence": confidence,
	})
	return &mapping, nil
}
