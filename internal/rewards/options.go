// internal/rewards/options.go
package rewards

import "time"

const (
	// DefaultTieBand is the fraction of the top value within which a
	// runner-up is reported as a close tie.
	DefaultTieBand = 0.05

	DefaultGapThreshold           = 1.0
	DefaultCollaboratorTimeout    = 3 * time.Second
	DefaultConfidenceThreshold    = 0.7
	DefaultRecommendationTopN     = 5
	DefaultAnnualSpendPerCategory = 100000.0
)

// RecommendWeights are the scoring weights for catalog candidates.
type RecommendWeights struct {
	PreferenceMatch        float64
	PreferencePartial      float64
	GapFill                float64
	FeePenalty             float64
	MaxFeeRatio            float64
	AnnualSpendPerCategory float64
}

func DefaultRecommendWeights() RecommendWeights {
	return RecommendWeights{
		PreferenceMatch:        30,
		PreferencePartial:      15,
		GapFill:                10,
		FeePenalty:             10,
		MaxFeeRatio:            3,
		AnnualSpendPerCategory: DefaultAnnualSpendPerCategory,
	}
}

type Options struct {
	TieBand             float64
	GapThreshold        float64
	Valuation           ValuationOptions
	CollaboratorTimeout time.Duration
	ConfidenceThreshold float64
	TopN                int
	Weights             RecommendWeights
}

func DefaultOptions() Options {
	return Options{
		TieBand:             DefaultTieBand,
		GapThreshold:        DefaultGapThreshold,
		Valuation:           DefaultValuationOptions(),
		CollaboratorTimeout: DefaultCollaboratorTimeout,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		TopN:                DefaultRecommendationTopN,
		Weights:             DefaultRecommendWeights(),
	}
}

// withDefaults fills unset fields so partially populated options stay
// usable. TieBand and GapThreshold accept zero; only a negative value
// selects the default.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TieBand < 0 {
		o.TieBand = d.TieBand
	}
	if o.GapThreshold < 0 {
		o.GapThreshold = d.GapThreshold
	}
	if o.Valuation.Conversion == nil {
		o.Valuation.Conversion = d.Valuation.Conversion
	}
	if o.Valuation.CapExcess == "" {
		o.Valuation.CapExcess = d.Valuation.CapExcess
	}
	if o.CollaboratorTimeout <= 0 {
		o.CollaboratorTimeout = d.CollaboratorTimeout
	}
	if o.ConfidenceThreshold <= 0 {
		o.ConfidenceThreshold = d.ConfidenceThreshold
	}
	if o.TopN <= 0 {
		o.TopN = d.TopN
	}
	if o.Weights == (RecommendWeights{}) {
		o.Weights = d.Weights
	}
	if o.Weights.AnnualSpendPerCategory <= 0 {
		o.Weights.AnnualSpendPerCategory = d.Weights.AnnualSpendPerCategory
	}
	return o
}
