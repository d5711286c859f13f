// internal/models/valuation.go
package models

// MatchKind records which rule category a valuation actually used.
type MatchKind string

const (
	MatchExact   MatchKind = "exact"
	MatchGeneral MatchKind = "general"
	MatchOther   MatchKind = "other"
	MatchNone    MatchKind = "none"
)

type ValuationResult struct {
	CardID          int64      `json:"cardId"`
	CardName        string     `json:"cardName"`
	Bank            string     `json:"bank"`
	RewardType      RewardType `json:"rewardType"`
	RawRewards      float64    `json:"rawRewards"`
	EstimatedValue  float64    `json:"estimatedValue"`
	EarnRate        float64    `json:"earnRate"`
	CapApplied      bool       `json:"capApplied"`
	Cap             *float64   `json:"cap,omitempty"`
	CategoryMatched MatchKind  `json:"categoryMatched"`
	RuleCategory    Category   `json:"ruleCategory,omitempty"`
	ExcessRate      float64    `json:"excessRate,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	RuleMissing     bool       `json:"ruleMissing"`
	CloseTie        bool       `json:"closeTie"`
}

type RankingStatus string

const (
	StatusOK                 RankingStatus = "ok"
	StatusPartial            RankingStatus = "partial"
	StatusNoRules            RankingStatus = "no_rules"
	StatusNeedsClarification RankingStatus = "needs_clarification"
)

type RankedComparison struct {
	UserID        int64             `json:"userId"`
	SpendAmount   float64           `json:"spendAmount"`
	Category      Category          `json:"category"`
	Ranked        []ValuationResult `json:"ranked"`
	OverallStatus RankingStatus     `json:"overallStatus"`
	TieBand       float64           `json:"tieBand"`
	TieBrokenBy   string            `json:"tieBrokenBy,omitempty"`
}

type CategoryCoverage struct {
	Category   Category `json:"category"`
	BestRate   float64  `json:"bestRate"`
	BestCardID int64    `json:"bestCardId,omitempty"`
	Shortfall  float64  `json:"shortfall"`
}

type RedundantPair struct {
	FirstCardID      int64      `json:"firstCardId"`
	SecondCardID     int64      `json:"secondCardId"`
	FirstCardName    string     `json:"firstCardName"`
	SecondCardName   string     `json:"secondCardName"`
	SharedCategories []Category `json:"sharedCategories"`
}

type GapReport struct {
	UserID         int64              `json:"userId"`
	Threshold      float64            `json:"threshold"`
	Coverage       []CategoryCoverage `json:"coverage"`
	Gaps           []CategoryCoverage `json:"gaps"`
	RedundantPairs []RedundantPair    `json:"redundantPairs"`
}

type Recommendation struct {
	Card            AvailableCard `json:"card"`
	Score           float64       `json:"score"`
	GapCategories   []Category    `json:"gapCategories"`
	PreferenceMatch bool          `json:"preferenceMatch"`
}

type MappingSource string

const (
	SourceSeed   MappingSource = "seed"
	SourceCustom MappingSource = "custom"
)

type MerchantMapping struct {
	MerchantName string        `json:"merchantName"`
	Category     Category      `json:"category"`
	Confidence   float64       `json:"confidence"`
	Source       MappingSource `json:"source"`
}

type ResolutionStatus string

const (
	ResolutionResolved           ResolutionStatus = "resolved"
	ResolutionNeedsClarification ResolutionStatus = "needs_clarification"
)

type Resolution struct {
	Merchant   string           `json:"merchant"`
	Category   *Category        `json:"category"`
	Confidence float64          `json:"confidence"`
	Status     ResolutionStatus `json:"status"`
}
