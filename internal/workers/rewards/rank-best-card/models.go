// internal/workers/rewards/rank-best-card/models.go
package rankbestcard

import "rewards-strategist/internal/models"

// Input names the purchase either by category or by merchant. The merchant
// is only consulted when category is empty. A missing spend is rejected.
type Input struct {
	UserID      int64    `json:"userId" validate:"required,gte=1"`
	SpendAmount *float64 `json:"spendAmount"`
	Category    string   `json:"category,omitempty" validate:"required_without=Merchant"`
	Merchant    string   `json:"merchant,omitempty" validate:"omitempty,notblank"`
}

type Output struct {
	Ranked             []models.ValuationResult `json:"ranked"`
	OverallStatus      models.RankingStatus     `json:"overallStatus"`
	TieBrokenBy        string                   `json:"tieBrokenBy,omitempty"`
	TieBand            float64                  `json:"tieBand"`
	Category           models.Category          `json:"category,omitempty"`
	BestCardID         int64                    `json:"bestCardId,omitempty"`
	MerchantResolution *models.Resolution       `json:"merchantResolution,omitempty"`
}
