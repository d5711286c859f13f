// internal/workers/rewards/estimate-rewards/models.go
package estimaterewards

import "rewards-strategist/internal/models"

type Input struct {
	UserID      int64    `json:"userId" validate:"required,gte=1"`
	CardID      int64    `json:"cardId" validate:"required,gte=1"`
	SpendAmount *float64 `json:"spendAmount"`
	Category    string   `json:"category" validate:"required"`
}

type Output struct {
	Valuation models.ValuationResult `json:"valuation"`
}
