package resolvemerchant

import "rewards-strategist/internal/models"

type Input struct {
	Merchant string `json:"merchant" validate:"required,notblank,max=200"`
}

type Output struct {
	Merchant   string                  `json:"merchant"`
	Category   *models.Category        `json:"category"`
	Confidence float64                 `json:"confidence"`
	Status     models.ResolutionStatus `json:"status"`
	// Resolved mirrors Status for gateway conditions.
	Resolved bool `json:"resolved"`
}
