// internal/workers/rewards/analyze-wallet-gaps/models.go
package analyzewalletgaps

import "rewards-strategist/internal/models"

type Input struct {
	UserID int64 `json:"userId" validate:"required,gte=1"`
}

type Output struct {
	Threshold      float64                   `json:"threshold"`
	Coverage       []models.CategoryCoverage `json:"coverage"`
	Gaps           []models.CategoryCoverage `json:"gaps"`
	RedundantPairs []models.RedundantPair    `json:"redundantPairs"`
	HasGaps        bool                      `json:"hasGaps"`
}
