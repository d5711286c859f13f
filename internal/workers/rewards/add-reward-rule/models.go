package addrewardrule

import "rewards-strategist/internal/models"

// Input describes one earn rate. EarnRate is a percentage of spend.
type Input struct {
	CardID   int64    `json:"cardId" validate:"required,gte=1"`
	Category string   `json:"category" validate:"required,notblank"`
	EarnRate *float64 `json:"earnRate" validate:"required,gte=0,lte=100"`
	Cap      *float64 `json:"cap,omitempty" validate:"omitempty,gt=0"`
	Notes    string   `json:"notes,omitempty" validate:"max=500"`
}

type Output struct {
	Rule models.RewardRule `json:"rule"`
}
