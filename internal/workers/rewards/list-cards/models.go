package listcards

import "rewards-strategist/internal/models"

type Input struct {
	UserID int64 `json:"userId" validate:"required,gte=1"`
}

// Output lists active cards first, then by name.
type Output struct {
	Cards       []models.Card `json:"cards"`
	Count       int           `json:"count"`
	ActiveCount int           `json:"activeCount"`
}
