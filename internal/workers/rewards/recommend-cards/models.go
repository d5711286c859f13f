package recommendcards

import "rewards-strategist/internal/models"

type Input struct {
	UserID     int64  `json:"userId" validate:"required,gte=1"`
	Preference string `json:"preference,omitempty" validate:"preference"`
	Limit      int    `json:"limit,omitempty" validate:"gte=0,lte=50"`
}

type Output struct {
	Recommendations []models.Recommendation `json:"recommendations"`
	Count           int                     `json:"count"`
	TopCardID       int64                   `json:"topCardId,omitempty"`
}
