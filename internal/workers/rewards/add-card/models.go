package addcard

import "rewards-strategist/internal/models"

type Input struct {
	UserID     int64  `json:"userId" validate:"required,gte=1"`
	Name       string `json:"name" validate:"required,notblank,max=200"`
	Bank       string `json:"bank" validate:"required,notblank,max=200"`
	RewardType string `json:"rewardType" validate:"required,rewardtype"`
	// Active defaults to true.
	Active *bool `json:"active,omitempty"`
}

type Output struct {
	Card models.Card `json:"card"`
}
