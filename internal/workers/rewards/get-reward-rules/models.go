package getrewardrules

import "rewards-strategist/internal/models"

// Input names the card. UserID, when set, must own it.
type Input struct {
	CardID int64 `json:"cardId" validate:"required,gte=1"`
	UserID int64 `json:"userId,omitempty" validate:"gte=0"`
}

// Output carries the card's rules, highest earn rate first.
type Output struct {
	Card  models.Card         `json:"card"`
	Rules []models.RewardRule `json:"rules"`
}
