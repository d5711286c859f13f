package createuser

import "rewards-strategist/internal/models"

type Input struct {
	Name string `json:"name" validate:"required,notblank,max=200"`
	// Preference defaults to balanced.
	Preference string `json:"preference" validate:"preference"`
}

type Output struct {
	User models.User `json:"user"`
}
