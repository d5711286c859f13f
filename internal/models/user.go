// internal/models/user.go
package models

import "time"

type User struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Preference Preference `json:"preference"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type Card struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"userId"`
	Name       string     `json:"name"`
	Bank       string     `json:"bank"`
	RewardType RewardType `json:"rewardType"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// RewardRule is one earn rate of a card. Cap, when set, is the ceiling on
// rewards-bearing spend for a single valuation.
type RewardRule struct {
	ID       int64    `json:"id"`
	CardID   int64    `json:"cardId"`
	Category Category `json:"category"`
	EarnRate float64  `json:"earnRate"`
	Cap      *float64 `json:"cap,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

// AvailableCard is a catalog entry a user could apply for.
type AvailableCard struct {
	ID             int64                `json:"id"`
	Name           string               `json:"name"`
	Bank           string               `json:"bank"`
	RewardType     RewardType           `json:"rewardType"`
	AnnualFee      float64              `json:"annualFee"`
	KeyBenefits    []string             `json:"keyBenefits"`
	TargetAudience Preference           `json:"targetAudience"`
	MinIncome      *float64             `json:"minIncome,omitempty"`
	CategoryRates  map[Category]float64 `json:"categoryRates,omitempty"`
}
