// internal/rewards/interfaces.go
package rewards

import (
	"context"

	"rewards-strategist/internal/models"
)

// Store is the read side of the persistence collaborator.
type Store interface {
	GetActiveCards(ctx context.Context, userID int64) ([]models.Card, error)
	GetRules(ctx context.Context, cardID int64) ([]models.RewardRule, error)
	GetCatalog(ctx context.Context) ([]models.AvailableCard, error)
	GetUserPreference(ctx context.Context, userID int64) (models.Preference, error)
}

// MerchantStore holds user-supplied merchant mappings.
type MerchantStore interface {
	GetMerchantMappings(ctx context.Context) ([]models.MerchantMapping, error)
	AddMerchantMapping(ctx context.Context, m models.MerchantMapping) error
}

// TieCandidate carries the auxiliary signals for one tied card.
type TieCandidate struct {
	CardID           int64    `json:"cardId"`
	CardName         string   `json:"cardName"`
	Bank             string   `json:"bank"`
	EstimatedValue   float64  `json:"estimatedValue"`
	EarnRate         float64  `json:"earnRate"`
	AnnualFee        *float64 `json:"annualFee,omitempty"`
	BenefitDiversity int      `json:"benefitDiversity"`
}

type TieContext struct {
	UserID      int64             `json:"userId"`
	Preference  models.Preference `json:"preference"`
	SpendAmount float64           `json:"spendAmount"`
	Category    models.Category   `json:"category"`
	Candidates  []TieCandidate    `json:"candidates"`
}

// TieBreaker reorders a tied subset of card ids. Any reply that is not a
// permutation of ids is discarded by the caller.
type TieBreaker interface {
	RankSubset(ctx context.Context, ids []int64, tc TieContext) ([]int64, error)
}

type RecommendationContext struct {
	UserID     int64                   `json:"userId"`
	Preference models.Preference       `json:"preference"`
	OwnedCards []models.Card           `json:"ownedCards"`
	Candidates []models.Recommendation `json:"candidates"`
}

// RecommendationRanker reorders the top recommendation candidates.
type RecommendationRanker interface {
	RankCandidates(ctx context.Context, ids []int64, rc RecommendationContext) ([]int64, error)
}
