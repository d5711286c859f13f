// internal/rewards/helpers_test.go
package rewards

import (
	"context"
	"errors"
	"sync"
	"testing"

	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeStore struct {
	cards      map[int64][]models.Card
	rules      map[int64][]models.RewardRule
	catalog    []models.AvailableCard
	prefs      map[int64]models.Preference
	rulesErr   map[int64]error
	cardsErr   error
	catalogErr error

	mu       sync.Mutex
	mappings []models.MerchantMapping
	mapErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		cards:    map[int64][]models.Card{},
		rules:    map[int64][]models.RewardRule{},
		prefs:    map[int64]models.Preference{},
		rulesErr: map[int64]error{},
	}
}

func (s *fakeStore) addCard(userID int64, card models.Card, rules ...models.RewardRule) {
	card.UserID = userID
	card.Active = true
	s.cards[userID] = append(s.cards[userID], card)
	for i := range rules {
		rules[i].CardID = card.ID
	}
	s.rules[card.ID] = rules
}

func (s *fakeStore) GetActiveCards(_ context.Context, userID int64) ([]models.Card, error) {
	if s.cardsErr != nil {
		return nil, s.cardsErr
	}
	return s.cards[userID], nil
}

func (s *fakeStore) GetRules(_ context.Context, cardID int64) ([]models.RewardRule, error) {
	if err := s.rulesErr[cardID]; err != nil {
		return nil, err
	}
	return s.rules[cardID], nil
}

func (s *fakeStore) GetCatalog(_ context.Context) ([]models.AvailableCard, error) {
	if s.catalogErr != nil {
		return nil, s.catalogErr
	}
	return s.catalog, nil
}

func (s *fakeStore) GetUserPreference(_ context.Context, userID int64) (models.Preference, error) {
	p, ok := s.prefs[userID]
	if !ok {
		return "", errors.New("user not found")
	}
	return p, nil
}

func (s *fakeStore) GetMerchantMappings(_ context.Context) ([]models.MerchantMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mapErr != nil {
		return nil, s.mapErr
	}
	return append([]models.MerchantMapping(nil), s.mappings...), nil
}

func (s *fakeStore) AddMerchantMapping(_ context.Context, m models.MerchantMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mapErr != nil {
		return s.mapErr
	}
	s.mappings = append(s.mappings, m)
	return nil
}

func card(id int64, name, bank string, rt models.RewardType) models.Card {
	return models.Card{ID: id, Name: name, Bank: bank, RewardType: rt}
}

func rule(id int64, cat models.Category, rate float64) models.RewardRule {
	return models.RewardRule{ID: id, Category: cat, EarnRate: rate}
}

func cappedRule(id int64, cat models.Category, rate, cap float64) models.RewardRule {
	r := rule(id, cat, rate)
	r.Cap = &cap
	return r
}

func testLogger(t *testing.T) logger.Logger {
	return logger.NewTestLogger(t)
}

// stubTieBreaker returns a fixed order or error and records what it saw.
type stubTieBreaker struct {
	order  []int64
	err    error
	block  bool
	called int
	seen   []int64
	ctx    TieContext
}

func (s *stubTieBreaker) RankSubset(ctx context.Context, ids []int64, tc TieContext) ([]int64, error) {
	s.called++
	s.seen = append([]int64(nil), ids...)
	s.ctx = tc
	if s.block {
		<-make(chan struct{})
	}
	return s.order, s.err
}

type stubRanker struct {
	order  []int64
	err    error
	called int
	seen   []int64
}

func (s *stubRanker) RankCandidates(_ context.Context, ids []int64, _ RecommendationContext) ([]int64, error) {
	s.called++
	s.seen = append([]int64(nil), ids...)
	return s.order, s.err
}
