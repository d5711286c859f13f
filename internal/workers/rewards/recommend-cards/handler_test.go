package recommendcards

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"rewards-strategist/internal/common/config"
	apperrors "rewards-strategist/internal/common/errors"
	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/models"
	"rewards-strategist/internal/rewards"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockRecommender struct {
	mock.Mock
}

func (m *MockRecommender) Recommend(ctx context.Context, userID int64, pref models.Preference) ([]models.Recommendation, error) {
	args := m.Called(ctx, userID, pref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Recommendation), args.Error(1)
}

type catalogStore struct {
	cards   []models.Card
	rules   map[int64][]models.RewardRule
	catalog []models.AvailableCard
	pref    models.Preference
}

func (s *catalogStore) GetActiveCards(context.Context, int64) ([]models.Card, error) {
	return s.cards, nil
}

func (s *catalogStore) GetRules(_ context.Context, cardID int64) ([]models.RewardRule, error) {
	return s.rules[cardID], nil
}

func (s *catalogStore) GetCatalog(context.Context) ([]models.AvailableCard, error) {
	return s.catalog, nil
}

func (s *catalogStore) GetUserPreference(context.Context, int64) (models.Preference, error) {
	return s.pref, nil
}

func recs(ids ...int64) []models.Recommendation {
	out := make([]models.Recommendation, len(ids))
	for i, id := range ids {
		out[i] = models.Recommendation{Card: models.AvailableCard{ID: id}, Score: float64(100 - i)}
	}
	return out
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name           string
		config         *Config
		input          *Input
		setup          func(r *MockRecommender)
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name:   "passes parsed preference through",
			config: &Config{Timeout: time.Second},
			input:  &Input{UserID: 7, Preference: "Travel"},
			setup: func(r *MockRecommender) {
				r.On("Recommend", mock.Anything, int64(7), models.PreferenceTravel).Return(recs(4, 2, 9), nil)
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 3, output.Count)
				assert.Equal(t, int64(4), output.TopCardID)
			},
		},
		{
			name:   "empty preference left for the engine",
			config: &Config{Timeout: time.Second},
			input:  &Input{UserID: 7},
			setup: func(r *MockRecommender) {
				r.On("Recommend", mock.Anything, int64(7), models.Preference("")).Return(recs(1), nil)
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 1, output.Count)
			},
		},
		{
			name:   "job limit overrides config",
			config: &Config{Timeout: time.Second, MaxResults: 1},
			input:  &Input{UserID: 7, Limit: 2},
			setup: func(r *MockRecommender) {
				r.On("Recommend", mock.Anything, int64(7), models.Preference("")).Return(recs(4, 2, 9), nil)
			},
			validateOutput: func(t *testing.T, output *Output) {
				require.Len(t, output.Recommendations, 2)
				assert.Equal(t, int64(2), output.Recommendations[1].Card.ID)
			},
		},
		{
			name:   "config maximum applies without a limit",
			config: &Config{Timeout: time.Second, MaxResults: 1},
			input:  &Input{UserID: 7},
			setup: func(r *MockRecommender) {
				r.On("Recommend", mock.Anything, int64(7), models.Preference("")).Return(recs(4, 2), nil)
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 1, output.Count)
			},
		},
		{
			name:   "empty catalog serializes as empty list",
			config: &Config{Timeout: time.Second},
			input:  &Input{UserID: 7},
			setup: func(r *MockRecommender) {
				r.On("Recommend", mock.Anything, int64(7), models.Preference("")).Return(nil, nil)
			},
			validateOutput: func(t *testing.T, output *Output) {
				data, err := json.Marshal(output)
				require.NoError(t, err)
				assert.Contains(t, string(data), `"recommendations":[]`)
				assert.Zero(t, output.TopCardID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recommender := new(MockRecommender)
			tt.setup(recommender)

			h := NewHandler(tt.config, recommender, logger.NewTestLogger(t))
			output, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			tt.validateOutput(t, output)
			recommender.AssertExpectations(t)
		})
	}
}

func TestHandler_Execute_WithEngine(t *testing.T) {
	store := &catalogStore{
		cards: []models.Card{{ID: 1, Name: "Millennia", Bank: "HDFC", RewardType: models.RewardCashback, Active: true}},
		rules: map[int64][]models.RewardRule{
			1: {{ID: 1, CardID: 1, Category: models.CategoryOnline, EarnRate: 5}},
		},
		catalog: []models.AvailableCard{
			{ID: 10, Name: "Millennia", Bank: "HDFC", RewardType: models.RewardCashback, TargetAudience: models.PreferenceCashback,
				CategoryRates: map[models.Category]float64{models.CategoryOnline: 5}},
			{ID: 11, Name: "Atlas", Bank: "Axis", RewardType: models.RewardMiles, AnnualFee: 5000, TargetAudience: models.PreferenceTravel,
				CategoryRates: map[models.Category]float64{models.CategoryTravel: 5, models.CategoryGeneral: 2}},
			{ID: 12, Name: "Ace", Bank: "Axis", RewardType: models.RewardCashback, TargetAudience: models.PreferenceCashback,
				CategoryRates: map[models.Category]float64{models.CategoryGeneral: 1.5}},
		},
		pref: models.PreferenceTravel,
	}
	log := logger.NewTestLogger(t)
	h := NewHandler(&Config{Timeout: time.Second}, rewards.NewRecommender(store, nil, rewards.DefaultOptions(), log), log)

	output, err := h.Execute(context.Background(), &Input{UserID: 7})
	require.NoError(t, err)

	// the owned Millennia is never recommended; stored travel preference favours Atlas
	require.Equal(t, 2, output.Count)
	assert.Equal(t, int64(11), output.TopCardID)
	assert.True(t, output.Recommendations[0].PreferenceMatch)
	for _, rec := range output.Recommendations {
		assert.NotEqual(t, int64(10), rec.Card.ID)
	}
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     *Input
		setup     func(r *MockRecommender)
		wantCode  apperrors.ErrorCode
		retryable bool
	}{
		{name: "nil input", input: nil, setup: func(r *MockRecommender) {}, wantCode: apperrors.ErrCodeInputValidationFailed},
		{name: "missing user", input: &Input{}, setup: func(r *MockRecommender) {}, wantCode: apperrors.ErrCodeInputValidationFailed},
		{name: "unknown preference", input: &Input{UserID: 7, Preference: "luxury"}, setup: func(r *MockRecommender) {}, wantCode: apperrors.ErrCodeInputValidationFailed},
		{name: "negative limit", input: &Input{UserID: 7, Limit: -1}, setup: func(r *MockRecommender) {}, wantCode: apperrors.ErrCodeInputValidationFailed},
		{
			name:  "catalog unavailable",
			input: &Input{UserID: 7},
			setup: func(r *MockRecommender) {
				r.On("Recommend", mock.Anything, int64(7), models.Preference("")).Return(nil, errors.New("get catalog: connection reset"))
			},
			wantCode:  apperrors.ErrCodeQueryExecutionFailed,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recommender := new(MockRecommender)
			tt.setup(recommender)

			h := NewHandler(&Config{Timeout: time.Second}, recommender, logger.NewTestLogger(t))
			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)

			stdErr := apperrors.FromRewardsError(TaskType, err)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
			recommender.AssertExpectations(t)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	assert.Equal(t, 15*time.Second, LoadConfig(config.WorkerConfig{}).Timeout)
	assert.Equal(t, 2*time.Second, LoadConfig(config.WorkerConfig{Timeout: 2000}).Timeout)
	assert.Equal(t, 5, LoadConfig(config.WorkerConfig{MaxResults: 5}).MaxResults)
}
