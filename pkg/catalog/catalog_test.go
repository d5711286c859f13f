package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"rewards-strategist/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCatalog = `{
  "version": "1.0.0",
  "lastUpdated": "2026-09-01",
  "cards": [
    {
      "name": "HDFC Infinia",
      "bank": "HDFC",
      "reward_type": "points",
      "annual_fee": 12500,
      "key_benefits": ["5x rewards on travel", "airport lounge access"],
      "target_audience": "travel",
      "categories": {"travel": 16.5, "dining": 10, "general": 3.3}
    },
    {
      "name": "SBI Cashback",
      "bank": "SBI",
      "reward_type": "cashback",
      "annual_fee": 999,
      "target_audience": "cashback",
      "min_income": 300000,
      "categories": {"online": 5, "general": 1}
    }
  ]
}`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(validCatalog))
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", f.Version)

	cards := f.AvailableCards()
	require.Len(t, cards, 2)

	assert.Equal(t, models.AvailableCard{
		Name:           "HDFC Infinia",
		Bank:           "HDFC",
		RewardType:     models.RewardPoints,
		AnnualFee:      12500,
		KeyBenefits:    []string{"5x rewards on travel", "airport lounge access"},
		TargetAudience: models.PreferenceTravel,
		CategoryRates: map[models.Category]float64{
			models.CategoryTravel:  16.5,
			models.CategoryDining:  10,
			models.CategoryGeneral: 3.3,
		},
	}, cards[0])

	require.NotNil(t, cards[1].MinIncome)
	assert.Equal(t, 300000.0, *cards[1].MinIncome)
	assert.NotNil(t, cards[1].KeyBenefits)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "unknown reward type",
			doc:     `{"version":"1","cards":[{"name":"A","bank":"B","reward_type":"stars","annual_fee":0}]}`,
			wantErr: "reward_type",
		},
		{
			name:    "non-canonical category",
			doc:     `{"version":"1","cards":[{"name":"A","bank":"B","reward_type":"points","annual_fee":0,"categories":{"groceries":4}}]}`,
			wantErr: "groceries",
		},
		{
			name:    "negative fee",
			doc:     `{"version":"1","cards":[{"name":"A","bank":"B","reward_type":"points","annual_fee":-1}]}`,
			wantErr: "annual_fee",
		},
		{
			name:    "rate above one hundred",
			doc:     `{"version":"1","cards":[{"name":"A","bank":"B","reward_type":"points","annual_fee":0,"categories":{"travel":120}}]}`,
			wantErr: "travel",
		},
		{
			name:    "missing version",
			doc:     `{"cards":[]}`,
			wantErr: "version",
		},
		{
			name: "duplicate card",
			doc: `{"version":"1","cards":[
				{"name":"Ace","bank":"Axis","reward_type":"cashback","annual_fee":0},
				{"name":"ace ","bank":"AXIS","reward_type":"cashback","annual_fee":499}]}`,
			wantErr: "duplicates",
		},
		{
			name:    "not json",
			doc:     `cards: []`,
			wantErr: "validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(validCatalog), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Cards, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestSeedCatalogIsValid(t *testing.T) {
	f, err := Load(filepath.Join("..", "..", "configs", "catalog.json"))
	require.NoError(t, err)
	assert.NotEmpty(t, f.AvailableCards())
}
