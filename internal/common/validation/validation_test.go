package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rankInput struct {
	UserID      int64   `json:"userId" validate:"required,gte=1"`
	SpendAmount float64 `json:"spendAmount" validate:"gte=0"`
	Category    string  `json:"category" validate:"required,category"`
	Preference  string  `json:"preference" validate:"preference"`
	RewardType  string  `json:"rewardType,omitempty" validate:"omitempty,rewardtype"`
	Merchant    string  `json:"merchant,omitempty" validate:"omitempty,notblank"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   rankInput
		wantErr string
	}{
		{
			name:  "valid",
			input: rankInput{UserID: 1, SpendAmount: 100, Category: "Travel", Preference: "cashback", RewardType: "miles"},
		},
		{
			name:  "empty preference allowed",
			input: rankInput{UserID: 1, Category: "dining"},
		},
		{
			name:    "negative spend",
			input:   rankInput{UserID: 1, SpendAmount: -1, Category: "dining"},
			wantErr: "spendAmount: gte=0",
		},
		{
			name:    "unknown category",
			input:   rankInput{UserID: 1, Category: "groceries"},
			wantErr: "category: category",
		},
		{
			name:    "missing user",
			input:   rankInput{Category: "dining"},
			wantErr: "userId: required",
		},
		{
			name:    "bad preference and reward type",
			input:   rankInput{UserID: 1, Category: "dining", Preference: "luxury", RewardType: "vouchers"},
			wantErr: "preference: preference; rewardType: rewardtype",
		},
		{
			name:    "blank merchant",
			input:   rankInput{UserID: 1, Category: "dining", Merchant: "   "},
			wantErr: "merchant: notblank",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

const orderSchema = `{
  "type": "object",
  "required": ["order"],
  "properties": {
    "order": {"type": "array", "items": {"type": "integer"}}
  }
}`

func TestSchema(t *testing.T) {
	s, err := CompileSchema(orderSchema)
	require.NoError(t, err)

	assert.NoError(t, s.ValidateBytes([]byte(`{"order":[3,1,2]}`)))
	assert.Error(t, s.ValidateBytes([]byte(`{"order":["a"]}`)))
	assert.Error(t, s.ValidateBytes([]byte(`{}`)))
	assert.NoError(t, s.ValidateGo(map[string]interface{}{"order": []int{1}}))

	_, err = CompileSchema(`{"type": 12}`)
	assert.Error(t, err)
}
