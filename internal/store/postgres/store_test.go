package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewards-strategist/internal/common/database"
	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/models"
	"rewards-strategist/internal/rewards"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(database.NewPostgresFromDB(db), logger.NewTestLogger(t)), mock
}

func q(query string) string {
	return regexp.QuoteMeta(query)
}

var cardColumns = []string{"id", "user_id", "name", "bank", "reward_type", "active", "created_at"}

// ==========================
// Read Side
// ==========================

func TestStore_GetActiveCards(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q(selectActiveCards)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(cardColumns).
			AddRow(1, 7, "Regalia", "HDFC", "points", true, created).
			AddRow(2, 7, "Ace", "Axis", "cashback", true, created))

	cards, err := store.GetActiveCards(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, models.Card{ID: 1, UserID: 7, Name: "Regalia", Bank: "HDFC", RewardType: models.RewardPoints, Active: true, CreatedAt: created}, cards[0])
	assert.Equal(t, models.RewardCashback, cards[1].RewardType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetActiveCards_QueryError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(q(selectActiveCards)).WithArgs(int64(7)).WillReturnError(errors.New("connection reset"))

	_, err := store.GetActiveCards(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestStore_ListCards(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(q(selectAllCards)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(cardColumns).
			AddRow(2, 7, "Ace", "Axis", "cashback", true, now).
			AddRow(1, 7, "Old Card", "SBI", "points", false, now))

	cards, err := store.ListCards(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.True(t, cards[0].Active)
	assert.False(t, cards[1].Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetCard(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(q(selectCard)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(cardColumns).AddRow(3, 7, "Old Card", "SBI", "points", false, now))
	mock.ExpectQuery(q(selectCard)).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	card, err := store.GetCard(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), card.UserID)
	assert.False(t, card.Active)
	assert.Equal(t, models.RewardPoints, card.RewardType)

	_, err = store.GetCard(context.Background(), 99)
	assert.True(t, errors.Is(err, rewards.ErrCardNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetRules(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(q(selectRules)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "card_id", "category", "earn_rate", "cap", "notes"}).
			AddRow(10, 1, "dining", 3.3, nil, "").
			AddRow(11, 1, "travel", 5.0, 10000.0, "capped monthly"))

	rules, err := store.GetRules(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, models.CategoryDining, rules[0].Category)
	assert.Nil(t, rules[0].Cap)
	require.NotNil(t, rules[1].Cap)
	assert.Equal(t, 10000.0, *rules[1].Cap)
	assert.Equal(t, "capped monthly", rules[1].Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetCatalog(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(q(selectCatalog)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "bank", "reward_type", "annual_fee", "key_benefits", "target_audience", "min_income",
		}).
			AddRow(1, "Atlas", "Axis", "miles", 5000.0, `{"Lounge access","Airline transfers"}`, "travel", 1500000.0).
			AddRow(2, "Millennia", "HDFC", "cashback", 1000.0, `{}`, "cashback", nil))
	mock.ExpectQuery(q(selectCatalogRates)).
		WillReturnRows(sqlmock.NewRows([]string{"card_id", "category", "rate"}).
			AddRow(1, "travel", 5.0).
			AddRow(1, "general", 2.0).
			AddRow(2, "online", 5.0).
			AddRow(2, "groceries", 9.0).
			AddRow(99, "dining", 1.0))

	catalog, err := store.GetCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	atlas := catalog[0]
	assert.Equal(t, []string{"Lounge access", "Airline transfers"}, atlas.KeyBenefits)
	assert.Equal(t, models.PreferenceTravel, atlas.TargetAudience)
	require.NotNil(t, atlas.MinIncome)
	assert.Equal(t, map[models.Category]float64{models.CategoryTravel: 5, models.CategoryGeneral: 2}, atlas.CategoryRates)

	millennia := catalog[1]
	assert.Nil(t, millennia.MinIncome)
	assert.Empty(t, millennia.KeyBenefits)
	assert.Equal(t, map[models.Category]float64{models.CategoryOnline: 5}, millennia.CategoryRates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetUserPreference(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(q(selectPreference)).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"preference"}).AddRow("travel"))
	mock.ExpectQuery(q(selectPreference)).WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"preference"}))

	pref, err := store.GetUserPreference(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, models.PreferenceTravel, pref)

	pref, err = store.GetUserPreference(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, models.Preference(""), pref)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MerchantMappings(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(q(selectMerchantMappings)).
		WillReturnRows(sqlmock.NewRows([]string{"merchant_name", "category", "confidence"}).
			AddRow("Uber", "travel", 0.9))
	mock.ExpectExec(q(upsertMerchantMapping)).
		WithArgs("cred pay", "CRED Pay", "online", 0.8).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mappings, err := store.GetMerchantMappings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.MerchantMapping{
		{MerchantName: "Uber", Category: models.CategoryTravel, Confidence: 0.9, Source: models.SourceCustom},
	}, mappings)

	err = store.AddMerchantMapping(context.Background(), models.MerchantMapping{
		MerchantName: "  CRED Pay ",
		Category:     models.CategoryOnline,
		Confidence:   0.8,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Card Lifecycle
// ==========================

func TestStore_CreateUser(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(q(insertUser)).
		WithArgs("Asha", "cashback").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, now))

	u, err := store.CreateUser(context.Background(), NewUser{Name: " Asha ", Preference: "Cashback"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, models.PreferenceCashback, u.Preference)

	_, err = store.CreateUser(context.Background(), NewUser{Name: "  "})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AddCard(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(q(insertCard)).
		WithArgs(int64(7), "Ace", "Axis", "cashback", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(3, now))
	mock.ExpectQuery(q(insertCard)).
		WithArgs(int64(99), "Ace", "Axis", "cashback", true).
		WillReturnError(&pq.Error{Code: "23503"})

	card, err := store.AddCard(context.Background(), NewCard{UserID: 7, Name: "Ace", Bank: "Axis", RewardType: "cashback"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), card.ID)
	assert.True(t, card.Active)

	_, err = store.AddCard(context.Background(), NewCard{UserID: 99, Name: "Ace", Bank: "Axis", RewardType: "cashback"})
	assert.True(t, errors.Is(err, ErrUserNotFound))

	_, err = store.AddCard(context.Background(), NewCard{UserID: 7, Name: "Ace", Bank: "Axis", RewardType: "vouchers"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AddRewardRule(t *testing.T) {
	capAmount := 5000.0

	tests := []struct {
		name    string
		input   NewRule
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
		wantID  int64
	}{
		{
			name:  "capped rule",
			input: NewRule{CardID: 3, Category: " Dining ", EarnRate: 5, Cap: &capAmount},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(q(selectCardExists)).WithArgs(int64(3)).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
				mock.ExpectQuery(q(insertRule)).WithArgs(int64(3), "dining", 5.0, 5000.0, "").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
			},
			wantID: 21,
		},
		{
			name:  "uncapped rule",
			input: NewRule{CardID: 3, Category: "general", EarnRate: 1},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(q(selectCardExists)).WithArgs(int64(3)).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
				mock.ExpectQuery(q(insertRule)).WithArgs(int64(3), "general", 1.0, nil, "").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(22))
			},
			wantID: 22,
		},
		{
			name:    "non-canonical category",
			input:   NewRule{CardID: 3, Category: "groceries", EarnRate: 1},
			mock:    func(mock sqlmock.Sqlmock) {},
			wantErr: rewards.ErrUnresolvedCategory,
		},
		{
			name:    "negative rate",
			input:   NewRule{CardID: 3, Category: "fuel", EarnRate: -1},
			mock:    func(mock sqlmock.Sqlmock) {},
			wantErr: ErrInvalidInput,
		},
		{
			name:  "missing card",
			input: NewRule{CardID: 4, Category: "fuel", EarnRate: 1},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(q(selectCardExists)).WithArgs(int64(4)).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
			},
			wantErr: rewards.ErrCardNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.mock(mock)

			rule, err := store.AddRewardRule(context.Background(), tt.input)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, rule.ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_SetCardActive(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(q(updateCardActive)).WithArgs(false, int64(3), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(updateCardActive)).WithArgs(true, int64(3), int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.SetCardActive(context.Background(), 7, 3, false))

	err := store.SetCardActive(context.Background(), 8, 3, true)
	assert.True(t, errors.Is(err, rewards.ErrCardNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpsertCatalogCard(t *testing.T) {
	store, mock := newMockStore(t)

	card := models.AvailableCard{
		Name:           "Atlas",
		Bank:           "Axis",
		RewardType:     models.RewardMiles,
		AnnualFee:      5000,
		KeyBenefits:    []string{"Lounge access"},
		TargetAudience: models.PreferenceTravel,
		CategoryRates: map[models.Category]float64{
			models.CategoryGeneral: 2,
			models.CategoryTravel:  5,
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(q(upsertCatalogCard)).
		WithArgs("Atlas", "Axis", "miles", 5000.0, sqlmock.AnyArg(), "travel", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectExec(q(deleteCatalogRates)).WithArgs(int64(12)).WillReturnResult(sqlmock.NewResult(0, 2))
	// rates are written in canonical category order
	mock.ExpectExec(q(insertCatalogRate)).WithArgs(int64(12), "travel", 5.0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(insertCatalogRate)).WithArgs(int64(12), "general", 2.0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := store.UpsertCatalogCard(context.Background(), card)
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpsertCatalogCard_RollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(upsertCatalogCard)).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectExec(q(deleteCatalogRates)).WithArgs(int64(12)).WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	_, err := store.UpsertCatalogCard(context.Background(), models.AvailableCard{Name: "Atlas", Bank: "Axis", RewardType: models.RewardMiles})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock timeout")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := Migrations.ReadDir(MigrationsDir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"00001_wallet.sql", "00002_catalog.sql", "00003_merchant_mappings.sql"}, names)
}
