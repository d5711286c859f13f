//go:build e2e

// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewards-strategist/internal/common/config"
	"rewards-strategist/internal/common/database"
	apperrors "rewards-strategist/internal/common/errors"
	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/models"
	"rewards-strategist/internal/rewards"
	"rewards-strategist/internal/store/cache"
	"rewards-strategist/internal/store/postgres"
	"rewards-strategist/pkg/catalog"

	ac "rewards-strategist/internal/workers/rewards/add-card"
	amm "rewards-strategist/internal/workers/rewards/add-merchant-mapping"
	arr "rewards-strategist/internal/workers/rewards/add-reward-rule"
	awg "rewards-strategist/internal/workers/rewards/analyze-wallet-gaps"
	cu "rewards-strategist/internal/workers/rewards/create-user"
	er "rewards-strategist/internal/workers/rewards/estimate-rewards"
	grr "rewards-strategist/internal/workers/rewards/get-reward-rules"
	lc "rewards-strategist/internal/workers/rewards/list-cards"
	rbc "rewards-strategist/internal/workers/rewards/rank-best-card"
	rc "rewards-strategist/internal/workers/rewards/recommend-cards"
	rm "rewards-strategist/internal/workers/rewards/resolve-merchant"
	sca "rewards-strategist/internal/workers/rewards/set-card-active"
)

var cfg *config.Config

func amount(v float64) *float64 { return &v }

func TestMain(m *testing.M) {
	var err error
	cfg, err = config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// run against the local docker stack
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"

	os.Exit(m.Run())
}

type fixture struct {
	store  *postgres.Store
	cached *cache.Store
	opts   rewards.Options
	log    logger.Logger
	user   *models.User
	cards  map[string]*models.Card
}

func TestFullE2E(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	f := setupFixture(ctx, t)

	t.Run("rank-best-card", func(t *testing.T) { testRankBestCard(ctx, t, f) })
	t.Run("estimate-rewards", func(t *testing.T) { testEstimateRewards(ctx, t, f) })
	t.Run("analyze-wallet-gaps", func(t *testing.T) { testAnalyzeWalletGaps(ctx, t, f) })
	t.Run("recommend-cards", func(t *testing.T) { testRecommendCards(ctx, t, f) })
	t.Run("merchant mappings", func(t *testing.T) { testMerchantMappings(ctx, t, f) })
	t.Run("set-card-active", func(t *testing.T) { testSetCardActive(ctx, t, f) })
	t.Run("wallet admin", func(t *testing.T) { testWalletAdmin(ctx, t, f) })
}

// ==========================
// 1. Services + Schema + Test Data
// ==========================
func setupFixture(ctx context.Context, t *testing.T) *fixture {
	log := logger.NewTestLogger(t)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "PostgreSQL connection failed")
	t.Cleanup(func() { pg.Close() })
	require.NoError(t, pg.Ping(ctx), "PostgreSQL ping failed")

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "Redis client creation failed")
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.Ping(ctx), "Redis ping failed")

	store := postgres.New(pg, log)
	require.NoError(t, store.Migrate(ctx))

	file, err := catalog.Load(filepath.Join("..", "..", "configs", "catalog.json"))
	require.NoError(t, err)
	for _, c := range file.AvailableCards() {
		_, err := store.UpsertCatalogCard(ctx, c)
		require.NoError(t, err)
	}

	user, err := store.CreateUser(ctx, postgres.NewUser{
		Name:       fmt.Sprintf("e2e-%d", time.Now().UnixNano()),
		Preference: "travel",
	})
	require.NoError(t, err)

	f := &fixture{
		store:  store,
		cached: cache.New(store, rdb, cache.TTLsFrom(cfg.Cache), log),
		log:    log,
		user:   user,
		cards:  map[string]*models.Card{},
	}
	f.opts, err = cfg.EngineOptions()
	require.NoError(t, err)

	capAmount := 2000.0
	addCard(ctx, t, f, "Millennia", "HDFC", "cashback", []postgres.NewRule{
		{Category: "online", EarnRate: 5, Cap: &capAmount},
		{Category: "general", EarnRate: 1},
	})
	addCard(ctx, t, f, "HDFC Regalia", "HDFC", "points", []postgres.NewRule{
		{Category: "travel", EarnRate: 5.3},
		{Category: "dining", EarnRate: 2.7},
		{Category: "general", EarnRate: 1.3},
	})
	require.NoError(t, f.cached.InvalidateUser(ctx, user.ID))
	return f
}

func addCard(ctx context.Context, t *testing.T, f *fixture, name, bank, rewardType string, rules []postgres.NewRule) {
	card, err := f.store.AddCard(ctx, postgres.NewCard{UserID: f.user.ID, Name: name, Bank: bank, RewardType: rewardType})
	require.NoError(t, err)
	for _, r := range rules {
		r.CardID = card.ID
		_, err := f.store.AddRewardRule(ctx, r)
		require.NoError(t, err)
	}
	f.cards[name] = card
}

// ==========================
// 2. Workers
// ==========================
func testRankBestCard(ctx context.Context, t *testing.T, f *fixture) {
	ranker := rewards.NewRanker(f.cached, nil, f.opts, f.log)
	merchants := rewards.NewMerchantResolver(f.store, f.opts, f.log)
	h := rbc.NewHandler(rbc.LoadConfig(config.GetWorkerConfig(cfg, rbc.TaskType)), ranker, merchants, f.log)

	out, err := h.Execute(ctx, &rbc.Input{UserID: f.user.ID, SpendAmount: amount(1000), Category: "online"})
	require.NoError(t, err)
	assert.Equal(t, f.cards["Millennia"].ID, out.BestCardID)
	assert.Equal(t, models.StatusOK, out.OverallStatus)

	out, err = h.Execute(ctx, &rbc.Input{UserID: f.user.ID, SpendAmount: amount(1000), Merchant: "MakeMyTrip"})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryTravel, out.Category)
	require.NotNil(t, out.MerchantResolution)
}

func testEstimateRewards(ctx context.Context, t *testing.T, f *fixture) {
	ranker := rewards.NewRanker(f.cached, nil, f.opts, f.log)
	h := er.NewHandler(er.LoadConfig(config.GetWorkerConfig(cfg, er.TaskType)), ranker, f.log)

	out, err := h.Execute(ctx, &er.Input{UserID: f.user.ID, CardID: f.cards["Millennia"].ID, SpendAmount: amount(3000), Category: "online"})
	require.NoError(t, err)
	assert.True(t, out.Valuation.CapApplied)
	assert.InDelta(t, 110.0, out.Valuation.EstimatedValue, 1e-6)
}

func testAnalyzeWalletGaps(ctx context.Context, t *testing.T, f *fixture) {
	analyzer := rewards.NewAnalyzer(f.cached, f.opts, f.log)
	h := awg.NewHandler(awg.LoadConfig(config.GetWorkerConfig(cfg, awg.TaskType)), analyzer, f.log)

	out, err := h.Execute(ctx, &awg.Input{UserID: f.user.ID})
	require.NoError(t, err)
	assert.Len(t, out.Coverage, len(models.Categories()))
}

func testRecommendCards(ctx context.Context, t *testing.T, f *fixture) {
	recommender := rewards.NewRecommender(f.cached, nil, f.opts, f.log)
	h := rc.NewHandler(rc.LoadConfig(config.GetWorkerConfig(cfg, rc.TaskType)), recommender, f.log)

	out, err := h.Execute(ctx, &rc.Input{UserID: f.user.ID})
	require.NoError(t, err)
	require.NotEmpty(t, out.Recommendations)
	for _, rec := range out.Recommendations {
		assert.False(t, rec.Card.Name == "HDFC Regalia" && rec.Card.Bank == "HDFC", "owned card recommended")
	}
}

func testMerchantMappings(ctx context.Context, t *testing.T, f *fixture) {
	merchants := rewards.NewMerchantResolver(f.store, f.opts, f.log)
	add := amm.NewHandler(amm.LoadConfig(config.GetWorkerConfig(cfg, amm.TaskType)), merchants, f.log)
	resolve := rm.NewHandler(rm.LoadConfig(config.GetWorkerConfig(cfg, rm.TaskType)), merchants, f.log)

	name := fmt.Sprintf("E2E Cafe %d", time.Now().UnixNano())
	before, err := resolve.Execute(ctx, &rm.Input{Merchant: name})
	require.NoError(t, err)
	assert.False(t, before.Resolved)

	_, err = add.Execute(ctx, &amm.Input{Merchant: name, Category: "dining", Confidence: 0.9})
	require.NoError(t, err)

	after, err := resolve.Execute(ctx, &rm.Input{Merchant: name})
	require.NoError(t, err)
	assert.True(t, after.Resolved)
}

func testSetCardActive(ctx context.Context, t *testing.T, f *fixture) {
	h := sca.NewHandler(sca.LoadConfig(config.GetWorkerConfig(cfg, sca.TaskType)), f.store, f.cached, f.log)
	inactive := false

	_, err := h.Execute(ctx, &sca.Input{UserID: f.user.ID, CardID: f.cards["Millennia"].ID, Active: &inactive})
	require.NoError(t, err)

	cards, err := f.cached.GetActiveCards(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, f.cards["HDFC Regalia"].ID, cards[0].ID)

	_, err = h.Execute(ctx, &sca.Input{UserID: f.user.ID + 100000, CardID: f.cards["Millennia"].ID, Active: &inactive})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeCardNotFound, apperrors.FromRewardsError(sca.TaskType, err).Code)
}

func testWalletAdmin(ctx context.Context, t *testing.T, f *fixture) {
	createUser := cu.NewHandler(cu.LoadConfig(config.GetWorkerConfig(cfg, cu.TaskType)), f.store, f.log)
	addCard := ac.NewHandler(ac.LoadConfig(config.GetWorkerConfig(cfg, ac.TaskType)), f.store, f.cached, f.log)
	addRule := arr.NewHandler(arr.LoadConfig(config.GetWorkerConfig(cfg, arr.TaskType)), f.store, f.cached, f.log)
	listCards := lc.NewHandler(lc.LoadConfig(config.GetWorkerConfig(cfg, lc.TaskType)), f.store, f.log)
	getRules := grr.NewHandler(grr.LoadConfig(config.GetWorkerConfig(cfg, grr.TaskType)), f.store, f.log)

	user, err := createUser.Execute(ctx, &cu.Input{Name: fmt.Sprintf("e2e-admin-%d", time.Now().UnixNano()), Preference: "cashback"})
	require.NoError(t, err)
	assert.Equal(t, models.PreferenceCashback, user.User.Preference)
	userID := user.User.ID

	// warm the cache so the add-card invalidation is observable
	cards, err := f.cached.GetActiveCards(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, cards)

	card, err := addCard.Execute(ctx, &ac.Input{UserID: userID, Name: "Swiggy", Bank: "HDFC", RewardType: "cashback"})
	require.NoError(t, err)
	cardID := card.Card.ID

	cards, err = f.cached.GetActiveCards(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cards, 1)

	_, err = f.cached.GetRules(ctx, cardID)
	require.NoError(t, err)
	for _, r := range []struct {
		category string
		rate     float64
	}{{"dining", 10}, {"general", 1}} {
		_, err := addRule.Execute(ctx, &arr.Input{CardID: cardID, Category: r.category, EarnRate: amount(r.rate)})
		require.NoError(t, err)
	}
	rules, err := f.cached.GetRules(ctx, cardID)
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	listed, err := listCards.Execute(ctx, &lc.Input{UserID: userID})
	require.NoError(t, err)
	assert.Equal(t, 1, listed.Count)
	assert.Equal(t, 1, listed.ActiveCount)

	got, err := getRules.Execute(ctx, &grr.Input{CardID: cardID, UserID: userID})
	require.NoError(t, err)
	require.Len(t, got.Rules, 2)
	assert.Equal(t, models.CategoryDining, got.Rules[0].Category)

	_, err = addCard.Execute(ctx, &ac.Input{UserID: userID + 100000, Name: "Ghost", Bank: "HDFC", RewardType: "points"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUserNotFound, apperrors.FromRewardsError(ac.TaskType, err).Code)
}
