// internal/store/postgres/store.go
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"rewards-strategist/internal/common/database"
	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/common/validation"
	"rewards-strategist/internal/models"
	"rewards-strategist/internal/rewards"

	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"

var (
	ErrUserNotFound = rewards.ErrUserNotFound
	ErrInvalidInput = rewards.ErrInvalidInput
)

// foreign_key_violation
const pqForeignKeyViolation = "23503"

const (
	selectActiveCards = `SELECT id, user_id, name, bank, reward_type, active, created_at
		FROM cards WHERE user_id = $1 AND active ORDER BY id`

	selectAllCards = `SELECT id, user_id, name, bank, reward_type, active, created_at
		FROM cards WHERE user_id = $1 ORDER BY active DESC, name, id`

	selectCard = `SELECT id, user_id, name, bank, reward_type, active, created_at
		FROM cards WHERE id = $1`

	selectRules = `SELECT id, card_id, category, earn_rate, cap, notes
		FROM reward_rules WHERE card_id = $1 ORDER BY id`

	selectCatalog = `SELECT id, name, bank, reward_type, annual_fee, key_benefits, target_audience, min_income
		FROM available_cards ORDER BY id`

	selectCatalogRates = `SELECT card_id, category, rate FROM available_card_rates ORDER BY card_id, category`

	selectPreference = `SELECT preference FROM users WHERE id = $1`

	selectMerchantMappings = `SELECT merchant_name, category, confidence FROM merchant_mappings ORDER BY merchant_key`

	upsertMerchantMapping = `INSERT INTO merchant_mappings (merchant_key, merchant_name, category, confidence, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (merchant_key) DO UPDATE
		SET merchant_name = EXCLUDED.merchant_name, category = EXCLUDED.category,
		    confidence = EXCLUDED.confidence, updated_at = now()`

	insertUser = `INSERT INTO users (name, preference) VALUES ($1, $2) RETURNING id, created_at`

	insertCard = `INSERT INTO cards (user_id, name, bank, reward_type, active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`

	selectCardExists = `SELECT EXISTS (SELECT 1 FROM cards WHERE id = $1)`

	insertRule = `INSERT INTO reward_rules (card_id, category, earn_rate, cap, notes)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	updateCardActive = `UPDATE cards SET active = $1 WHERE id = $2 AND user_id = $3`

	upsertCatalogCard = `INSERT INTO available_cards
		(name, bank, reward_type, annual_fee, key_benefits, target_audience, min_income, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (name, bank) DO UPDATE
		SET reward_type = EXCLUDED.reward_type, annual_fee = EXCLUDED.annual_fee,
		    key_benefits = EXCLUDED.key_benefits, target_audience = EXCLUDED.target_audience,
		    min_income = EXCLUDED.min_income, updated_at = now()
		RETURNING id`

	deleteCatalogRates = `DELETE FROM available_card_rates WHERE card_id = $1`

	insertCatalogRate = `INSERT INTO available_card_rates (card_id, category, rate) VALUES ($1, $2, $3)`
)

// Store is the Postgres-backed persistence for wallets, reward rules, the
// card catalog and custom merchant mappings.
type Store struct {
	db     *database.PostgresClient
	logger logger.Logger
}

var (
	_ rewards.Store         = (*Store)(nil)
	_ rewards.MerchantStore = (*Store)(nil)
)

func New(db *database.PostgresClient, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "postgres-store"}),
	}
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.Migrate(ctx, Migrations, MigrationsDir)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetActiveCards returns the user's active cards ordered by id.
func (s *Store) GetActiveCards(ctx context.Context, userID int64) ([]models.Card, error) {
	return s.queryCards(ctx, selectActiveCards, userID)
}

// ListCards returns every card of the user, active ones first, then by name.
func (s *Store) ListCards(ctx context.Context, userID int64) ([]models.Card, error) {
	return s.queryCards(ctx, selectAllCards, userID)
}

func (s *Store) queryCards(ctx context.Context, query string, userID int64) ([]models.Card, error) {
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		var c models.Card
		var rewardType string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Bank, &rewardType, &c.Active, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		c.RewardType = models.RewardType(rewardType)
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return cards, nil
}

// GetCard returns one card regardless of its active flag.
func (s *Store) GetCard(ctx context.Context, cardID int64) (*models.Card, error) {
	var c models.Card
	var rewardType string
	err := s.db.QueryRow(ctx, selectCard, cardID).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Bank, &rewardType, &c.Active, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("card %d: %w", cardID, rewards.ErrCardNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query card: %w", err)
	}
	c.RewardType = models.RewardType(rewardType)
	return &c, nil
}

func (s *Store) GetRules(ctx context.Context, cardID int64) ([]models.RewardRule, error) {
	rows, err := s.db.Query(ctx, selectRules, cardID)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var rules []models.RewardRule
	for rows.Next() {
		var r models.RewardRule
		var category string
		var capAmount sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.CardID, &category, &r.EarnRate, &capAmount, &r.Notes); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.Category = models.Category(category)
		if capAmount.Valid {
			v := capAmount.Float64
			r.Cap = &v
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return rules, nil
}

// GetCatalog returns every catalog entry with its per-category rates.
func (s *Store) GetCatalog(ctx context.Context) ([]models.AvailableCard, error) {
	rows, err := s.db.Query(ctx, selectCatalog)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var catalog []models.AvailableCard
	index := map[int64]int{}
	for rows.Next() {
		var c models.AvailableCard
		var rewardType, audience string
		var benefits pq.StringArray
		var minIncome sql.NullFloat64
		if err := rows.Scan(&c.ID, &c.Name, &c.Bank, &rewardType, &c.AnnualFee, &benefits, &audience, &minIncome); err != nil {
			return nil, fmt.Errorf("scan catalog card: %w", err)
		}
		c.RewardType = models.RewardType(rewardType)
		c.TargetAudience = models.Preference(audience)
		c.KeyBenefits = []string(benefits)
		if minIncome.Valid {
			v := minIncome.Float64
			c.MinIncome = &v
		}
		index[c.ID] = len(catalog)
		catalog = append(catalog, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}

	rateRows, err := s.db.Query(ctx, selectCatalogRates)
	if err != nil {
		return nil, fmt.Errorf("query catalog rates: %w", err)
	}
	defer rateRows.Close()

	for rateRows.Next() {
		var cardID int64
		var category string
		var rate float64
		if err := rateRows.Scan(&cardID, &category, &rate); err != nil {
			return nil, fmt.Errorf("scan catalog rate: %w", err)
		}
		i, ok := index[cardID]
		cat, valid := models.ParseCategory(category)
		if !ok || !valid {
			continue
		}
		if catalog[i].CategoryRates == nil {
			catalog[i].CategoryRates = map[models.Category]float64{}
		}
		catalog[i].CategoryRates[cat] = rate
	}
	if err := rateRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog rates: %w", err)
	}
	return catalog, nil
}

// GetUserPreference returns the stored preference. An unknown user has no
// preference.
func (s *Store) GetUserPreference(ctx context.Context, userID int64) (models.Preference, error) {
	var pref string
	err := s.db.QueryRow(ctx, selectPreference, userID).Scan(&pref)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query preference: %w", err)
	}
	return models.Preference(pref), nil
}

func (s *Store) GetMerchantMappings(ctx context.Context) ([]models.MerchantMapping, error) {
	rows, err := s.db.Query(ctx, selectMerchantMappings)
	if err != nil {
		return nil, fmt.Errorf("query merchant mappings: %w", err)
	}
	defer rows.Close()

	var out []models.MerchantMapping
	for rows.Next() {
		m := models.MerchantMapping{Source: models.SourceCustom}
		var category string
		if err := rows.Scan(&m.MerchantName, &category, &m.Confidence); err != nil {
			return nil, fmt.Errorf("scan merchant mapping: %w", err)
		}
		m.Category = models.Category(category)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate merchant mappings: %w", err)
	}
	return out, nil
}

func (s *Store) AddMerchantMapping(ctx context.Context, m models.MerchantMapping) error {
	key := strings.ToLower(strings.TrimSpace(m.MerchantName))
	if _, err := s.db.Exec(ctx, upsertMerchantMapping, key, strings.TrimSpace(m.MerchantName), string(m.Category), m.Confidence); err != nil {
		return fmt.Errorf("upsert merchant mapping: %w", err)
	}
	return nil
}

// NewUser is the input to CreateUser.
type NewUser struct {
	Name       string `json:"name" validate:"notblank,max=200"`
	Preference string `json:"preference" validate:"preference"`
}

func (s *Store) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	pref, _ := models.ParsePreference(in.Preference)
	u := &models.User{Name: strings.TrimSpace(in.Name), Preference: pref}
	if err := s.db.QueryRow(ctx, insertUser, u.Name, string(u.Preference)).Scan(&u.ID, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	s.logger.Info("user created", map[string]interface{}{"userId": u.ID})
	return u, nil
}

// NewCard is the input to AddCard. Active defaults to true.
type NewCard struct {
	UserID     int64  `json:"userId" validate:"required,gte=1"`
	Name       string `json:"name" validate:"notblank,max=200"`
	Bank       string `json:"bank" validate:"notblank,max=200"`
	RewardType string `json:"rewardType" validate:"rewardtype"`
	Inactive   bool   `json:"inactive,omitempty"`
}

func (s *Store) AddCard(ctx context.Context, in NewCard) (*models.Card, error) {
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	rt, _ := models.ParseRewardType(in.RewardType)
	c := &models.Card{
		UserID:     in.UserID,
		Name:       strings.TrimSpace(in.Name),
		Bank:       strings.TrimSpace(in.Bank),
		RewardType: rt,
		Active:     !in.Inactive,
	}
	err := s.db.QueryRow(ctx, insertCard, c.UserID, c.Name, c.Bank, string(c.RewardType), c.Active).Scan(&c.ID, &c.CreatedAt)
	if isForeignKeyViolation(err) {
		return nil, fmt.Errorf("user %d: %w", in.UserID, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("insert card: %w", err)
	}
	s.logger.Info("card added", map[string]interface{}{"userId": c.UserID, "cardId": c.ID})
	return c, nil
}

// NewRule is the input to AddRewardRule. Cap, when set, must be positive.
type NewRule struct {
	CardID   int64    `json:"cardId" validate:"required,gte=1"`
	Category string   `json:"category"`
	EarnRate float64  `json:"earnRate" validate:"gte=0,lte=100"`
	Cap      *float64 `json:"cap,omitempty" validate:"omitempty,gt=0"`
	Notes    string   `json:"notes,omitempty" validate:"max=500"`
}

// AddRewardRule attaches a rule to an existing card. The category must be
// canonical.
func (s *Store) AddRewardRule(ctx context.Context, in NewRule) (*models.RewardRule, error) {
	cat, ok := models.ParseCategory(in.Category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", rewards.ErrUnresolvedCategory, in.Category)
	}
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var exists bool
	if err := s.db.QueryRow(ctx, selectCardExists, in.CardID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check card: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("card %d: %w", in.CardID, rewards.ErrCardNotFound)
	}

	r := &models.RewardRule{CardID: in.CardID, Category: cat, EarnRate: in.EarnRate, Cap: in.Cap, Notes: in.Notes}
	var capAmount interface{}
	if in.Cap != nil {
		capAmount = *in.Cap
	}
	err := s.db.QueryRow(ctx, insertRule, r.CardID, string(r.Category), r.EarnRate, capAmount, r.Notes).Scan(&r.ID)
	if isForeignKeyViolation(err) {
		// card deleted between the check and the insert
		return nil, fmt.Errorf("card %d: %w", in.CardID, rewards.ErrCardNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("insert rule: %w", err)
	}
	return r, nil
}

// SetCardActive flips the active flag of one of the user's cards.
func (s *Store) SetCardActive(ctx context.Context, userID, cardID int64, active bool) error {
	res, err := s.db.Exec(ctx, updateCardActive, active, cardID, userID)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("card %d for user %d: %w", cardID, userID, rewards.ErrCardNotFound)
	}
	s.logger.Info("card active flag updated", map[string]interface{}{
		"userId": userID,
		"cardId": cardID,
		"active": active,
	})
	return nil
}

// UpsertCatalogCard inserts or replaces a catalog entry keyed by name and
// bank, including its per-category rates.
func (s *Store) UpsertCatalogCard(ctx context.Context, card models.AvailableCard) (int64, error) {
	var id int64
	start := time.Now()
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var minIncome interface{}
		if card.MinIncome != nil {
			minIncome = *card.MinIncome
		}
		benefits := card.KeyBenefits
		if benefits == nil {
			benefits = []string{}
		}
		if err := tx.QueryRowContext(ctx, upsertCatalogCard,
			card.Name, card.Bank, string(card.RewardType), card.AnnualFee,
			pq.Array(benefits), string(card.TargetAudience), minIncome,
		).Scan(&id); err != nil {
			return fmt.Errorf("upsert catalog card: %w", err)
		}

		if _, err := tx.ExecContext(ctx, deleteCatalogRates, id); err != nil {
			return fmt.Errorf("clear catalog rates: %w", err)
		}
		for _, cat := range models.Categories() {
			rate, ok := card.CategoryRates[cat]
			if !ok {
				continue
			}
			if _, err := tx.ExecContext(ctx, insertCatalogRate, id, string(cat), rate); err != nil {
				return fmt.Errorf("insert catalog rate %s: %w", cat, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("catalog card upserted", map[string]interface{}{
		"cardId":   id,
		"name":     card.Name,
		"duration": time.Since(start).Milliseconds(),
	})
	return id, nil
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqForeignKeyViolation
}
