// internal/store/cache/cache.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rewards-strategist/internal/common/config"
	"rewards-strategist/internal/common/database"
	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/common/metrics"
	"rewards-strategist/internal/models"
	"rewards-strategist/internal/rewards"
)

const keyPrefix = "rewards:"

const (
	kindCards      = "cards"
	kindRules      = "rules"
	kindCatalog    = "catalog"
	kindPreference = "preference"
)

type TTLs struct {
	Cards   time.Duration
	Rules   time.Duration
	Catalog time.Duration
}

func TTLsFrom(cfg config.CacheConfig) TTLs {
	return TTLs{
		Cards:   config.GetSeconds(cfg.CardsTTL),
		Rules:   config.GetSeconds(cfg.RulesTTL),
		Catalog: config.GetSeconds(cfg.CatalogTTL),
	}
}

// Store is a Redis read-through cache in front of another rewards.Store.
// Redis failures are logged and the call falls through to the backing store.
type Store struct {
	next   rewards.Store
	redis  *database.RedisClient
	ttl    TTLs
	logger logger.Logger
}

var _ rewards.Store = (*Store)(nil)

func New(next rewards.Store, redis *database.RedisClient, ttl TTLs, log logger.Logger) *Store {
	return &Store{
		next:   next,
		redis:  redis,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "store-cache"}),
	}
}

func cardsKey(userID int64) string      { return fmt.Sprintf("%scards:%d", keyPrefix, userID) }
func rulesKey(cardID int64) string      { return fmt.Sprintf("%srules:%d", keyPrefix, cardID) }
func preferenceKey(userID int64) string { return fmt.Sprintf("%spreference:%d", keyPrefix, userID) }

const catalogKey = keyPrefix + "catalog"

func (s *Store) GetActiveCards(ctx context.Context, userID int64) ([]models.Card, error) {
	var cards []models.Card
	err := readThrough(ctx, s, kindCards, cardsKey(userID), s.ttl.Cards, &cards, func() ([]models.Card, error) {
		return s.next.GetActiveCards(ctx, userID)
	})
	return cards, err
}

func (s *Store) GetRules(ctx context.Context, cardID int64) ([]models.RewardRule, error) {
	var rules []models.RewardRule
	err := readThrough(ctx, s, kindRules, rulesKey(cardID), s.ttl.Rules, &rules, func() ([]models.RewardRule, error) {
		return s.next.GetRules(ctx, cardID)
	})
	return rules, err
}

func (s *Store) GetCatalog(ctx context.Context) ([]models.AvailableCard, error) {
	var catalog []models.AvailableCard
	err := readThrough(ctx, s, kindCatalog, catalogKey, s.ttl.Catalog, &catalog, func() ([]models.AvailableCard, error) {
		return s.next.GetCatalog(ctx)
	})
	return catalog, err
}

func (s *Store) GetUserPreference(ctx context.Context, userID int64) (models.Preference, error) {
	var pref models.Preference
	err := readThrough(ctx, s, kindPreference, preferenceKey(userID), s.ttl.Cards, &pref, func() (models.Preference, error) {
		return s.next.GetUserPreference(ctx, userID)
	})
	return pref, err
}

// InvalidateUser drops the cached wallet and preference of a user.
func (s *Store) InvalidateUser(ctx context.Context, userID int64) error {
	return s.redis.Del(ctx, cardsKey(userID), preferenceKey(userID))
}

func (s *Store) InvalidateCard(ctx context.Context, cardID int64) error {
	return s.redis.Del(ctx, rulesKey(cardID))
}

func (s *Store) InvalidateCatalog(ctx context.Context) error {
	return s.redis.Del(ctx, catalogKey)
}

// readThrough serves key from Redis into dst, or loads it and caches the
// result. A zero ttl disables caching for that kind.
func readThrough[T any](ctx context.Context, s *Store, kind, key string, ttl time.Duration, dst *T, load func() (T, error)) error {
	if ttl <= 0 {
		v, err := load()
		*dst = v
		return err
	}

	err := s.redis.GetJSON(ctx, key, dst)
	switch {
	case err == nil:
		metrics.CacheRequests.WithLabelValues(kind, "hit").Inc()
		return nil
	case errors.Is(err, database.ErrCacheMiss):
		metrics.CacheRequests.WithLabelValues(kind, "miss").Inc()
	default:
		metrics.CacheRequests.WithLabelValues(kind, "error").Inc()
		s.logger.Warn("cache read failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	v, err := load()
	if err != nil {
		return err
	}
	*dst = v

	if err := s.redis.SetJSON(ctx, key, v, ttl); err != nil {
		s.logger.Warn("cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
	return nil
}
