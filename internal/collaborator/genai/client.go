// internal/collaborator/genai/client.go
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"rewards-strategist/internal/common/config"
	commonhttp "rewards-strategist/internal/common/http"
	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/common/validation"
	"rewards-strategist/internal/rewards"

	"github.com/google/uuid"
)

const rankPath = "/api/ai/rank"

const (
	taskTieBreak       = "tie_break"
	taskRecommendation = "recommendation_rank"
)

var ErrInvalidResponse = errors.New("genai: invalid response")

var responseSchema = validation.MustCompileSchema(`{
  "type": "object",
  "required": ["order"],
  "properties": {
    "order": {"type": "array", "items": {"type": "integer"}},
    "reasoning": {"type": "string"}
  }
}`)

type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFrom(cfg config.GenAIConfig) Config {
	return Config{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Timeout:    config.GetDuration(cfg.Timeout),
		MaxRetries: cfg.MaxRetries,
	}
}

// Client asks the GenAI service to order small sets of card ids. It
// implements rewards.TieBreaker and rewards.RecommendationRanker; the
// engine validates every reply and falls back on any failure.
type Client struct {
	http   *commonhttp.Client
	cfg    Config
	logger logger.Logger
}

var (
	_ rewards.TieBreaker           = (*Client)(nil)
	_ rewards.RecommendationRanker = (*Client)(nil)
)

func NewClient(cfg Config, log logger.Logger, opts ...commonhttp.Option) *Client {
	opts = append([]commonhttp.Option{commonhttp.WithBearerToken(cfg.APIKey)}, opts...)
	return &Client{
		http:   commonhttp.NewClient(cfg.BaseURL, cfg.Timeout, opts...),
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "genai-client"}),
	}
}

type rankRequest struct {
	RequestID  string      `json:"requestId"`
	Task       string      `json:"task"`
	Model      string      `json:"model,omitempty"`
	Prompt     string      `json:"prompt"`
	Candidates []int64     `json:"candidates"`
	Context    interface{} `json:"context"`
}

type rankResponse struct {
	Order     []int64 `json:"order"`
	Reasoning string  `json:"reasoning,omitempty"`
}

func (c *Client) RankSubset(ctx context.Context, ids []int64, tc rewards.TieContext) ([]int64, error) {
	return c.rank(ctx, taskTieBreak, tiePrompt(tc), ids, tc)
}

func (c *Client) RankCandidates(ctx context.Context, ids []int64, rc rewards.RecommendationContext) ([]int64, error) {
	return c.rank(ctx, taskRecommendation, recommendationPrompt(rc), ids, rc)
}

func (c *Client) rank(ctx context.Context, task, prompt string, ids []int64, payload interface{}) ([]int64, error) {
	req := rankRequest{
		RequestID:  uuid.NewString(),
		Task:       task,
		Model:      c.cfg.Model,
		Prompt:     prompt,
		Candidates: ids,
		Context:    payload,
	}
	headers := map[string]string{"X-Request-ID": req.RequestID}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("genai %s: %w", task, ctx.Err())
			}
		}

		data, err := c.http.PostJSON(ctx, rankPath, req, headers)
		if err == nil {
			order, err := decodeOrder(data)
			if err != nil {
				return nil, err
			}
			c.logger.Debug("genai ranking received", map[string]interface{}{
				"requestId": req.RequestID,
				"task":      task,
				"attempt":   attempt + 1,
			})
			return order, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, fmt.Errorf("genai %s: %w", task, ctx.Err())
		}
		var statusErr *commonhttp.StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			break
		}
		c.logger.Warn("genai call failed", map[string]interface{}{
			"requestId": req.RequestID,
			"task":      task,
			"attempt":   attempt + 1,
			"error":     err.Error(),
		})
	}

	return nil, fmt.Errorf("genai %s: %w", task, lastErr)
}

func decodeOrder(data []byte) ([]int64, error) {
	if err := responseSchema.ValidateBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	var resp rankResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return resp.Order, nil
}

func tiePrompt(tc rewards.TieContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "These cards earn nearly the same value for a %.2f spend in %s.\n", tc.SpendAmount, tc.Category)
	fmt.Fprintf(&b, "The user prefers %s rewards.\n", tc.Preference.OrBalanced())
	for _, cand := range tc.Candidates {
		fee := "unknown"
		if cand.AnnualFee != nil {
			fee = fmt.Sprintf("%.0f", *cand.AnnualFee)
		}
		fmt.Fprintf(&b, "- id %d: %s (%s), value %.2f, rate %.2f%%, annual fee %s, benefits %d\n",
			cand.CardID, cand.CardName, cand.Bank, cand.EstimatedValue, cand.EarnRate, fee, cand.BenefitDiversity)
	}
	b.WriteString("Return every id exactly once in an \"order\" array, best first.")
	return b.String()
}

func recommendationPrompt(rc rewards.RecommendationContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rank these card suggestions for a user who prefers %s rewards", rc.Preference.OrBalanced())
	if len(rc.OwnedCards) > 0 {
		owned := make([]string, len(rc.OwnedCards))
		for i, c := range rc.OwnedCards {
			owned[i] = c.Name
		}
		fmt.Fprintf(&b, " and already holds %s", strings.Join(owned, ", "))
	}
	b.WriteString(".\n")
	for _, rec := range rc.Candidates {
		fmt.Fprintf(&b, "- id %d: %s (%s), fee %.0f, score %.1f, fills %d gaps\n",
			rec.Card.ID, rec.Card.Name, rec.Card.Bank, rec.Card.AnnualFee, rec.Score, len(rec.GapCategories))
	}
	b.WriteString("Return every id exactly once in an \"order\" array, best first.")
	return b.String()
}
