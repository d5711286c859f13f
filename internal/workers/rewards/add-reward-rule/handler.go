// internal/workers/rewards/add-reward-rule/handler.go
package addrewardrule

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "rewards-strategist/internal/common/errors"
	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/common/validation"
	"rewards-strategist/internal/models"
	"rewards-strategist/internal/store/postgres"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "add-reward-rule"
)

type RuleStore interface {
	AddRewardRule(ctx context.Context, in postgres.NewRule) (*models.RewardRule, error)
}

// Invalidator drops the cached rules of a card.
type Invalidator interface {
	InvalidateCard(ctx context.Context, cardID int64) error
}

type Handler struct {
	config      *Config
	rules       RuleStore
	invalidator Invalidator
	errHandler  *apperrors.ErrorHandler
	logger      logger.Logger
}

// NewHandler builds the handler. invalidator may be nil when no cache is
// configured.
func NewHandler(config *Config, rules RuleStore, invalidator Invalidator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:      config,
		rules:       rules,
		invalidator: invalidator,
		errHandler:  apperrors.NewErrorHandler(log),
		logger:      log,
	}
}

func (h *Handler) Handle(ctx context.Context, client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return h.errHandler.HandleJobError(ctx, client, job,
			apperrors.NewInputValidationFailedError(fmt.Sprintf("parse input: %v", err)))
	}

	execCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	output, err := h.Execute(execCtx, &input)
	if err != nil {
		return h.errHandler.HandleJobError(ctx, client, job, err)
	}

	return h.completeJob(ctx, client, job, output)
}

// Execute attaches a rule to an existing card. A non-canonical category
// fails as UNRESOLVED_CATEGORY.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInputValidationFailedError("input cannot be nil")
	}
	if err := validation.Struct(input); err != nil {
		return nil, apperrors.NewInputValidationFailedError(err.Error())
	}

	rule, err := h.rules.AddRewardRule(ctx, postgres.NewRule{
		CardID:   input.CardID,
		Category: input.Category,
		EarnRate: *input.EarnRate,
		Cap:      input.Cap,
		Notes:    input.Notes,
	})
	if err != nil {
		return nil, err
	}

	if h.invalidator != nil {
		if err := h.invalidator.InvalidateCard(ctx, input.CardID); err != nil {
			h.logger.Warn("failed to invalidate cached rules", map[string]interface{}{
				"cardId": input.CardID,
				"error":  err.Error(),
			})
		}
	}

	h.logger.Info("reward rule added", map[string]interface{}{
		"cardId":   rule.CardID,
		"ruleId":   rule.ID,
		"category": string(rule.Category),
		"earnRate": rule.EarnRate,
	})
	return &Output{Rule: *rule}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return err
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return err
	}
	return nil
}
