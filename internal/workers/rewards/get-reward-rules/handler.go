// internal/workers/rewards/get-reward-rules/handler.go
package getrewardrules

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	apperrors "rewards-strategist/internal/common/errors"
	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/common/validation"
	"rewards-strategist/internal/models"
	"rewards-strategist/internal/rewards"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "get-reward-rules"
)

type RuleReader interface {
	GetCard(ctx context.Context, cardID int64) (*models.Card, error)
	GetRules(ctx context.Context, cardID int64) ([]models.RewardRule, error)
}

type Handler struct {
	config     *Config
	store      RuleReader
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, store RuleReader, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		store:      store,
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(ctx context.Context, client worker.JobClient, job entities.Job) error {
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

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		return err
	}
	_, err = cmd.Send(ctx)
	return err
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInputValidationFailedError("input cannot be nil")
	}
	if err := validation.Struct(input); err != nil {
		return nil, apperrors.NewInputValidationFailedError(err.Error())
	}

	card, err := h.store.GetCard(ctx, input.CardID)
	if err != nil {
		return nil, err
	}
	if input.UserID > 0 && card.UserID != input.UserID {
		return nil, fmt.Errorf("card %d for user %d: %w", input.CardID, input.UserID, rewards.ErrCardNotFound)
	}

	rules, err := h.store.GetRules(ctx, input.CardID)
	if err != nil {
		return nil, err
	}
	sorted := make([]models.RewardRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].EarnRate != sorted[j].EarnRate {
			return sorted[i].EarnRate > sorted[j].EarnRate
		}
		return sorted[i].ID < sorted[j].ID
	})

	return &Output{Card: *card, Rules: sorted}, nil
}
