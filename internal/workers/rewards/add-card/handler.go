// internal/workers/rewards/add-card/handler.go
package addcard

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
	TaskType = "add-card"
)

type CardStore interface {
	AddCard(ctx context.Context, in postgres.NewCard) (*models.Card, error)
}

// Invalidator drops cached wallet reads for a user.
type Invalidator interface {
	InvalidateUser(ctx context.Context, userID int64) error
}

type Handler struct {
	config      *Config
	cards       CardStore
	invalidator Invalidator
	errHandler  *apperrors.ErrorHandler
	logger      logger.Logger
}

// NewHandler builds the handler. invalidator may be nil when no cache is
// configured.
func NewHandler(config *Config, cards CardStore, invalidator Invalidator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:      config,
		cards:       cards,
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

// Execute stores a new card in the user's wallet and drops the cached
// wallet so the next ranking sees it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInputValidationFailedError("input cannot be nil")
	}
	if err := validation.Struct(input); err != nil {
		return nil, apperrors.NewInputValidationFailedError(err.Error())
	}

	card, err := h.cards.AddCard(ctx, postgres.NewCard{
		UserID:     input.UserID,
		Name:       input.Name,
		Bank:       input.Bank,
		RewardType: input.RewardType,
		Inactive:   input.Active != nil && !*input.Active,
	})
	if err != nil {
		return nil, err
	}

	if h.invalidator != nil {
		if err := h.invalidator.InvalidateUser(ctx, input.UserID); err != nil {
			h.logger.Warn("failed to invalidate cached cards", map[string]interface{}{
				"userId": input.UserID,
				"error":  err.Error(),
			})
		}
	}

	h.logger.Info("card added", map[string]interface{}{
		"userId":     card.UserID,
		"cardId":     card.ID,
		"rewardType": string(card.RewardType),
	})
	return &Output{Card: *card}, nil
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
