// internal/workers/rewards/set-card-active/handler.go
package setcardactive

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "rewards-strategist/internal/common/errors"
	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "set-card-active"
)

type CardStore interface {
	SetCardActive(ctx context.Context, userID, cardID int64, active bool) error
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

// Execute flips the card's active flag. Inactive cards stay stored but
// drop out of every ranking.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInputValidationFailedError("input cannot be nil")
	}
	if err := validation.Struct(input); err != nil {
		return nil, apperrors.NewInputValidationFailedError(err.Error())
	}

	active := *input.Active
	if err := h.cards.SetCardActive(ctx, input.UserID, input.CardID, active); err != nil {
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

	h.logger.Info("card status updated", map[string]interface{}{
		"userId": input.UserID,
		"cardId": input.CardID,
		"active": active,
	})
	return &Output{CardID: input.CardID, Active: active}, nil
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
