// internal/workers/rewards/list-cards/handler.go
package listcards

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "rewards-strategist/internal/common/errors"
	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/common/validation"
	"rewards-strategist/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "list-cards"
)

type CardLister interface {
	ListCards(ctx context.Context, userID int64) ([]models.Card, error)
}

type Handler struct {
	config     *Config
	cards      CardLister
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, cards CardLister, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		cards:      cards,
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

// Execute returns every card of the user, inactive ones included. An
// unknown user has an empty wallet.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInputValidationFailedError("input cannot be nil")
	}
	if err := validation.Struct(input); err != nil {
		return nil, apperrors.NewInputValidationFailedError(err.Error())
	}

	cards, err := h.cards.ListCards(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if cards == nil {
		cards = []models.Card{}
	}

	output := &Output{Cards: cards, Count: len(cards)}
	for _, c := range cards {
		if c.Active {
			output.ActiveCount++
		}
	}

	h.logger.Debug("cards listed", map[string]interface{}{
		"userId": input.UserID,
		"count":  output.Count,
		"active": output.ActiveCount,
	})
	return output, nil
}
