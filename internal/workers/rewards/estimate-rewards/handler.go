// internal/workers/rewards/estimate-rewards/handler.go
package estimaterewards

import (
	"context"

	apperrors "rewards-strategist/internal/common/errors"
	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/common/validation"
	"rewards-strategist/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "estimate-rewards"
)

type Estimator interface {
	Estimate(ctx context.Context, userID, cardID int64, spend float64, category string) (*models.ValuationResult, error)
}

type Handler struct {
	config     *Config
	estimator  Estimator
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, estimator Estimator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		estimator:  estimator,
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(ctx context.Context, client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if stdErr := apperrors.DecodeJobInput(job.Variables, &input); stdErr != nil {
		return h.errHandler.HandleJobError(ctx, client, job, stdErr)
	}

	execCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	output, err := h.Execute(execCtx, &input)
	if err != nil {
		return h.errHandler.HandleJobError(ctx, client, job, err)
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
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

// Execute values a single spend on one of the user's active cards. A card
// without an applicable rule yields a valuation flagged RuleMissing.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInputValidationFailedError("input cannot be nil")
	}
	if err := validation.Struct(input); err != nil {
		return nil, apperrors.NewInputValidationFailedError(err.Error())
	}

	if input.SpendAmount == nil {
		return nil, apperrors.MissingSpendError()
	}

	result, err := h.estimator.Estimate(ctx, input.UserID, input.CardID, *input.SpendAmount, input.Category)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("rewards estimated", map[string]interface{}{
		"userId":         input.UserID,
		"cardId":         input.CardID,
		"estimatedValue": result.EstimatedValue,
		"ruleMissing":    result.RuleMissing,
	})
	return &Output{Valuation: *result}, nil
}
