// internal/workers/rewards/rank-best-card/handler.go
package rankbestcard

import (
	"context"
	"strings"

	apperrors "rewards-strategist/internal/common/errors"
	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/common/validation"
	"rewards-strategist/internal/models"
	"rewards-strategist/internal/rewards"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "rank-best-card"
)

type Ranker interface {
	Rank(ctx context.Context, userID int64, spend float64, category string) (*models.RankedComparison, error)
}

type MerchantResolver interface {
	Resolve(ctx context.Context, name string) models.Resolution
}

type Handler struct {
	config     *Config
	ranker     Ranker
	merchants  MerchantResolver
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

// NewHandler builds the handler. merchants may be nil, in which case a
// category is required on every job.
func NewHandler(config *Config, ranker Ranker, merchants MerchantResolver, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		ranker:     ranker,
		merchants:  merchants,
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

	return h.completeJob(ctx, client, job, output)
}

// Execute ranks the user's active cards for the purchase in input.
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
	spend := *input.SpendAmount
	if err := rewards.ValidateSpend(spend); err != nil {
		return nil, err
	}

	category := input.Category
	var resolution *models.Resolution
	if strings.TrimSpace(category) == "" {
		if h.merchants == nil {
			return nil, apperrors.NewInputValidationFailedError("category: required")
		}
		res := h.merchants.Resolve(ctx, input.Merchant)
		resolution = &res
		if res.Status != models.ResolutionResolved || res.Category == nil {
			h.logger.Info("merchant needs clarification", map[string]interface{}{
				"userId":     input.UserID,
				"merchant":   input.Merchant,
				"confidence": res.Confidence,
			})
			return &Output{
				Ranked:             []models.ValuationResult{},
				OverallStatus:      models.StatusNeedsClarification,
				MerchantResolution: resolution,
			}, nil
		}
		category = string(*res.Category)
	}

	comparison, err := h.ranker.Rank(ctx, input.UserID, spend, category)
	if err != nil {
		return nil, err
	}

	output := &Output{
		Ranked:             comparison.Ranked,
		OverallStatus:      comparison.OverallStatus,
		TieBrokenBy:        comparison.TieBrokenBy,
		TieBand:            comparison.TieBand,
		Category:           comparison.Category,
		MerchantResolution: resolution,
	}
	if output.Ranked == nil {
		output.Ranked = []models.ValuationResult{}
	}
	if len(output.Ranked) > 0 && !output.Ranked[0].RuleMissing {
		output.BestCardID = output.Ranked[0].CardID
	}

	h.logger.Info("cards ranked", map[string]interface{}{
		"userId":        input.UserID,
		"category":      category,
		"overallStatus": string(output.OverallStatus),
		"bestCardId":    output.BestCardID,
		"tieBrokenBy":   output.TieBrokenBy,
	})

	return output, nil
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
