// internal/workers/rewards/recommend-cards/handler.go
package recommendcards

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
	TaskType = "recommend-cards"
)

type Recommender interface {
	Recommend(ctx context.Context, userID int64, pref models.Preference) ([]models.Recommendation, error)
}

type Handler struct {
	config      *Config
	recommender Recommender
	errHandler  *apperrors.ErrorHandler
	logger      logger.Logger
}

func NewHandler(config *Config, recommender Recommender, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:      config,
		recommender: recommender,
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

// Execute scores the catalog for the user. The job's limit wins over the
// configured maximum.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInputValidationFailedError("input cannot be nil")
	}
	if err := validation.Struct(input); err != nil {
		return nil, apperrors.NewInputValidationFailedError(err.Error())
	}
	pref, _ := models.ParsePreference(input.Preference)

	recs, err := h.recommender.Recommend(ctx, input.UserID, pref)
	if err != nil {
		return nil, err
	}

	limit := h.config.MaxResults
	if input.Limit > 0 {
		limit = input.Limit
	}
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	if recs == nil {
		recs = []models.Recommendation{}
	}

	output := &Output{Recommendations: recs, Count: len(recs)}
	if len(recs) > 0 {
		output.TopCardID = recs[0].Card.ID
	}

	h.logger.Info("recommendations built", map[string]interface{}{
		"userId":     input.UserID,
		"preference": string(pref),
		"count":      output.Count,
	})
	return output, nil
}
