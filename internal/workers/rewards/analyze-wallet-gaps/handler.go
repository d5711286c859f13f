// internal/workers/rewards/analyze-wallet-gaps/handler.go
package analyzewalletgaps

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
	TaskType = "analyze-wallet-gaps"
)

type Analyzer interface {
	Analyze(ctx context.Context, userID int64) (*models.GapReport, error)
}

type Handler struct {
	config     *Config
	analyzer   Analyzer
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, analyzer Analyzer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		analyzer:   analyzer,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInputValidationFailedError("input cannot be nil")
	}
	if err := validation.Struct(input); err != nil {
		return nil, apperrors.NewInputValidationFailedError(err.Error())
	}

	report, err := h.analyzer.Analyze(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	output := &Output{
		Threshold:      report.Threshold,
		Coverage:       report.Coverage,
		Gaps:           report.Gaps,
		RedundantPairs: report.RedundantPairs,
		HasGaps:        len(report.Gaps) > 0,
	}
	// never null in process variables
	if output.Gaps == nil {
		output.Gaps = []models.CategoryCoverage{}
	}
	if output.RedundantPairs == nil {
		output.RedundantPairs = []models.RedundantPair{}
	}

	h.logger.Info("wallet analyzed", map[string]interface{}{
		"userId":         input.UserID,
		"gaps":           len(output.Gaps),
		"redundantPairs": len(output.RedundantPairs),
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
