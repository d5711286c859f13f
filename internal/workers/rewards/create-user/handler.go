// internal/workers/rewards/create-user/handler.go
package createuser

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
	TaskType = "create-user"
)

type UserStore interface {
	CreateUser(ctx context.Context, in postgres.NewUser) (*models.User, error)
}

type Handler struct {
	config     *Config
	users      UserStore
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, users UserStore, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		users:      users,
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

	pref, _ := models.ParsePreference(input.Preference)
	user, err := h.users.CreateUser(ctx, postgres.NewUser{
		Name:       input.Name,
		Preference: string(pref.OrBalanced()),
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("user created", map[string]interface{}{
		"userId":     user.ID,
		"preference": string(user.Preference),
	})
	return &Output{User: *user}, nil
}
