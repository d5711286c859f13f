// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"rewards-strategist/internal/rewards"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidSpend            ErrorCode = "INVALID_SPEND"
	ErrCodeNoActiveCards           ErrorCode = "NO_ACTIVE_CARDS"
	ErrCodeNoApplicableRule        ErrorCode = "NO_APPLICABLE_RULE"
	ErrCodeUnresolvedCategory      ErrorCode = "UNRESOLVED_CATEGORY"
	ErrCodeCardNotFound            ErrorCode = "CARD_NOT_FOUND"
	ErrCodeUserNotFound            ErrorCode = "USER_NOT_FOUND"
	ErrCodeInputValidationFailed   ErrorCode = "INPUT_VALIDATION_FAILED"
	ErrCodeCollaboratorUnavailable ErrorCode = "COLLABORATOR_UNAVAILABLE"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidSpendError creates a non-retryable spend validation error.
func NewInvalidSpendError(details string) *StandardError {
	return newError(ErrCodeInvalidSpend, "Spend amount must be a finite non-negative number", details, false)
}

// NewNoActiveCardsError creates a non-retryable empty wallet error.
func NewNoActiveCardsError(userID int64) *StandardError {
	return newError(ErrCodeNoActiveCards, "User has no active cards", fmt.Sprintf("userId: %d", userID), false)
}

func NewNoApplicableRuleError(details string) *StandardError {
	return newError(ErrCodeNoApplicableRule, "Card has no rule for the category", details, false)
}

func NewUnresolvedCategoryError(category string) *StandardError {
	return newError(ErrCodeUnresolvedCategory, "Category is not canonical", fmt.Sprintf("category: %s", category), false)
}

func NewCardNotFoundError(details string) *StandardError {
	return newError(ErrCodeCardNotFound, "Card not found", details, false)
}

func NewUserNotFoundError(details string) *StandardError {
	return newError(ErrCodeUserNotFound, "User not found", details, false)
}

// NewInputValidationFailedError creates a non-retryable job input error.
func NewInputValidationFailedError(details string) *StandardError {
	return newError(ErrCodeInputValidationFailed, "Job input validation failed", details, false)
}

// NewCollaboratorUnavailableError is retryable; engine callers fall back
// before this ever reaches a job.
func NewCollaboratorUnavailableError(err error) *StandardError {
	return newError(ErrCodeCollaboratorUnavailable, "Ranking collaborator unavailable", err.Error(), true)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true)
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(operation string) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database query timeout", fmt.Sprintf("operation: %s", operation), true)
}

func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert operation failed", err.Error(), true)
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return newError("BUSINESS_RULE_VIOLATION", message, details, false)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError("TIMEOUT_ERROR", fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError("RESOURCE_NOT_FOUND", fmt.Sprintf("Resource not found in %s", service), details, false)
}

func NewAuthenticationError(details string) *StandardError {
	return newError("AUTHENTICATION_ERROR", "Authentication failed", details, false)
}

// FromRewardsError classifies an engine error. Sentinels map to their
// business codes; deadline errors become query timeouts; anything else is
// treated as a failed store read.
func FromRewardsError(operation string, err error) *StandardError {
	var stdErr *StandardError
	switch {
	case err == nil:
		return nil
	case stderrors.As(err, &stdErr):
		return stdErr
	case stderrors.Is(err, rewards.ErrInvalidSpend):
		return NewInvalidSpendError(err.Error())
	case stderrors.Is(err, rewards.ErrNoActiveCards):
		return newError(ErrCodeNoActiveCards, "User has no active cards", err.Error(), false)
	case stderrors.Is(err, rewards.ErrNoApplicableRule):
		return NewNoApplicableRuleError(err.Error())
	case stderrors.Is(err, rewards.ErrUnresolvedCategory):
		return newError(ErrCodeUnresolvedCategory, "Category is not canonical", err.Error(), false)
	case stderrors.Is(err, rewards.ErrCardNotFound):
		return NewCardNotFoundError(err.Error())
	case stderrors.Is(err, rewards.ErrUserNotFound):
		return NewUserNotFoundError(err.Error())
	case stderrors.Is(err, rewards.ErrInvalidInput):
		return NewInputValidationFailedError(err.Error())
	case stderrors.Is(err, rewards.ErrCollaboratorUnavailable):
		return NewCollaboratorUnavailableError(err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return NewQueryTimeoutError(operation)
	default:
		return NewQueryExecutionFailedError(operation, err)
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidSpend:             "INVALID_SPEND",
	ErrCodeNoActiveCards:            "NO_ACTIVE_CARDS",
	ErrCodeNoApplicableRule:         "NO_APPLICABLE_RULE",
	ErrCodeUnresolvedCategory:       "UNRESOLVED_CATEGORY",
	ErrCodeCardNotFound:             "CARD_NOT_FOUND",
	ErrCodeUserNotFound:             "USER_NOT_FOUND",
	ErrCodeInputValidationFailed:    "INPUT_VALIDATION_FAILED",
	ErrCodeCollaboratorUnavailable:  "COLLABORATOR_UNAVAILABLE",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:     "QUERY_EXECUTION_FAILED",
	ErrCodeQueryTimeout:             "QUERY_EXECUTION_FAILED",
	ErrCodeDatabaseInsertFailed:     "DATABASE_INSERT_FAILED",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed:
		return 3

	case ErrCodeQueryTimeout:
		return 2

	case ErrCodeCollaboratorUnavailable:
		return 1

	default:
		return 0 // business errors
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "COLLABORATOR"):
		return "COLLABORATOR"
	case strings.Contains(codeStr, "SPEND") || strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "CATEGORY"):
		return "VALIDATION"
	case strings.Contains(codeStr, "CARD") || strings.Contains(codeStr, "RULE") || strings.Contains(codeStr, "USER"):
		return "WALLET"
	default:
		return "OTHER"
	}
}
