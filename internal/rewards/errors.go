// internal/rewards/errors.go
package rewards

import "errors"

var (
	ErrInvalidSpend            = errors.New("INVALID_SPEND")
	ErrNoActiveCards           = errors.New("NO_ACTIVE_CARDS")
	ErrNoApplicableRule        = errors.New("NO_APPLICABLE_RULE")
	ErrUnresolvedCategory      = errors.New("UNRESOLVED_CATEGORY")
	ErrCollaboratorUnavailable = errors.New("COLLABORATOR_UNAVAILABLE")
	ErrCardNotFound            = errors.New("CARD_NOT_FOUND")
	ErrUserNotFound            = errors.New("USER_NOT_FOUND")
	ErrInvalidInput            = errors.New("INVALID_INPUT")
)
