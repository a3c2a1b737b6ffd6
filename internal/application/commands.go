package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/go-playground/validator/v10"
)

type Action string

const (
	ActionBlock       Action = "block"
	ActionUnblock     Action = "unblock"
	ActionCheckStatus Action = "check_status"
)

const (
	defaultAdministrator = "admin"
	defaultBlockReason   = "Manual block"
	defaultUnblockReason = "Manual unblock"
	expiredUnblockReason = "Block expired"
	protectionReason     = "Administrative protection expired"
	reconcileReason      = "Pending deny removal retried"
)

// RawCommand is the wire shape of an administrative command.
type RawCommand struct {
	Action      string     `json:"action" validate:"required,oneof=block unblock check_status"`
	AccountID   string     `json:"account_id" validate:"required,max=256"`
	Reason      string     `json:"reason,omitempty" validate:"max=1024"`
	PerformedBy string     `json:"performed_by,omitempty" validate:"max=256"`
	Duration    string     `json:"duration,omitempty" validate:"omitempty,oneof=1day 30days 90days indefinite custom"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Command is one of BlockRequest, UnblockRequest or StatusRequest.
type Command interface {
	Account() domain.AccountID
	command()
}

type BlockRequest struct {
	AccountID   domain.AccountID
	Reason      string
	PerformedBy string
	Duration    domain.BlockDuration
	ExpiresAt   *time.Time
}

type UnblockRequest struct {
	AccountID   domain.AccountID
	Reason      string
	PerformedBy string
}

type StatusRequest struct {
	AccountID domain.AccountID
}

func (r BlockRequest) Account() domain.AccountID   { return r.AccountID }
func (r UnblockRequest) Account() domain.AccountID { return r.AccountID }
func (r StatusRequest) Account() domain.AccountID  { return r.AccountID }

func (BlockRequest) command()   {}
func (UnblockRequest) command() {}
func (StatusRequest) command()  {}

// UsageEvent is delivered by the ingestion collaborator for every metered
// request.
type UsageEvent struct {
	AccountID string    `json:"account_id" validate:"required,max=256"`
	Timestamp time.Time `json:"timestamp"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseCommand validates raw and narrows it to a typed request. Every error
// wraps domain.ErrInvalidTransitionRequest.
func ParseCommand(raw RawCommand) (Command, error) {
	raw.Action = strings.ToLower(strings.TrimSpace(raw.Action))
	raw.AccountID = strings.TrimSpace(raw.AccountID)
	raw.Duration = strings.ToLower(strings.TrimSpace(raw.Duration))

	if err := validate.Struct(raw); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidTransitionRequest, describeValidation(err))
	}

	id := domain.AccountID(raw.AccountID)
	switch Action(raw.Action) {
	case ActionBlock:
		duration := domain.BlockDuration(raw.Duration)
		if duration == "" && raw.ExpiresAt != nil {
			duration = domain.DurationCustom
		}
		duration, err := domain.ParseBlockDuration(string(duration))
		if err != nil {
			return nil, err
		}
		if duration == domain.DurationCustom && raw.ExpiresAt == nil {
			return nil, fmt.Errorf("%w: custom duration requires expires_at", domain.ErrInvalidTransitionRequest)
		}
		if duration != domain.DurationCustom {
			raw.ExpiresAt = nil
		}
		return BlockRequest{
			AccountID:   id,
			Reason:      orDefault(raw.Reason, defaultBlockReason),
			PerformedBy: orDefault(raw.PerformedBy, defaultAdministrator),
			Duration:    duration,
			ExpiresAt:   raw.ExpiresAt,
		}, nil
	case ActionUnblock:
		return UnblockRequest{
			AccountID:   id,
			Reason:      orDefault(raw.Reason, defaultUnblockReason),
			PerformedBy: orDefault(raw.PerformedBy, defaultAdministrator),
		}, nil
	default:
		return StatusRequest{AccountID: id}, nil
	}
}

func describeValidation(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fieldName(fe.Field())))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", fieldName(fe.Field()), fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s exceeds %s characters", fieldName(fe.Field()), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", fieldName(fe.Field())))
		}
	}

	return strings.Join(parts, "; ")
}

func fieldName(field string) string {
	switch field {
	case "AccountID":
		return "account_id"
	case "PerformedBy":
		return "performed_by"
	case "ExpiresAt":
		return "expires_at"
	default:
		return strings.ToLower(field)
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
