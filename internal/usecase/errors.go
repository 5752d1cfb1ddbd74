package usecase

import (
	"errors"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

const (
	CodeInvalidIdentity         = "INVALID_IDENTITY"
	CodeInvalidStep             = "INVALID_STEP"
	CodeThrottled               = "THROTTLED"
	CodeInvalidSignature        = "INVALID_SIGNATURE"
	CodeCollaboratorUnavailable = "COLLABORATOR_UNAVAILABLE"
	CodeForbidden               = "FORBIDDEN"
	CodeValidation              = "VALIDATION_ERROR"
	CodeInvalidToken            = "INVALID_TOKEN"
	CodeNotFound                = "NOT_FOUND"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeStorage                 = "STORAGE_ERROR"
)

type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

var (
	ErrThrottled        = &DomainError{Code: CodeThrottled, Message: "too many requests, please try again later"}
	ErrInvalidSignature = &DomainError{Code: CodeInvalidSignature, Message: "invalid webhook signature"}
)

// ErrorCode returns the machine readable code carried by err.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	switch {
	case errors.Is(err, entity.ErrInvalidIdentity):
		return CodeInvalidIdentity
	case errors.Is(err, entity.ErrInvalidStep):
		return CodeInvalidStep
	case errors.Is(err, entity.ErrForbidden):
		return CodeForbidden
	}
	var te *TechnicalError
	if errors.As(err, &te) {
		return te.Code
	}
	return "INTERNAL_ERROR"
}

func invalidIdentity(err error) error {
	return &DomainError{Code: CodeInvalidIdentity, Message: "valid email is required", Err: err}
}

func invalidStep(err error) error {
	return &DomainError{Code: CodeInvalidStep, Message: "invalid step number", Err: err}
}

func unavailable(what string, err error) error {
	return &DomainError{Code: CodeCollaboratorUnavailable, Message: what + " failed", Err: err}
}

func storageFailure(what string, err error) error {
	return &TechnicalError{Code: CodeStorage, Message: what, Err: err}
}
