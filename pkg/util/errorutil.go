package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

// NewConflict signals serialization contention. Retryable by the caller.
func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewInvalidTransition signals an illegal state change. Always carries the
// current and attempted statuses so the caller can explain the rejection.
func NewInvalidTransition(current, attempted string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	details["current_status"] = current
	details["attempted_status"] = attempted
	return NewDomainError("INVALID_TRANSITION",
		fmt.Sprintf("transition from %s to %s is not allowed", current, attempted),
		http.StatusUnprocessableEntity, details)
}

// Per-record ingestion rejections. Isolated to one record, never abort a batch.

func NewMalformedTimestamp(field, value string) error {
	return NewDomainError("MALFORMED_TIMESTAMP",
		fmt.Sprintf("cannot parse %s value %q", field, value),
		http.StatusBadRequest, map[string]any{"field": field, "value": value})
}

func NewUnknownClassification(field, value string) error {
	return NewDomainError("UNKNOWN_CLASSIFICATION",
		fmt.Sprintf("unknown %s value %q", field, value),
		http.StatusBadRequest, map[string]any{"field": field, "value": value})
}

func NewMissingRequiredField(field string) error {
	return NewDomainError("MISSING_REQUIRED_FIELD",
		fmt.Sprintf("%s is required", field),
		http.StatusBadRequest, map[string]any{"field": field})
}

// NewConfigurationInvalid rejects an SLA configuration write. Never persisted.
func NewConfigurationInvalid(message string, details map[string]any) error {
	return NewDomainError("CONFIGURATION_INVALID", message, http.StatusBadRequest, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// IsCode reports whether err is a DomainError carrying the given code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
