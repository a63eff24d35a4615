// Package errors provides unified error handling for the governance engine.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code.
type ErrorCode string

const (
	// Validation errors (3xxx) — caller-recoverable, never logged as warnings.
	ErrCodeInvalidDeclaration ErrorCode = "VAL_3001"
	ErrCodeInvalidTransition  ErrorCode = "VAL_3002"

	// Resource errors (4xxx)
	ErrCodeNotFound         ErrorCode = "RES_4001"
	ErrCodeDuplicateProject ErrorCode = "RES_4002"

	// Governance errors (8xxx) — project/policy state, not transport failures.
	ErrCodeProjectBlocked  ErrorCode = "GOV_8001"
	ErrCodePolicyViolation ErrorCode = "GOV_8002"

	// Infrastructure errors (5xxx) — retryable with backoff.
	ErrCodeStorageUnavailable ErrorCode = "SVC_5001"
	ErrCodeAuditFailure       ErrorCode = "SVC_5002"

	// LLM Gateway provider errors (9xxx)
	ErrCodeUnavailableProvider ErrorCode = "PROV_9001"
	ErrCodeModelUnknown        ErrorCode = "PROV_9002"
	ErrCodeProviderTimeout     ErrorCode = "PROV_9003"
	ErrCodeProviderError       ErrorCode = "PROV_9004"
)

// ServiceError represents a structured error with code, message, and HTTP status.
type ServiceError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails adds additional details to the error.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new ServiceError.
func New(code ErrorCode, message string, httpStatus int) *ServiceError {
	return &ServiceError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an existing error with a ServiceError.
func Wrap(code ErrorCode, message string, httpStatus int, err error) *ServiceError {
	return &ServiceError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// InvalidDeclaration reports a malformed dependency spec or an unparseable
// version constraint.
func InvalidDeclaration(reason string) *ServiceError {
	return New(ErrCodeInvalidDeclaration, "invalid dependency declaration", http.StatusBadRequest).
		WithDetails("reason", reason)
}

// InvalidTransition reports a lifecycle transition not present in the
// adjacency set for the current status.
func InvalidTransition(from, to string) *ServiceError {
	return New(ErrCodeInvalidTransition, "illegal state transition", http.StatusConflict).
		WithDetails("from", from).
		WithDetails("to", to)
}

// NotFound reports a missing entity of the given kind.
func NotFound(resource, id string) *ServiceError {
	return New(ErrCodeNotFound, "resource not found", http.StatusNotFound).
		WithDetails("resource", resource).
		WithDetails("id", id)
}

// DuplicateProject reports a create_project call against an existing name.
func DuplicateProject(name string) *ServiceError {
	return New(ErrCodeDuplicateProject, "project already exists", http.StatusConflict).
		WithDetails("name", name)
}

// ProjectBlocked reports a mutating operation refused because the project
// is in the BLOCKED status; report carries the blocking conflict payload.
func ProjectBlocked(projectID string, report interface{}) *ServiceError {
	return New(ErrCodeProjectBlocked, "project is blocked", http.StatusConflict).
		WithDetails("project_id", projectID).
		WithDetails("report", report)
}

// PolicyViolation reports a Secure Gateway veto: no allowed+healthy provider
// intersection, or an audit write failure under strict_audit.
func PolicyViolation(policy, reason string) *ServiceError {
	return New(ErrCodePolicyViolation, "policy violation", http.StatusForbidden).
		WithDetails("policy", policy).
		WithDetails("reason", reason)
}

// StorageUnavailable wraps a backend I/O failure; callers must abort the
// surrounding operation without state change.
func StorageUnavailable(operation string, err error) *ServiceError {
	return Wrap(ErrCodeStorageUnavailable, "storage backend unavailable", http.StatusServiceUnavailable, err).
		WithDetails("operation", operation)
}

// AuditFailure reports a non-durable audit append.
func AuditFailure(organization string, err error) *ServiceError {
	return Wrap(ErrCodeAuditFailure, "audit append failed", http.StatusServiceUnavailable, err).
		WithDetails("organization", organization)
}

// UnavailableProvider reports that no configured provider could serve the request.
func UnavailableProvider(provider string) *ServiceError {
	return New(ErrCodeUnavailableProvider, "provider unavailable", http.StatusServiceUnavailable).
		WithDetails("provider", provider)
}

// ModelUnknown reports a model name with no mapping for the target provider.
func ModelUnknown(model string) *ServiceError {
	return New(ErrCodeModelUnknown, "model unknown", http.StatusBadRequest).
		WithDetails("model", model)
}

// ProviderTimeout reports a dispatch that exceeded the configured request timeout.
func ProviderTimeout(provider string) *ServiceError {
	return New(ErrCodeProviderTimeout, "provider request timed out", http.StatusGatewayTimeout).
		WithDetails("provider", provider)
}

// ProviderError wraps an error returned by the provider itself.
func ProviderError(provider string, err error) *ServiceError {
	return Wrap(ErrCodeProviderError, "provider error", http.StatusBadGateway, err).
		WithDetails("provider", provider)
}

// Helper functions

// IsServiceError checks if an error is a ServiceError.
func IsServiceError(err error) bool {
	var serviceErr *ServiceError
	return errors.As(err, &serviceErr)
}

// GetServiceError extracts a ServiceError from an error chain.
func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return nil
}

// GetHTTPStatus returns the HTTP status code for an error.
func GetHTTPStatus(err error) int {
	if serviceErr := GetServiceError(err); serviceErr != nil {
		return serviceErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Is reports whether err carries the given ErrorCode, matching the
// error-code-based dispatch pattern of errors.As.
func Is(err error, code ErrorCode) bool {
	if se := GetServiceError(err); se != nil {
		return se.Code == code
	}
	return false
}
