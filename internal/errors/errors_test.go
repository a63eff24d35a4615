package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestServiceError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ServiceError
		want string
	}{
		{
			name: "error without underlying error",
			err:  New(ErrCodeNotFound, "test message", http.StatusNotFound),
			want: "[RES_4001] test message",
		},
		{
			name: "error with underlying error",
			err:  Wrap(ErrCodeStorageUnavailable, "test message", http.StatusServiceUnavailable, errors.New("underlying")),
			want: "[SVC_5001] test message: underlying",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestServiceError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(ErrCodeStorageUnavailable, "test", http.StatusServiceUnavailable, underlying)

	if got := err.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}
}

func TestServiceError_WithDetails(t *testing.T) {
	err := New(ErrCodeInvalidDeclaration, "test", http.StatusBadRequest)
	err.WithDetails("field", "constraint").WithDetails("reason", "unparseable")

	if len(err.Details) != 2 {
		t.Errorf("Details length = %d, want 2", len(err.Details))
	}

	if err.Details["field"] != "constraint" {
		t.Errorf("Details[field] = %v, want constraint", err.Details["field"])
	}
}

func TestInvalidDeclaration(t *testing.T) {
	err := InvalidDeclaration("unparseable constraint")

	if err.Code != ErrCodeInvalidDeclaration {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidDeclaration)
	}
	if err.HTTPStatus != http.StatusBadRequest {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusBadRequest)
	}
	if err.Details["reason"] != "unparseable constraint" {
		t.Errorf("Details[reason] = %v, want unparseable constraint", err.Details["reason"])
	}
}

func TestInvalidTransition(t *testing.T) {
	err := InvalidTransition("INITIALIZED", "COMPLETED")

	if err.Code != ErrCodeInvalidTransition {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidTransition)
	}
	if err.HTTPStatus != http.StatusConflict {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusConflict)
	}
	if err.Details["from"] != "INITIALIZED" || err.Details["to"] != "COMPLETED" {
		t.Errorf("Details = %v, want from/to populated", err.Details)
	}
}

func TestNotFound(t *testing.T) {
	err := NotFound("project", "123")

	if err.Code != ErrCodeNotFound {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNotFound)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusNotFound)
	}
	if err.Details["resource"] != "project" || err.Details["id"] != "123" {
		t.Errorf("Details = %v, want resource/id populated", err.Details)
	}
}

func TestDuplicateProject(t *testing.T) {
	err := DuplicateProject("acme-rollout")

	if err.Code != ErrCodeDuplicateProject {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeDuplicateProject)
	}
	if err.HTTPStatus != http.StatusConflict {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusConflict)
	}
}

func TestProjectBlocked(t *testing.T) {
	report := map[string]int{"conflicts": 1}
	err := ProjectBlocked("proj-1", report)

	if err.Code != ErrCodeProjectBlocked {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeProjectBlocked)
	}
	if err.Details["project_id"] != "proj-1" {
		t.Errorf("Details[project_id] = %v, want proj-1", err.Details["project_id"])
	}
	if err.Details["report"] == nil {
		t.Errorf("Details[report] missing")
	}
}

func TestPolicyViolation(t *testing.T) {
	err := PolicyViolation("compliance_local_only", "no healthy local provider")

	if err.Code != ErrCodePolicyViolation {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodePolicyViolation)
	}
	if err.HTTPStatus != http.StatusForbidden {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusForbidden)
	}
}

func TestStorageUnavailable(t *testing.T) {
	underlying := errors.New("connection refused")
	err := StorageUnavailable("put", underlying)

	if err.Code != ErrCodeStorageUnavailable {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeStorageUnavailable)
	}
	if err.Err != underlying {
		t.Errorf("Err = %v, want %v", err.Err, underlying)
	}
	if err.Details["operation"] != "put" {
		t.Errorf("Details[operation] = %v, want put", err.Details["operation"])
	}
}

func TestAuditFailure(t *testing.T) {
	underlying := errors.New("disk full")
	err := AuditFailure("acme", underlying)

	if err.Code != ErrCodeAuditFailure {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeAuditFailure)
	}
	if err.Details["organization"] != "acme" {
		t.Errorf("Details[organization] = %v, want acme", err.Details["organization"])
	}
}

func TestUnavailableProvider(t *testing.T) {
	err := UnavailableProvider("local")

	if err.Code != ErrCodeUnavailableProvider {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeUnavailableProvider)
	}
	if err.HTTPStatus != http.StatusServiceUnavailable {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusServiceUnavailable)
	}
}

func TestModelUnknown(t *testing.T) {
	err := ModelUnknown("gpt-ghost")

	if err.Code != ErrCodeModelUnknown {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeModelUnknown)
	}
	if err.HTTPStatus != http.StatusBadRequest {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusBadRequest)
	}
}

func TestProviderTimeout(t *testing.T) {
	err := ProviderTimeout("cloud")

	if err.Code != ErrCodeProviderTimeout {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeProviderTimeout)
	}
	if err.HTTPStatus != http.StatusGatewayTimeout {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusGatewayTimeout)
	}
}

func TestProviderError(t *testing.T) {
	underlying := errors.New("rate limited")
	err := ProviderError("cloud", underlying)

	if err.Code != ErrCodeProviderError {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeProviderError)
	}
	if err.Err != underlying {
		t.Errorf("Err = %v, want %v", err.Err, underlying)
	}
}

func TestIsServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "service error",
			err:  New(ErrCodeStorageUnavailable, "test", http.StatusServiceUnavailable),
			want: true,
		},
		{
			name: "standard error",
			err:  errors.New("standard error"),
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsServiceError(tt.err); got != tt.want {
				t.Errorf("IsServiceError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetServiceError(t *testing.T) {
	serviceErr := New(ErrCodeStorageUnavailable, "test", http.StatusServiceUnavailable)
	standardErr := errors.New("standard error")

	tests := []struct {
		name string
		err  error
		want *ServiceError
	}{
		{name: "service error", err: serviceErr, want: serviceErr},
		{name: "standard error", err: standardErr, want: nil},
		{name: "nil error", err: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetServiceError(tt.err)
			if got != tt.want {
				t.Errorf("GetServiceError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "service error",
			err:  New(ErrCodeNotFound, "test", http.StatusNotFound),
			want: http.StatusNotFound,
		},
		{
			name: "standard error",
			err:  errors.New("standard error"),
			want: http.StatusInternalServerError,
		},
		{
			name: "nil error",
			err:  nil,
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetHTTPStatus(tt.err); got != tt.want {
				t.Errorf("GetHTTPStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := NotFound("project", "1")
	if !Is(err, ErrCodeNotFound) {
		t.Errorf("Is() = false, want true")
	}
	if Is(err, ErrCodeAuditFailure) {
		t.Errorf("Is() = true, want false")
	}
	if Is(errors.New("plain"), ErrCodeNotFound) {
		t.Errorf("Is() on plain error = true, want false")
	}
}
