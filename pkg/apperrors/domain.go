package apperrors

import (
	"net/http"
)

// Factories and predefined variables for domain errors.

// ErrNotFound converts a repository not-found error into a 404.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrAlreadyExists converts a uniqueness violation into a 409.
func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

// ErrConflict is the generic conflict factory (409).
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrInvalidOperation builds a 400 for operations the domain forbids.
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// ErrQuotaExceeded is the expected, user-visible "plan limit reached"
// outcome of an admission check. Not a system fault.
var ErrQuotaExceeded = New(
	CodeQuotaExceeded,
	"quota",
	"Plan token limit reached for the current period. Upgrade your plan or wait for the next period.",
	http.StatusTooManyRequests,
)

// ErrStorageUnavailable marks a retryable infrastructure failure. Admission
// checks treat it as "cannot verify quota" and deny the costly operation.
func ErrStorageUnavailable(err error) *AppError {
	return Wrap(err, CodeStorageUnavailable, "quota", "Quota storage unavailable, try again later", http.StatusServiceUnavailable)
}

// ErrUpstreamProvider wraps a failed AI completion call (502).
func ErrUpstreamProvider(err error) *AppError {
	return Wrap(err, CodeExternalServiceError, "ai", "Upstream AI provider request failed", http.StatusBadGateway)
}

// ErrInvalidCredentials is returned on login with a wrong email/password pair.
var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)
