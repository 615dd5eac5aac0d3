package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Every AppError wraps exactly one of these so callers can
// branch with errors.Is without caring about the message.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrAlreadyExists    = errors.New("resource already exists")
	ErrValidation       = errors.New("validation failed")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrNotASeller       = errors.New("not a seller")
	ErrNotVerified      = errors.New("seller not verified")
	ErrNotOwner         = errors.New("not the owner")
	ErrConflict         = errors.New("conflict")
	ErrIngestFailed     = errors.New("image ingest failed")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrRemoteService    = errors.New("remote service error")
	ErrRateLimited      = errors.New("rate limited")
	ErrInternal         = errors.New("internal error")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// causeError chains a sentinel with the underlying cause so that both
// errors.Is(err, sentinel) and errors.Is(err, cause) hold.
type causeError struct {
	sentinel error
	cause    error
}

func (c *causeError) Error() string   { return fmt.Sprintf("%v: %v", c.sentinel, c.cause) }
func (c *causeError) Unwrap() []error { return []error{c.sentinel, c.cause} }

func withCause(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return &causeError{sentinel: sentinel, cause: cause}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// Validation creates a 400 error.
func Validation(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrValidation,
	}
}

// Unauthenticated creates a 401 error.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHENTICATED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthenticated,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// NotASeller creates a 403 error for a subject without a seller record.
func NotASeller() *AppError {
	return &AppError{
		Code:    "NOT_A_SELLER",
		Message: "you are not registered as a seller",
		Status:  http.StatusForbidden,
		Err:     ErrNotASeller,
	}
}

// NotVerified creates a 403 error for a seller awaiting verification.
func NotVerified() *AppError {
	return &AppError{
		Code:    "NOT_VERIFIED",
		Message: "your seller account is not verified",
		Status:  http.StatusForbidden,
		Err:     ErrNotVerified,
	}
}

// NotOwner creates a 403 error for a mutation on another seller's resource.
func NotOwner(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_OWNER",
		Message: fmt.Sprintf("you can only modify your own %s; %s %s belongs to another seller", resource, resource, id),
		Status:  http.StatusForbidden,
		Err:     ErrNotOwner,
	}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// ImageIngestFailed creates a 502 error for an object storage upload failure.
func ImageIngestFailed(err error) *AppError {
	return &AppError{
		Code:    "IMAGE_INGEST_FAILED",
		Message: "the image could not be stored",
		Status:  http.StatusBadGateway,
		Err:     withCause(ErrIngestFailed, err),
	}
}

// StoreUnavailable creates a 503 error for data store failures.
func StoreUnavailable(err error) *AppError {
	return &AppError{
		Code:    "STORE_UNAVAILABLE",
		Message: "the data store is unavailable",
		Status:  http.StatusServiceUnavailable,
		Err:     withCause(ErrStoreUnavailable, err),
	}
}

// RemoteService creates a 502 error for a failed call to an external service.
func RemoteService(service string, err error) *AppError {
	return &AppError{
		Code:    "REMOTE_SERVICE_ERROR",
		Message: fmt.Sprintf("%s service request failed", service),
		Status:  http.StatusBadGateway,
		Err:     withCause(ErrRemoteService, err),
	}
}

// GenerationFailed is a RemoteService variant for the ad image generator.
func GenerationFailed(err error) *AppError {
	return &AppError{
		Code:    "GENERATION_FAILED",
		Message: "advertisement image generation failed",
		Status:  http.StatusBadGateway,
		Err:     withCause(ErrRemoteService, err),
	}
}

// RateLimited creates a 429 error.
func RateLimited() *AppError {
	return &AppError{
		Code:    "RATE_LIMITED",
		Message: "too many requests",
		Status:  http.StatusTooManyRequests,
		Err:     ErrRateLimited,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     withCause(ErrInternal, err),
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNotASeller),
		errors.Is(err, ErrNotVerified), errors.Is(err, ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, ErrIngestFailed), errors.Is(err, ErrRemoteService):
		return http.StatusBadGateway
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
