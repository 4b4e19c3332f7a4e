package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/resilience"
)

var (
	ErrItemNotFound   = errors.New("item not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrRetrieval      = errors.New("catalog retrieval failed")
	ErrIndexNotReady  = errors.New("prefix index not ready")
	ErrTimeout        = errors.New("operation timed out")
	ErrCacheDisabled  = errors.New("caching is disabled")
	ErrPublishFailure = errors.New("event publish failed")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Retrieval marks err as a record-store failure while keeping the cause in
// the chain.
func Retrieval(op string, err error) error {
	if errors.Is(err, ErrRetrieval) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrRetrieval, err)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrRetrieval), errors.Is(err, ErrTimeout), errors.Is(err, ErrIndexNotReady),
		errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, ErrCacheDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
