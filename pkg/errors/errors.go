package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrDataIntegrity    = errors.New("corpus data integrity violation")
	ErrModelUnavailable = errors.New("sentiment model unavailable")
	ErrInference        = errors.New("inference failed")
	ErrInvalidVideoURL  = errors.New("invalid or unsupported youtube url")
	ErrCommentsDisabled = errors.New("comments are disabled for this video")
	ErrVideoNotFound    = errors.New("video not found")
	ErrUpstream         = errors.New("upstream request failed")
	ErrInvalidInput     = errors.New("invalid input")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
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

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidVideoURL), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrCommentsDisabled):
		return http.StatusForbidden
	case errors.Is(err, ErrVideoNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Kind returns a short stable label for err, used in metrics and events.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidVideoURL):
		return "invalid_url"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrCommentsDisabled):
		return "comments_disabled"
	case errors.Is(err, ErrVideoNotFound):
		return "video_not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrInference):
		return "inference"
	case errors.Is(err, ErrDataIntegrity):
		return "data_integrity"
	default:
		return "internal"
	}
}
