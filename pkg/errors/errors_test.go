package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrInvalidVideoURL, http.StatusBadRequest},
		{fmt.Errorf("fetching: %w", ErrCommentsDisabled), http.StatusForbidden},
		{ErrVideoNotFound, http.StatusNotFound},
		{ErrRateLimited, http.StatusTooManyRequests},
		{fmt.Errorf("list: %w", ErrUpstream), http.StatusBadGateway},
		{ErrModelUnavailable, http.StatusServiceUnavailable},
		{ErrTimeout, http.StatusGatewayTimeout},
		{ErrInference, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
		{New(ErrInternal, http.StatusTeapot, "custom"), http.StatusTeapot},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatusCode(tt.err), tt.err.Error())
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrUpstream, http.StatusBadGateway, "status %d", 500)
	assert.True(t, errors.Is(err, ErrUpstream))
	assert.Equal(t, "upstream request failed: status 500", err.Error())
}

func TestKind(t *testing.T) {
	assert.Equal(t, "ok", Kind(nil))
	assert.Equal(t, "comments_disabled", Kind(fmt.Errorf("x: %w", ErrCommentsDisabled)))
	assert.Equal(t, "model_unavailable", Kind(ErrModelUnavailable))
	assert.Equal(t, "internal", Kind(errors.New("other")))
}
