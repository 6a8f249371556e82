package types

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationInvalidLat, http.StatusBadRequest},
		{ErrCodeValidationInvalidHazard, http.StatusBadRequest},
		{ErrCodeInsufficientData, http.StatusNotFound},
		{ErrCodeUpstreamRateLimited, http.StatusTooManyRequests},
		{ErrCodeUpstreamTimeout, http.StatusBadGateway},
		{ErrCodeUpstreamInvalidResponse, http.StatusBadGateway},
		{ErrCodeUpstreamUnavailable, http.StatusBadGateway},
		{ErrCodeInternalCache, http.StatusInternalServerError},
		{ErrCodeInternalUnexpected, http.StatusInternalServerError},
		{ErrorCode("something_unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewAppError(ErrCodeUpstreamUnavailable, "provider unreachable", inner)

	assert.Equal(t, "upstream_unavailable: provider unreachable", err.Error())
	assert.True(t, errors.Is(err, inner))

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPStatus())
}

func TestAppErrorWithDetails(t *testing.T) {
	err := NewAppErrorWithDetails(ErrCodeValidationInvalidHazard, "unknown hazard", nil,
		map[string]any{"hazard": "volcano"})
	assert.Equal(t, "volcano", err.Details["hazard"])
}
