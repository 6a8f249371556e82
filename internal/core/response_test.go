package core

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskprofile/internal/types"
)

func TestJSONWrapsDataEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/assessments", nil)

	JSON(rec, req, http.StatusOK, map[string]string{"status": "ready"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Data["status"])
}

func TestErrorMapsAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/assessments", nil)
	req = req.WithContext(types.WithRequestID(req.Context(), "req-123"))

	Error(rec, req, types.NewAppError(types.ErrCodeInsufficientData, "no usable risk data for location", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeInsufficientData), resp.Error.Code)
	assert.Equal(t, "no usable risk data for location", resp.Error.Message)
	assert.Equal(t, "req-123", resp.Error.RequestID)
}

func TestErrorWrappedAppErrorUnwrapped(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/assessments", nil)

	inner := types.NewAppError(types.ErrCodeValidationInvalidLat, "latitude must be between -90 and 90", nil)
	Error(rec, req, errors.Join(errors.New("parse query"), inner))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorHidesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/assessments", nil)

	Error(rec, req, errors.New("pq: connection reset by peer"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeInternalUnexpected), resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "pq:")
}

func TestErrorIncludesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/assessments", nil)

	Error(rec, req, types.NewAppErrorWithDetails(
		types.ErrCodeValidationInvalidHazard,
		"unknown hazard type",
		nil,
		map[string]any{"hazard": "volcano"},
	))

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "volcano", details["hazard"])
}

func TestEscapeJSON(t *testing.T) {
	assert.Equal(t, `a\"b`, escapeJSON(`a"b`))
	assert.Equal(t, `line1\nline2`, escapeJSON("line1\nline2"))
	assert.Equal(t, `back\\slash`, escapeJSON(`back\slash`))
}
