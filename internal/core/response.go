package core

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"riskprofile/internal/types"
)

// APIResponse is the success envelope for all v1 endpoints.
type APIResponse struct {
	Data any `json:"data"`
}

// APIErrorResponse is the error envelope for all v1 endpoints.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code alongside the human message and
// the correlation ID for support lookups.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// JSON writes a success response with the standard envelope.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(APIResponse{Data: data}); err != nil {
		types.LoggerFromContext(r.Context()).Error("failed to encode response",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
		)
	}
}

// Error maps err to the standard error envelope. AppError values carry their
// own code and HTTP status; anything else becomes an opaque 500 so internal
// detail never leaks to clients.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := types.AsAppError(err)
	if !ok {
		appErr = types.NewAppError(types.ErrCodeInternalUnexpected, "an unexpected error occurred", err)
	}

	status := appErr.Code.HTTPStatus()
	if status >= 500 {
		types.LoggerFromContext(r.Context()).Error("request failed",
			slog.String("code", string(appErr.Code)),
			slog.String("error", appErr.Error()),
			slog.String("path", r.URL.Path),
		)
	}

	resp := APIErrorResponse{
		Error: ErrorDetail{
			Code:      string(appErr.Code),
			Message:   appErr.Message,
			Details:   appErr.Details,
			RequestID: types.GetRequestID(r.Context()),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if encodeErr := json.NewEncoder(w).Encode(resp); encodeErr != nil {
		types.LoggerFromContext(r.Context()).Error("failed to encode error response",
			slog.String("error", encodeErr.Error()),
		)
	}
}
