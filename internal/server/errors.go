package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/logging"
)

// Error codes returned in the "error" field.
const (
	errCodeValidation   = "validation_error"
	errCodeBadRequest   = "bad_request"
	errCodeUnauthorized = "unauthorized"
	errCodeRateLimited  = "rate_limit_exceeded"
	errCodeUnavailable  = "unavailable"
	errCodeInternal     = "internal_error"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, resp ErrorResponse) {
	resp.RequestID = middleware.GetReqID(r.Context())
	writeJSON(w, status, resp)
}

// internalError logs err with the request id and returns a generic message.
func internalError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, code string, err error) {
	reqID := middleware.GetReqID(r.Context())
	logger.Error("request failed",
		logging.RequestID(reqID),
		slog.String("path", r.URL.Path),
		logging.Err(err))

	message := "internal server error"
	if code == errCodeUnavailable {
		message = "calendar connection store is unavailable"
	}
	writeError(w, r, http.StatusInternalServerError, ErrorResponse{Error: code, Message: message})
}
