package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/availability"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/instrumentation"
)

const maxRequestBody = 1 << 20

// AvailabilityFinder computes free slots. *availability.Service implements it.
type AvailabilityFinder interface {
	FindAvailability(ctx context.Context, req availability.Request) (*availability.Result, error)
}

// availabilityRequest is the JSON body of POST /meetings/availability.
type availabilityRequest struct {
	UserIDs   []string `json:"userIds"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	Duration  *int     `json:"duration"`
	TimeZone  string   `json:"timeZone"`
}

type availabilityHandler struct {
	finder AvailabilityFinder
	audit  *instrumentation.AuditLogger
	logger *slog.Logger
}

func (h *availabilityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body availabilityRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrorResponse{
			Error:   errCodeBadRequest,
			Message: "request body must be a JSON object",
		})
		return
	}

	req, verr := body.toRequest()
	if verr != nil {
		writeValidationError(w, r, verr)
		return
	}

	caller, _ := SubjectFromContext(r.Context())
	query := instrumentation.NewAvailabilityQuery(caller).
		WithWindow(req.UserIDs, req.Start, req.End, time.Duration(req.DurationMinutes)*time.Minute).
		WithSpanContext(r.Context())

	result, err := h.finder.FindAvailability(r.Context(), req)
	if err != nil {
		h.audit.LogQuery(r.Context(), query.CompleteWithError(err))
	} else {
		h.audit.LogQuery(r.Context(), query.CompleteSuccess(len(result.FreeSlots), failedSources(result)))
	}

	var validationErr *availability.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.As(err, &validationErr):
		writeValidationError(w, r, validationErr)
	case errors.Is(err, availability.ErrUnavailable):
		internalError(w, r, h.logger, errCodeUnavailable, err)
	default:
		internalError(w, r, h.logger, errCodeInternal, err)
	}
}

func (b availabilityRequest) toRequest() (availability.Request, *availability.ValidationError) {
	start, err := availability.ParseTimestamp(b.StartDate)
	if err != nil {
		return availability.Request{}, &availability.ValidationError{Field: "startDate", Reason: err.Error()}
	}
	end, err := availability.ParseTimestamp(b.EndDate)
	if err != nil {
		return availability.Request{}, &availability.ValidationError{Field: "endDate", Reason: err.Error()}
	}

	duration := availability.DefaultDurationMinutes
	if b.Duration != nil {
		duration = *b.Duration
	}

	return availability.Request{
		UserIDs:         b.UserIDs,
		Start:           start,
		End:             end,
		DurationMinutes: duration,
		TimeZone:        b.TimeZone,
	}, nil
}

func failedSources(result *availability.Result) int {
	n := 0
	for _, u := range result.Users {
		n += u.FailedSources
	}
	return n
}

func writeValidationError(w http.ResponseWriter, r *http.Request, verr *availability.ValidationError) {
	writeError(w, r, http.StatusBadRequest, ErrorResponse{
		Error:   errCodeValidation,
		Message: verr.Error(),
		Field:   verr.Field,
	})
}
