package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/instrumentation"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/logging"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/store"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/token"
)

// ConnectionLister is the part of store.Store the service reads from.
type ConnectionLister interface {
	GetCalendarConnections(ctx context.Context, userID string) ([]calendar.CalendarConnection, error)
}

// TimeRange is a half-open [Start, End) range.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BusyPeriod is a merged busy interval attributed to its participant.
type BusyPeriod struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	UserID string    `json:"userId"`
}

// UserSummary reports one participant's calendar state.
type UserSummary struct {
	UserID               string      `json:"userId"`
	HasCalendarConnected bool        `json:"hasCalendarConnected"`
	CalendarConnections  int         `json:"calendarConnections"`
	BusySlots            []TimeRange `json:"busySlots"`
	FailedSources        int         `json:"failedSources"`
}

// Result is the outcome of an availability query. Times are expressed in the
// requested time zone.
type Result struct {
	FreeSlots   []TimeRange   `json:"freeSlots"`
	BusyPeriods []BusyPeriod  `json:"busyPeriods"`
	Users       []UserSummary `json:"users"`
}

// Service answers availability requests.
type Service struct {
	connections ConnectionLister
	tokens      *token.Manager
	aggregator  *Aggregator
	metrics     *instrumentation.Metrics
	logger      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMetrics records request outcomes.
func WithMetrics(metrics *instrumentation.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = metrics }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a Service.
func NewService(connections ConnectionLister, tokens *token.Manager, aggregator *Aggregator, opts ...ServiceOption) *Service {
	s := &Service{
		connections: connections,
		tokens:      tokens,
		aggregator:  aggregator,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindAvailability validates req, gathers every participant's busy intervals
// and resolves the common free slots.
//
// Errors are *ValidationError for bad input and ErrUnavailable when the
// connection store fails. Provider failures are reported per user in the
// result, never as an error.
func (s *Service) FindAvailability(ctx context.Context, req Request) (*Result, error) {
	began := time.Now()

	q, err := req.Validate()
	if err != nil {
		s.metrics.RecordAvailabilityRequest(ctx, instrumentation.StatusInvalid, len(req.UserIDs), 0, time.Since(began))
		return nil, err
	}

	ctx, span := instrumentation.StartAvailabilitySpan(ctx, len(q.UserIDs), int(q.Duration/time.Minute))
	defer span.End()

	users, err := s.gather(ctx, q)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.metrics.RecordAvailabilityRequest(ctx, instrumentation.StatusError, len(q.UserIDs), 0, time.Since(began))
		return nil, err
	}

	slots := Resolve(users, q.Start, q.End, q.Duration, q.Location)
	result := buildResult(users, slots, q.Location)

	span.SetAttributes(attribute.Int(instrumentation.SpanAttrSlotCount, len(slots)))
	instrumentation.SetSpanSuccess(span)
	s.metrics.RecordAvailabilityRequest(ctx, instrumentation.StatusSuccess, len(q.UserIDs), len(slots), time.Since(began))

	s.logger.Debug("availability computed",
		logging.Operation("find_availability"),
		slog.Int("users", len(q.UserIDs)),
		slog.Int("free_slots", len(slots)),
		logging.Duration(time.Since(began)))

	return result, nil
}

// gather runs one task per participant. Token refreshes are shared within
// this call only.
func (s *Service) gather(ctx context.Context, q Query) ([]calendar.UserAvailability, error) {
	session := s.tokens.NewSession()
	users := make([]calendar.UserAvailability, len(q.UserIDs))

	g, gctx := errgroup.WithContext(ctx)
	for i, userID := range q.UserIDs {
		g.Go(func() error {
			conns, err := s.connections.GetCalendarConnections(gctx, userID)
			if errors.Is(err, store.ErrNotFound) {
				conns, err = nil, nil
			}
			if err != nil {
				s.logger.Error("failed to load calendar connections",
					logging.UserHash(userID), logging.Err(err))
				return fmt.Errorf("%w: %w", ErrUnavailable, err)
			}
			users[i] = s.aggregator.Aggregate(gctx, userID, conns, session, q.Start, q.End)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return users, nil
}

func buildResult(users []calendar.UserAvailability, slots []calendar.FreeSlot, loc *time.Location) *Result {
	result := &Result{
		FreeSlots:   make([]TimeRange, 0, len(slots)),
		BusyPeriods: []BusyPeriod{},
		Users:       make([]UserSummary, 0, len(users)),
	}

	for _, slot := range slots {
		result.FreeSlots = append(result.FreeSlots, TimeRange{Start: slot.Start.In(loc), End: slot.End.In(loc)})
	}

	for _, u := range users {
		summary := UserSummary{
			UserID:               u.UserID,
			HasCalendarConnected: u.HasCalendarConnected,
			CalendarConnections:  u.ConnectionCount,
			BusySlots:            make([]TimeRange, 0, len(u.Busy)),
			FailedSources:        u.FailedSources,
		}
		for _, b := range u.Busy {
			start, end := b.Start.In(loc), b.End.In(loc)
			summary.BusySlots = append(summary.BusySlots, TimeRange{Start: start, End: end})
			result.BusyPeriods = append(result.BusyPeriods, BusyPeriod{Start: start, End: end, UserID: u.UserID})
		}
		result.Users = append(result.Users, summary)
	}
	return result
}
