// Package google implements the calendar adapter for the Google Calendar v3 API.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar"
)

const (
	primaryCalendarID = "primary"

	// allDayLayout is the format of EventDateTime.Date.
	allDayLayout = "2006-01-02"

	// pageSize is the maximum number of events Google returns per page.
	pageSize = 2500
)

// Adapter lists busy periods from Google Calendar.
type Adapter struct {
	httpClient *http.Client
	opts       []option.ClientOption
}

// NewAdapter creates a Google adapter. httpClient is the base transport used
// underneath the bearer token; it may be nil. Extra client options are
// appended when building the Calendar service (tests use option.WithEndpoint).
func NewAdapter(httpClient *http.Client, opts ...option.ClientOption) *Adapter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Adapter{
		httpClient: httpClient,
		opts:       opts,
	}
}

// Provider implements calendar.Adapter.
func (a *Adapter) Provider() calendar.Provider {
	return calendar.ProviderGoogle
}

// FetchBusyPeriods lists expanded single events in [start, end) and returns
// those that block time, sorted by start.
func (a *Adapter) FetchBusyPeriods(ctx context.Context, accessToken, calendarID string, start, end time.Time) ([]calendar.BusyInterval, error) {
	if calendarID == calendar.DefaultCalendarID {
		calendarID = primaryCalendarID
	}

	svc, err := a.service(ctx, accessToken)
	if err != nil {
		return nil, &calendar.ProviderFetchError{Provider: calendar.ProviderGoogle, CalendarID: calendarID, Err: err}
	}

	call := svc.Events.List(calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		ShowDeleted(false).
		MaxResults(pageSize).
		Fields("nextPageToken", "timeZone", "items(status,transparency,start,end)")

	var busy []calendar.BusyInterval
	err = call.Pages(ctx, func(page *gcal.Events) error {
		loc := loadLocation(page.TimeZone)
		for _, ev := range page.Items {
			iv, ok := toBusyInterval(ev, loc)
			if !ok {
				continue
			}
			if iv, ok = iv.Clip(start, end); ok {
				busy = append(busy, iv)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fetchError(calendarID, err)
	}

	return busy, nil
}

func (a *Adapter) service(ctx context.Context, accessToken string) (*gcal.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, a.httpClient), ts)

	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, a.opts...)
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return svc, nil
}

func fetchError(calendarID string, err error) error {
	fe := &calendar.ProviderFetchError{
		Provider:   calendar.ProviderGoogle,
		CalendarID: calendarID,
		Err:        err,
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		fe.HTTPStatus = gerr.Code
	}
	return fe
}

// toBusyInterval converts a Google event. Cancelled events, events marked
// "transparent" (shown as available) and events with unparseable times are skipped.
func toBusyInterval(ev *gcal.Event, calendarLoc *time.Location) (calendar.BusyInterval, bool) {
	if ev == nil || ev.Start == nil || ev.End == nil {
		return calendar.BusyInterval{}, false
	}
	if ev.Status == "cancelled" || ev.Transparency == "transparent" {
		return calendar.BusyInterval{}, false
	}

	start, err := parseEventTime(ev.Start, calendarLoc)
	if err != nil {
		return calendar.BusyInterval{}, false
	}
	end, err := parseEventTime(ev.End, calendarLoc)
	if err != nil {
		return calendar.BusyInterval{}, false
	}
	if !end.After(start) {
		return calendar.BusyInterval{}, false
	}

	return calendar.BusyInterval{Start: start.UTC(), End: end.UTC()}, true
}

// parseEventTime handles both timed events (DateTime, RFC3339) and all-day
// events (Date), which start at local midnight of the event or calendar zone.
func parseEventTime(edt *gcal.EventDateTime, calendarLoc *time.Location) (time.Time, error) {
	if edt.DateTime != "" {
		return time.Parse(time.RFC3339, edt.DateTime)
	}
	if edt.Date != "" {
		loc := calendarLoc
		if edt.TimeZone != "" {
			loc = loadLocation(edt.TimeZone)
		}
		return time.ParseInLocation(allDayLayout, edt.Date, loc)
	}
	return time.Time{}, fmt.Errorf("event time has neither date nor dateTime")
}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
