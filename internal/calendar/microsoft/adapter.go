// Package microsoft implements the calendar adapter for Microsoft Graph
// (Outlook / Microsoft 365 calendars).
package microsoft

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar"
)

const (
	// DefaultBaseURL is the Microsoft Graph v1.0 endpoint.
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"

	// graphTimeLayout is the dateTime format Graph uses inside dateTimeTimeZone
	// objects. Fractional seconds ("...:00.0000000") are accepted when parsing.
	graphTimeLayout = "2006-01-02T15:04:05"

	pageSize = 250

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 4 << 10
)

// Adapter lists busy periods from Microsoft Graph calendarView.
type Adapter struct {
	baseURL    string
	httpClient *http.Client
}

// NewAdapter creates a Microsoft Graph adapter. An empty baseURL selects
// DefaultBaseURL; a nil httpClient selects http.DefaultClient.
func NewAdapter(baseURL string, httpClient *http.Client) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Adapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Provider implements calendar.Adapter.
func (a *Adapter) Provider() calendar.Provider {
	return calendar.ProviderMicrosoft
}

type dateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphEvent struct {
	Start       dateTimeTimeZone `json:"start"`
	End         dateTimeTimeZone `json:"end"`
	IsAllDay    bool             `json:"isAllDay"`
	IsCancelled bool             `json:"isCancelled"`
	ShowAs      string           `json:"showAs"`
}

type calendarViewPage struct {
	Value    []graphEvent `json:"value"`
	NextLink string       `json:"@odata.nextLink"`
}

type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchBusyPeriods reads the calendar view for [start, end), following
// @odata.nextLink, and returns the events that block time.
func (a *Adapter) FetchBusyPeriods(ctx context.Context, accessToken, calendarID string, start, end time.Time) ([]calendar.BusyInterval, error) {
	next := a.calendarViewURL(calendarID, start, end)

	var busy []calendar.BusyInterval
	for next != "" {
		page, err := a.fetchPage(ctx, accessToken, calendarID, next)
		if err != nil {
			return nil, err
		}
		for _, ev := range page.Value {
			iv, ok := toBusyInterval(ev)
			if !ok {
				continue
			}
			if iv, ok = iv.Clip(start, end); ok {
				busy = append(busy, iv)
			}
		}
		next = page.NextLink
	}

	return busy, nil
}

func (a *Adapter) calendarViewURL(calendarID string, start, end time.Time) string {
	path := "/me/calendarView"
	if calendarID != calendar.DefaultCalendarID {
		path = "/me/calendars/" + url.PathEscape(calendarID) + "/calendarView"
	}

	params := url.Values{}
	params.Set("startDateTime", start.UTC().Format(time.RFC3339))
	params.Set("endDateTime", end.UTC().Format(time.RFC3339))
	params.Set("$select", "start,end,isAllDay,isCancelled,showAs")
	params.Set("$top", fmt.Sprintf("%d", pageSize))

	return a.baseURL + path + "?" + params.Encode()
}

func (a *Adapter) fetchPage(ctx context.Context, accessToken, calendarID, pageURL string) (*calendarViewPage, error) {
	fail := func(status int, err error) error {
		return &calendar.ProviderFetchError{
			Provider:   calendar.ProviderMicrosoft,
			CalendarID: calendarID,
			HTTPStatus: status,
			Err:        err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fail(0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", `outlook.timezone="UTC"`)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var gerr graphError
		if json.Unmarshal(body, &gerr) == nil && gerr.Error.Code != "" {
			return nil, fail(resp.StatusCode, fmt.Errorf("%s: %s", gerr.Error.Code, gerr.Error.Message))
		}
		return nil, fail(resp.StatusCode, nil)
	}

	var page calendarViewPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fail(resp.StatusCode, fmt.Errorf("failed to decode calendar view: %w", err))
	}
	return &page, nil
}

// toBusyInterval converts a Graph event. Cancelled events and events shown as
// "free" are skipped; "tentative", "busy", "oof" and "workingElsewhere" block time.
//
// All-day events need no special handling: Graph reports them as local
// midnight to the next local midnight in the event's zone, already converted
// to the zone named in the Prefer header.
func toBusyInterval(ev graphEvent) (calendar.BusyInterval, bool) {
	if ev.IsCancelled || strings.EqualFold(ev.ShowAs, "free") {
		return calendar.BusyInterval{}, false
	}

	start, err := parseDateTime(ev.Start)
	if err != nil {
		return calendar.BusyInterval{}, false
	}
	end, err := parseDateTime(ev.End)
	if err != nil {
		return calendar.BusyInterval{}, false
	}
	if !end.After(start) {
		return calendar.BusyInterval{}, false
	}

	return calendar.BusyInterval{Start: start.UTC(), End: end.UTC()}, true
}

// parseDateTime interprets a Graph dateTimeTimeZone. Zones Go cannot load
// (Windows zone names) fall back to UTC, which is what the Prefer header asks for.
func parseDateTime(dt dateTimeTimeZone) (time.Time, error) {
	loc := time.UTC
	if dt.TimeZone != "" && !strings.EqualFold(dt.TimeZone, "UTC") {
		if l, err := time.LoadLocation(dt.TimeZone); err == nil {
			loc = l
		}
	}
	return time.ParseInLocation(graphTimeLayout, dt.DateTime, loc)
}
