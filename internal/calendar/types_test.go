package calendar

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    Provider
		wantErr bool
	}{
		{in: "google", want: ProviderGoogle},
		{in: " Microsoft ", want: ProviderMicrosoft},
		{in: "outlook", want: ProviderMicrosoft},
		{in: "caldav", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProvider(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedProvider)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectedCalendarIDs(t *testing.T) {
	t.Run("no references uses default calendar", func(t *testing.T) {
		conn := CalendarConnection{}
		assert.Equal(t, []string{DefaultCalendarID}, conn.SelectedCalendarIDs())
	})

	t.Run("only selected references", func(t *testing.T) {
		conn := CalendarConnection{Calendars: []CalendarRef{
			{ID: "work", Selected: true},
			{ID: "birthdays", Selected: false},
			{ID: "team", Selected: true},
		}}
		assert.Equal(t, []string{"work", "team"}, conn.SelectedCalendarIDs())
	})

	t.Run("nothing selected queries nothing", func(t *testing.T) {
		conn := CalendarConnection{Calendars: []CalendarRef{{ID: "work"}}}
		assert.Empty(t, conn.SelectedCalendarIDs())
	})
}

func TestProviderFetchError(t *testing.T) {
	cause := errors.New("boom")
	err := error(&ProviderFetchError{Provider: ProviderGoogle, CalendarID: "primary", HTTPStatus: http.StatusInternalServerError, Err: cause})

	assert.Contains(t, err.Error(), "HTTP 500")
	assert.Contains(t, err.Error(), `"primary"`)
	assert.ErrorIs(t, err, cause)

	var fetchErr *ProviderFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusInternalServerError, fetchErr.HTTPStatus)
}

func TestProviderAuthError(t *testing.T) {
	err := &ProviderAuthError{Provider: ProviderMicrosoft, HTTPStatus: http.StatusBadRequest}
	assert.Equal(t, "microsoft: token refresh failed with HTTP 400", err.Error())
}

type stubAdapter struct{ p Provider }

func (s stubAdapter) Provider() Provider { return s.p }

func (s stubAdapter) FetchBusyPeriods(context.Context, string, string, time.Time, time.Time) ([]BusyInterval, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(stubAdapter{p: ProviderGoogle})

	a, err := r.Get(ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, a.Provider())

	_, err = r.Get(ProviderMicrosoft)
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	r.Register(stubAdapter{p: ProviderMicrosoft})
	assert.ElementsMatch(t, []Provider{ProviderGoogle, ProviderMicrosoft}, r.Providers())
}
