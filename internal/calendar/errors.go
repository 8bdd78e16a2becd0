package calendar

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenExpiredNoRefresh means the stored access token has expired and
	// there is no refresh token; the connection needs re-authorization.
	ErrTokenExpiredNoRefresh = errors.New("access token expired and no refresh token stored")

	// ErrUnsupportedProvider is returned for providers without a registered adapter.
	ErrUnsupportedProvider = errors.New("unsupported calendar provider")
)

// ProviderFetchError reports a failed event listing for one calendar.
// HTTPStatus is 0 when no response was received (timeout, transport error).
type ProviderFetchError struct {
	Provider   Provider
	CalendarID string
	HTTPStatus int
	Err        error
}

func (e *ProviderFetchError) Error() string {
	msg := fmt.Sprintf("%s: fetching calendar %q failed", e.Provider, e.CalendarID)
	if e.HTTPStatus != 0 {
		msg = fmt.Sprintf("%s with HTTP %d", msg, e.HTTPStatus)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderFetchError) Unwrap() error {
	return e.Err
}

// ProviderAuthError reports a failed token refresh against a provider's token endpoint.
type ProviderAuthError struct {
	Provider   Provider
	HTTPStatus int
	Err        error
}

func (e *ProviderAuthError) Error() string {
	msg := fmt.Sprintf("%s: token refresh failed", e.Provider)
	if e.HTTPStatus != 0 {
		msg = fmt.Sprintf("%s with HTTP %d", msg, e.HTTPStatus)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderAuthError) Unwrap() error {
	return e.Err
}
