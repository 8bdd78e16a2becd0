// Package calendar defines the canonical calendar model shared by every
// provider integration: connections, busy intervals, free slots and the
// error taxonomy for per-source failures.
//
// Provider specific wire formats never leave the provider packages. Each
// provider implements Adapter and is registered in a Registry keyed by
// Provider, so adding a provider means one new package and one Register call.
//
// Example usage:
//
//	registry := calendar.NewRegistry()
//	registry.Register(google.NewAdapter(httpClient))
//
//	adapter, err := registry.Get(conn.Provider)
//	if err != nil {
//	    return err
//	}
//	busy, err := adapter.FetchBusyPeriods(ctx, token, "primary", start, end)
package calendar
