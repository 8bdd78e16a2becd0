package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Adapter translates one provider's event listing into canonical busy intervals.
//
// calendarID may be DefaultCalendarID, in which case the adapter queries the
// account's primary calendar. Non-2xx responses are reported as
// *ProviderFetchError. Returned intervals carry no ConnectionID; the caller
// tags them.
type Adapter interface {
	Provider() Provider
	FetchBusyPeriods(ctx context.Context, accessToken, calendarID string, start, end time.Time) ([]BusyInterval, error)
}

// Registry maps providers to their adapters. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Provider]Adapter
}

// NewRegistry creates a registry pre-populated with the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Provider]Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for a.Provider().
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Provider()] = a
}

// Get returns the adapter for p.
func (r *Registry) Get(p Provider) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, p)
	}
	return a, nil
}

// Providers lists the registered providers.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	return out
}
