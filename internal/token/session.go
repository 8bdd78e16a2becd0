package token

import (
	"context"
	"sync"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar"
)

// Session memoizes token lookups per connection for one request.
type Session struct {
	manager *Manager

	mu    sync.Mutex
	cells map[string]*cell
}

type cell struct {
	once  sync.Once
	token string
	err   error
}

// NewSession starts a request-scoped memoization map.
func (m *Manager) NewSession() *Session {
	return &Session{
		manager: m,
		cells:   make(map[string]*cell),
	}
}

// Token returns a valid access token for conn. Concurrent and repeated calls
// for the same connection id share one GetValidToken call and its outcome,
// including failures.
func (s *Session) Token(ctx context.Context, conn calendar.CalendarConnection) (string, error) {
	s.mu.Lock()
	c, ok := s.cells[conn.ID]
	if !ok {
		c = &cell{}
		s.cells[conn.ID] = c
	}
	s.mu.Unlock()

	c.once.Do(func() {
		c.token, c.err = s.manager.GetValidToken(ctx, conn)
	})
	return c.token, c.err
}
