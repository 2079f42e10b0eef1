package health

import (
	"context"
	"time"
)

const defaultPingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	db          Pinger
	pingTimeout time.Duration
}

// NewService constructs a new health service. db may be nil when running on
// in-memory repositories.
func NewService(db Pinger) *Service {
	return &Service{db: db, pingTimeout: defaultPingTimeout}
}

// Status returns the health payload and whether every dependency is up.
func (s *Service) Status(ctx context.Context) (map[string]bool, bool) {
	status := map[string]bool{"ok": true}
	if s == nil || s.db == nil {
		return status, true
	}

	pingCtx, cancel := context.WithTimeout(ctx, s.pingTimeout)
	defer cancel()
	dbUp := s.db.PingContext(pingCtx) == nil
	status["database"] = dbUp
	status["ok"] = dbUp
	return status, dbUp
}
