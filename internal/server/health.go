package server

import (
	"context"
)

// HealthService defines behaviour for readiness probes. The report is
// merged into the /healthz payload.
type HealthService interface {
	Probe(ctx context.Context) (map[string]any, error)
}

// SessionCounter reports how many sessions hold a connection.
type SessionCounter interface {
	ActiveSessions() int
}

// SessionHealthService reports the number of live database sessions.
type SessionHealthService struct {
	Sessions SessionCounter
}

// Probe implements the HealthService interface.
func (s SessionHealthService) Probe(context.Context) (map[string]any, error) {
	if s.Sessions == nil {
		return nil, nil
	}
	return map[string]any{"sessions": s.Sessions.ActiveSessions()}, nil
}
