package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/apache/age-viewer/backend/internal/graph"
	"github.com/apache/age-viewer/backend/internal/metrics"
	"github.com/apache/age-viewer/backend/internal/repository"
	"github.com/apache/age-viewer/backend/internal/session"
)

var (
	// ErrNotConnected indicates the session holds no connection.
	ErrNotConnected = graph.ErrNotConnected

	// ErrEmptyQuery indicates a blank statement.
	ErrEmptyQuery = errors.New("query is required")
)

// Connector opens a client for validated connection info.
type Connector func(ctx context.Context, info graph.ConnectionInfo) (graph.Client, error)

// NewConnector dispatches on flavor: the PostgreSQL flavors get a pooled
// repository, Neo4j a Bolt driver.
func NewConnector(pool repository.PoolOptions) Connector {
	return func(ctx context.Context, info graph.ConnectionInfo) (graph.Client, error) {
		switch info.Flavor {
		case graph.FlavorAGE, graph.FlavorAGENS:
			return repository.Open(ctx, info, pool)
		case graph.FlavorNeo4j:
			return graph.NewNeo4jClient(ctx, info, int(pool.MaxConns))
		case "":
			return nil, graph.ErrFlavorRequired
		default:
			return nil, fmt.Errorf("unknown flavor %s", info.Flavor)
		}
	}
}

// CertResolver maps uploaded certificate keys to file paths.
type CertResolver interface {
	Resolve(key string) (string, error)
}

// DatabaseService connects browser sessions to graph databases and runs
// their queries.
type DatabaseService struct {
	logger   *slog.Logger
	sessions *session.Manager
	connect  Connector
	certs    CertResolver
	metrics  *metrics.Metrics

	countConcurrency int
}

// NewDatabaseService wires the service. certs and m may be nil.
func NewDatabaseService(logger *slog.Logger, sessions *session.Manager, connect Connector, certs CertResolver, m *metrics.Metrics) *DatabaseService {
	return &DatabaseService{
		logger:           logger,
		sessions:         sessions,
		connect:          connect,
		certs:            certs,
		metrics:          m,
		countConcurrency: 4,
	}
}

// Connect opens a connection for the session, replacing any previous one,
// and returns the connection info without secrets.
func (s *DatabaseService) Connect(ctx context.Context, sessionID string, info graph.ConnectionInfo) (graph.ConnectionInfo, error) {
	info = info.Normalize()
	if err := info.Validate(); err != nil {
		return graph.ConnectionInfo{}, err
	}

	resolved, err := s.resolveCerts(info)
	if err != nil {
		return graph.ConnectionInfo{}, err
	}

	client, err := s.connect(ctx, resolved)
	s.metrics.ObserveConnect(string(info.Flavor), err)
	if err != nil {
		s.logger.Error("connection failed", "session", sessionID, "connection", info, "error", err)
		return graph.ConnectionInfo{}, err
	}

	s.sessions.Attach(ctx, sessionID, client, resolved)
	s.logger.Info("connected", "session", sessionID, "connection", info)
	return info.Public(), nil
}

func (s *DatabaseService) resolveCerts(info graph.ConnectionInfo) (graph.ConnectionInfo, error) {
	refs := []*graph.CertRef{&info.CA, &info.Cert, &info.Key}
	for _, ref := range refs {
		if *ref == "" {
			continue
		}
		if s.certs == nil {
			return graph.ConnectionInfo{}, fmt.Errorf("%w: certificate uploads are disabled", graph.ErrInvalidConnection)
		}
		path, err := s.certs.Resolve(string(*ref))
		if err != nil {
			return graph.ConnectionInfo{}, fmt.Errorf("%w: %w", graph.ErrInvalidConnection, err)
		}
		*ref = graph.CertRef(path)
	}
	return info, nil
}

// PoolReporter is implemented by clients backed by a connection pool.
type PoolReporter interface {
	ConnectionInfo() (graph.ConnectionInfo, error)
	PoolConnectionInfo() *repository.PoolConnectionInfo
	Stats() (repository.PoolStats, bool)
}

// Status is the connection state reported to the viewer.
type Status struct {
	graph.ConnectionInfo
	Pool  *repository.PoolConnectionInfo `json:"pool,omitempty"`
	Stats *repository.PoolStats          `json:"stats,omitempty"`
}

// Status pings the session's connection and describes it. A connection
// that no longer answers is closed and reported as not connected.
func (s *DatabaseService) Status(ctx context.Context, sessionID string) (Status, error) {
	client, info, ok := s.sessions.Lookup(sessionID)
	if !ok {
		return Status{}, ErrNotConnected
	}
	if err := client.Ping(ctx); err != nil {
		s.logger.Warn("connection lost", "session", sessionID, "error", err)
		if _, ok := s.sessions.Detach(sessionID); ok {
			_ = client.Close(ctx)
		}
		return Status{}, fmt.Errorf("%w: %w", ErrNotConnected, err)
	}

	st := Status{ConnectionInfo: info}
	if r, ok := client.(PoolReporter); ok {
		if live, err := r.ConnectionInfo(); err == nil {
			st.ConnectionInfo = live
		}
		st.Pool = r.PoolConnectionInfo()
		if stats, ok := r.Stats(); ok {
			st.Stats = &stats
		}
	}
	st.ConnectionInfo = st.ConnectionInfo.Public()
	return st, nil
}

// Disconnect closes the session's connection. It is not an error to
// disconnect twice.
func (s *DatabaseService) Disconnect(ctx context.Context, sessionID string) error {
	client, ok := s.sessions.Detach(sessionID)
	if !ok {
		return nil
	}
	if err := client.Close(ctx); err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	s.logger.Info("disconnected", "session", sessionID)
	return nil
}

// Execute runs query on the session's connection.
func (s *DatabaseService) Execute(ctx context.Context, sessionID, query string, params []any) (graph.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return graph.Result{}, ErrEmptyQuery
	}
	client, _, ok := s.sessions.Lookup(sessionID)
	if !ok {
		return graph.Result{}, ErrNotConnected
	}

	start := time.Now()
	res, err := client.Execute(ctx, query, params...)
	elapsed := time.Since(start)
	s.metrics.ObserveQuery(string(client.Flavor()), elapsed, err)
	if err != nil {
		s.logger.Warn("query failed", "session", sessionID, "error", err, "duration_ms", elapsed.Milliseconds())
		return graph.Result{}, err
	}
	s.logger.Debug("query executed", "session", sessionID, "rows", len(res.Rows), "duration_ms", elapsed.Milliseconds())
	return res, nil
}

// ActiveSessions reports how many sessions hold a connection.
func (s *DatabaseService) ActiveSessions() int {
	return s.sessions.Len()
}
