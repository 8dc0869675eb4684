package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apache/age-viewer/backend/internal/graph"
)

// DBPool is the part of *pgxpool.Pool the repository relies on.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// PoolOptions bounds the connection pool.
type PoolOptions struct {
	MaxConns       int32
	IdleTimeout    time.Duration
	ConnectTimeout time.Duration
}

// DefaultPoolOptions mirrors the pool limits the viewer has always used.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxConns:       10,
		IdleTimeout:    30 * time.Second,
		ConnectTimeout: 2 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultPoolOptions.
func (o PoolOptions) withDefaults() PoolOptions {
	def := DefaultPoolOptions()
	if o.MaxConns <= 0 {
		o.MaxConns = def.MaxConns
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = def.IdleTimeout
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = def.ConnectTimeout
	}
	return o
}

// Repository is a pooled connection to an AGE or AgensGraph server. Every
// physical connection is prepared for its flavor before it is handed out.
type Repository struct {
	pool DBPool
	info graph.ConnectionInfo
	opts PoolOptions
}

var _ graph.Client = (*Repository)(nil)

// Open creates the pool and verifies that a prepared connection can be
// obtained. Certificate references in info must already be file paths.
func Open(ctx context.Context, info graph.ConnectionInfo, opts PoolOptions) (*Repository, error) {
	if info.Flavor == "" {
		return nil, graph.ErrFlavorRequired
	}
	if !info.Flavor.UsesPostgres() {
		return nil, fmt.Errorf("unknown flavor %s", info.Flavor)
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(info.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse connection config: %w", err)
	}
	opts = opts.withDefaults()
	cfg.MaxConns = opts.MaxConns
	cfg.MaxConnIdleTime = opts.IdleTimeout
	cfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return setupConnection(ctx, conn, conn.TypeMap(), info.Flavor, info.Graph)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to %s:%d/%s: %w", info.Host, info.Port, info.Database, err)
	}

	return &Repository{pool: pool, info: info, opts: opts}, nil
}

// NewWithPool wraps an existing pool. Used with mocks in tests.
func NewWithPool(pool DBPool, info graph.ConnectionInfo, opts PoolOptions) *Repository {
	return &Repository{pool: pool, info: info, opts: opts.withDefaults()}
}

func (r *Repository) Flavor() graph.Flavor { return r.info.Flavor }

// Execute runs a statement with positional parameters and decodes every row.
func (r *Repository) Execute(ctx context.Context, query string, params ...any) (graph.Result, error) {
	rows, err := r.pool.Query(ctx, query, params...)
	if err != nil {
		return graph.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	res, err := collectRows(rows)
	if err != nil {
		return graph.Result{}, fmt.Errorf("execute query: %w", err)
	}
	return res, nil
}

func collectRows(rows pgx.Rows) (graph.Result, error) {
	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	records := []graph.Record{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return graph.Result{}, err
		}
		rec := make(graph.Record, len(columns))
		for i, col := range columns {
			if i < len(values) {
				rec[col] = values[i]
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return graph.Result{}, err
	}

	tag := rows.CommandTag()
	command, _, _ := strings.Cut(tag.String(), " ")
	rowCount := tag.RowsAffected()
	if rowCount == 0 {
		rowCount = int64(len(records))
	}
	return graph.Result{
		Command:  command,
		RowCount: rowCount,
		Columns:  columns,
		Rows:     records,
	}, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close ends the pool.
func (r *Repository) Close(context.Context) error {
	r.pool.Close()
	return nil
}

// ConnectionInfo returns the parameters the pool was opened with.
func (r *Repository) ConnectionInfo() (graph.ConnectionInfo, error) {
	if r.info.Host == "" || r.info.Port == 0 || r.info.Database == "" {
		return graph.ConnectionInfo{}, graph.ErrNotConnected
	}
	return r.info, nil
}

// PoolConnectionInfo describes the pool configuration.
type PoolConnectionInfo struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	Database       string        `json:"database"`
	User           string        `json:"user"`
	SSLMode        string        `json:"sslmode"`
	MaxConns       int32         `json:"max"`
	IdleTimeout    time.Duration `json:"idleTimeout"`
	ConnectTimeout time.Duration `json:"connectionTimeout"`
}

// PoolConnectionInfo returns nil when host, port or database is missing.
func (r *Repository) PoolConnectionInfo() *PoolConnectionInfo {
	if r.info.Host == "" || r.info.Port == 0 || r.info.Database == "" {
		return nil
	}
	return &PoolConnectionInfo{
		Host:           r.info.Host,
		Port:           r.info.Port,
		Database:       r.info.Database,
		User:           r.info.User,
		SSLMode:        r.info.SSLMode,
		MaxConns:       r.opts.MaxConns,
		IdleTimeout:    r.opts.IdleTimeout,
		ConnectTimeout: r.opts.ConnectTimeout,
	}
}

// PoolStats is a snapshot of pool usage.
type PoolStats struct {
	Total    int32 `json:"total"`
	Idle     int32 `json:"idle"`
	Acquired int32 `json:"acquired"`
}

// Stats reports pool counters. ok is false when the repository is not
// backed by a real pgx pool.
func (r *Repository) Stats() (PoolStats, bool) {
	p, ok := r.pool.(*pgxpool.Pool)
	if !ok {
		return PoolStats{}, false
	}
	st := p.Stat()
	return PoolStats{
		Total:    st.TotalConns(),
		Idle:     st.IdleConns(),
		Acquired: st.AcquiredConns(),
	}, true
}
