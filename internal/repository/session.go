package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/apache/age-viewer/backend/internal/graph"
)

const (
	createAGEExtension = `CREATE EXTENSION IF NOT EXISTS age`
	loadAGE            = `LOAD 'age'`
	setAGESearchPath   = `SET search_path = ag_catalog, "$user", public`
	agtypeOIDQuery     = `SELECT typelem FROM pg_catalog.pg_type WHERE typname = '_agtype'`
	agensTypesQuery    = `SELECT typname, oid FROM pg_catalog.pg_type WHERE typname IN ('graphid', 'vertex', 'edge', 'graphpath')`
)

var (
	// ErrAgtypeNotFound indicates the AGE extension is not installed in the database.
	ErrAgtypeNotFound = errors.New("agtype type not found")

	// ErrAgensTypesNotFound indicates the server is not AgensGraph.
	ErrAgensTypesNotFound = errors.New("agensgraph graph types not found")
)

// sessionConn is the subset of *pgx.Conn used to prepare a session.
type sessionConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// prepareSession runs the flavor specific setup on a freshly opened
// connection and returns the OIDs of the graph types to decode.
func prepareSession(ctx context.Context, conn sessionConn, flavor graph.Flavor, graphName string) (map[string]uint32, error) {
	switch flavor {
	case graph.FlavorAGE:
		for _, stmt := range []string{createAGEExtension, loadAGE, setAGESearchPath} {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return nil, fmt.Errorf("prepare AGE session: %w", err)
			}
		}
		var oid uint32
		if err := conn.QueryRow(ctx, agtypeOIDQuery).Scan(&oid); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrAgtypeNotFound
			}
			return nil, fmt.Errorf("lookup agtype: %w", err)
		}
		return map[string]uint32{"agtype": oid}, nil

	case graph.FlavorAGENS:
		if _, err := conn.Exec(ctx, setGraphPath(graphName)); err != nil {
			return nil, fmt.Errorf("set graph_path: %w", err)
		}
		rows, err := conn.Query(ctx, agensTypesQuery)
		if err != nil {
			return nil, fmt.Errorf("lookup graph types: %w", err)
		}
		defer rows.Close()

		oids := make(map[string]uint32, 4)
		for rows.Next() {
			var (
				name string
				oid  uint32
			)
			if err := rows.Scan(&name, &oid); err != nil {
				return nil, fmt.Errorf("scan graph type: %w", err)
			}
			oids[name] = oid
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("lookup graph types: %w", err)
		}
		if len(oids) == 0 {
			return nil, ErrAgensTypesNotFound
		}
		return oids, nil

	case "":
		return nil, graph.ErrFlavorRequired
	default:
		return nil, fmt.Errorf("unknown flavor %s", flavor)
	}
}

func setGraphPath(graphName string) string {
	return "SET graph_path = " + pgx.Identifier{graph.FlavorAGENS.GraphName(graphName)}.Sanitize()
}

// setupConnection prepares a new pool connection and teaches its type map
// the graph types of the flavor.
func setupConnection(ctx context.Context, conn sessionConn, m *pgtype.Map, flavor graph.Flavor, graphName string) error {
	oids, err := prepareSession(ctx, conn, flavor, graphName)
	if err != nil {
		return err
	}
	registerGraphTypes(m, oids)
	return nil
}

// registerGraphTypes installs the value codecs on a connection type map.
func registerGraphTypes(m *pgtype.Map, oids map[string]uint32) {
	for name, oid := range oids {
		codec, ok := graphCodecs[name]
		if !ok {
			continue
		}
		m.RegisterType(&pgtype.Type{Name: name, OID: oid, Codec: codec})
	}
}
