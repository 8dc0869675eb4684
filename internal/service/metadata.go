package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/apache/age-viewer/backend/internal/graph"
)

// Label kinds.
const (
	KindVertex = "v"
	KindEdge   = "e"
)

// Label describes one vertex or edge label of a graph.
type Label struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Count int64  `json:"count"`
}

// Metadata summarises the database behind a session.
type Metadata struct {
	Flavor   graph.Flavor `json:"flavor"`
	Database string       `json:"database"`
	Graph    string       `json:"graph"`
	Graphs   []string     `json:"graphs"`
	Labels   []Label      `json:"labels"`
}

// catalog knows where a flavor keeps its graph and label lists.
type catalog interface {
	Graphs(ctx context.Context, c graph.Client, database string) ([]string, error)
	Labels(ctx context.Context, c graph.Client, graphName string) ([]Label, error)
	CountQuery(graphName string, l Label) string
}

func catalogFor(f graph.Flavor) (catalog, error) {
	switch f {
	case graph.FlavorAGE:
		return ageCatalog, nil
	case graph.FlavorAGENS:
		return agensCatalog, nil
	case graph.FlavorNeo4j:
		return neo4jCatalog{}, nil
	default:
		return nil, fmt.Errorf("unknown flavor %s", f)
	}
}

// Metadata lists the graphs of the database and the labels of graphName
// (the connected graph when empty) with their sizes. A label whose count
// fails is reported with Count -1.
func (s *DatabaseService) Metadata(ctx context.Context, sessionID, graphName string) (Metadata, error) {
	client, info, ok := s.sessions.Lookup(sessionID)
	if !ok {
		return Metadata{}, ErrNotConnected
	}
	cat, err := catalogFor(client.Flavor())
	if err != nil {
		return Metadata{}, err
	}

	graphName = strings.TrimSpace(graphName)
	if graphName == "" {
		graphName = info.Graph
	}
	graphName = client.Flavor().GraphName(graphName)

	graphs, err := cat.Graphs(ctx, client, info.Database)
	if err != nil {
		return Metadata{}, fmt.Errorf("list graphs: %w", err)
	}
	labels, err := cat.Labels(ctx, client, graphName)
	if err != nil {
		return Metadata{}, fmt.Errorf("list labels of %s: %w", graphName, err)
	}

	var g errgroup.Group
	g.SetLimit(s.countConcurrency)
	for i := range labels {
		g.Go(func() error {
			res, err := client.Execute(ctx, cat.CountQuery(graphName, labels[i]))
			if err != nil {
				s.logger.Warn("label count failed", "graph", graphName, "label", labels[i].Name, "error", err)
				labels[i].Count = -1
				return nil
			}
			labels[i].Count = firstInt(res)
			return nil
		})
	}
	_ = g.Wait()

	return Metadata{
		Flavor:   client.Flavor(),
		Database: info.Database,
		Graph:    graphName,
		Graphs:   graphs,
		Labels:   labels,
	}, nil
}

// sqlCatalog covers AGE and AgensGraph, which both keep one table per
// label in a schema named after the graph.
type sqlCatalog struct {
	graphsSQL string
	labelsSQL string
}

var (
	ageCatalog = sqlCatalog{
		graphsSQL: `SELECT name FROM ag_catalog.ag_graph ORDER BY name`,
		labelsSQL: `SELECT l.name AS name, l.kind::text AS kind
FROM ag_catalog.ag_label l JOIN ag_catalog.ag_graph g ON l.graph = g.graphid
WHERE g.name = $1 AND l.name NOT IN ('_ag_label_vertex', '_ag_label_edge')
ORDER BY l.kind DESC, l.name`,
	}
	agensCatalog = sqlCatalog{
		graphsSQL: `SELECT graphname AS name FROM pg_catalog.ag_graph ORDER BY graphname`,
		labelsSQL: `SELECT l.labname AS name, l.labkind::text AS kind
FROM pg_catalog.ag_label l JOIN pg_catalog.ag_graph g ON l.graphid = g.oid
WHERE g.graphname = $1 AND l.labname NOT IN ('ag_vertex', 'ag_edge')
ORDER BY l.labkind DESC, l.labname`,
	}
)

func (c sqlCatalog) Graphs(ctx context.Context, client graph.Client, _ string) ([]string, error) {
	res, err := client.Execute(ctx, c.graphsSQL)
	if err != nil {
		return nil, err
	}
	return stringColumn(res, "name"), nil
}

func (c sqlCatalog) Labels(ctx context.Context, client graph.Client, graphName string) ([]Label, error) {
	res, err := client.Execute(ctx, c.labelsSQL, graphName)
	if err != nil {
		return nil, err
	}
	labels := make([]Label, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, _ := row["name"].(string)
		kind, _ := row["kind"].(string)
		labels = append(labels, Label{Name: name, Kind: kind})
	}
	return labels, nil
}

func (sqlCatalog) CountQuery(graphName string, l Label) string {
	return "SELECT count(*) AS count FROM " + pgx.Identifier{graphName, l.Name}.Sanitize()
}

type neo4jCatalog struct{}

const (
	neo4jLabelsQuery   = `CALL db.labels() YIELD label RETURN label AS name ORDER BY name`
	neo4jRelTypesQuery = `CALL db.relationshipTypes() YIELD relationshipType RETURN relationshipType AS name ORDER BY name`
	neo4jNodeCount     = "MATCH (n:%s) RETURN count(n) AS count"
	neo4jRelationCount = "MATCH ()-[r:%s]->() RETURN count(r) AS count"
)

func (neo4jCatalog) Graphs(_ context.Context, _ graph.Client, database string) ([]string, error) {
	if database == "" {
		return []string{}, nil
	}
	return []string{database}, nil
}

func (neo4jCatalog) Labels(ctx context.Context, client graph.Client, _ string) ([]Label, error) {
	var labels []Label
	for _, q := range []struct {
		query string
		kind  string
	}{
		{neo4jLabelsQuery, KindVertex},
		{neo4jRelTypesQuery, KindEdge},
	} {
		res, err := client.Execute(ctx, q.query)
		if err != nil {
			return nil, err
		}
		for _, name := range stringColumn(res, "name") {
			labels = append(labels, Label{Name: name, Kind: q.kind})
		}
	}
	return labels, nil
}

func (neo4jCatalog) CountQuery(_ string, l Label) string {
	name := "`" + strings.ReplaceAll(l.Name, "`", "``") + "`"
	if l.Kind == KindEdge {
		return fmt.Sprintf(neo4jRelationCount, name)
	}
	return fmt.Sprintf(neo4jNodeCount, name)
}

func stringColumn(res graph.Result, column string) []string {
	out := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if s, ok := row[column].(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func firstInt(res graph.Result) int64 {
	if len(res.Rows) == 0 || len(res.Columns) == 0 {
		return 0
	}
	switch n := res.Rows[0][res.Columns[0]].(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		v, _ := n.Int64()
		return v
	default:
		return 0
	}
}
