package graph

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// NewNeo4jClient establishes a Bolt connection using the official Neo4j
// driver. The SSL mode picks the URI scheme: require accepts self-signed
// certificates, verify-ca and verify-full check the chain.
func NewNeo4jClient(ctx context.Context, info ConnectionInfo, maxConnections int) (Client, error) {
	auth := neo4j.NoAuth()
	if info.User != "" {
		auth = neo4j.BasicAuth(info.User, info.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(neo4jURI(info), auth, func(c *neo4j.Config) {
		if maxConnections > 0 {
			c.MaxConnectionPoolSize = maxConnections
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify graph connectivity: %w", err)
	}

	return &neo4jClient{
		driver:   driver,
		database: info.Database,
	}, nil
}

func neo4jURI(info ConnectionInfo) string {
	scheme := "neo4j"
	switch info.SSLMode {
	case SSLRequire, SSLPrefer:
		scheme = "neo4j+ssc"
	case SSLVerifyCA, SSLVerifyFull:
		scheme = "neo4j+s"
	}
	return scheme + "://" + net.JoinHostPort(info.Host, strconv.Itoa(info.Port))
}

type neo4jClient struct {
	driver   neo4j.DriverWithContext
	database string
}

func (c *neo4jClient) Flavor() Flavor { return FlavorNeo4j }

// Execute runs a Cypher statement. Bolt parameters are named, so the only
// accepted parameter is a single map[string]any.
func (c *neo4jClient) Execute(ctx context.Context, cypher string, params ...any) (Result, error) {
	var named map[string]any
	switch len(params) {
	case 0:
	case 1:
		m, ok := params[0].(map[string]any)
		if !ok {
			return Result{}, fmt.Errorf("neo4j parameters must be a map, got %T", params[0])
		}
		named = m
	default:
		return Result{}, fmt.Errorf("neo4j accepts a single parameter map, got %d values", len(params))
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	res, err := session.Run(ctx, cypher, named)
	if err != nil {
		return Result{}, err
	}

	return consumeResult(ctx, res)
}

func (c *neo4jClient) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func consumeResult(ctx context.Context, res neo4j.ResultWithContext) (Result, error) {
	keys, err := res.Keys()
	if err != nil {
		return Result{}, err
	}
	records := []Record{}
	for res.Next(ctx) {
		rec := res.Record()
		record := make(Record, len(rec.Keys))
		for _, key := range rec.Keys {
			value, _ := rec.Get(key)
			record[key] = fromNeo4jValue(value)
		}
		records = append(records, record)
	}
	if err := res.Err(); err != nil {
		return Result{}, err
	}
	return Result{
		Command:  "CYPHER",
		RowCount: int64(len(records)),
		Columns:  keys,
		Rows:     records,
	}, nil
}

func fromNeo4jValue(v any) any {
	switch t := v.(type) {
	case neo4j.Node:
		return neo4jVertex(t)
	case neo4j.Relationship:
		return neo4jEdge(t)
	case neo4j.Path:
		path := make(Path, 0, len(t.Nodes)+len(t.Relationships))
		for i, n := range t.Nodes {
			path = append(path, neo4jVertex(n))
			if i < len(t.Relationships) {
				path = append(path, neo4jEdge(t.Relationships[i]))
			}
		}
		return path
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = fromNeo4jValue(el)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, el := range t {
			out[k] = fromNeo4jValue(el)
		}
		return out
	default:
		return v
	}
}

func neo4jVertex(n neo4j.Node) Vertex {
	label := ""
	if len(n.Labels) > 0 {
		label = n.Labels[0]
	}
	return Vertex{
		ID:         GraphID(n.ElementId),
		Label:      label,
		Properties: nonNilProps(n.Props),
	}
}

func neo4jEdge(r neo4j.Relationship) Edge {
	return Edge{
		ID:         GraphID(r.ElementId),
		Label:      r.Type,
		Start:      GraphID(r.StartElementId),
		End:        GraphID(r.EndElementId),
		Properties: nonNilProps(r.Props),
	}
}

func nonNilProps(props map[string]any) map[string]any {
	if props == nil {
		return map[string]any{}
	}
	return props
}
