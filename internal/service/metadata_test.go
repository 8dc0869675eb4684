package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/apache/age-viewer/backend/internal/graph"
)

func connectWith(t *testing.T, client *graph.MemoryClient, info graph.ConnectionInfo) *DatabaseService {
	t.Helper()
	svc := newTestService(&stubConnector{client: client}, nil, nil)
	if _, err := svc.Connect(context.Background(), "s1", info); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	return svc
}

func labelsByName(labels []Label) map[string]Label {
	out := make(map[string]Label, len(labels))
	for _, l := range labels {
		out[l.Name] = l
	}
	return out
}

func TestMetadata_AGE(t *testing.T) {
	client := graph.NewMemoryClient(graph.FlavorAGE)
	client.SetResult(ageCatalog.graphsSQL, graph.Result{
		Columns: []string{"name"},
		Rows:    []graph.Record{{"name": "demo"}, {"name": "other"}},
	})
	client.SetResult(ageCatalog.labelsSQL, graph.Result{
		Columns: []string{"name", "kind"},
		Rows: []graph.Record{
			{"name": "Person", "kind": "v"},
			{"name": "KNOWS", "kind": "e"},
		},
	})
	client.SetResult(`SELECT count(*) AS count FROM "demo"."Person"`, graph.Result{
		Columns: []string{"count"},
		Rows:    []graph.Record{{"count": int64(12)}},
	})
	client.SetQueryError(`SELECT count(*) AS count FROM "demo"."KNOWS"`, errors.New("permission denied"))

	svc := connectWith(t, client, validInfo())
	meta, err := svc.Metadata(context.Background(), "s1", "")
	if err != nil {
		t.Fatalf("Metadata returned error: %v", err)
	}
	if meta.Graph != "demo" || meta.Database != "postgres" || meta.Flavor != graph.FlavorAGE {
		t.Fatalf("unexpected metadata header %+v", meta)
	}
	if len(meta.Graphs) != 2 {
		t.Fatalf("expected two graphs, got %v", meta.Graphs)
	}
	labels := labelsByName(meta.Labels)
	if labels["Person"].Count != 12 || labels["Person"].Kind != KindVertex {
		t.Fatalf("unexpected Person label %+v", labels["Person"])
	}
	if labels["KNOWS"].Count != -1 {
		t.Fatalf("expected failed count to be -1, got %+v", labels["KNOWS"])
	}
}

func TestMetadata_AGENSUsesRequestedGraph(t *testing.T) {
	client := graph.NewMemoryClient(graph.FlavorAGENS)
	client.SetResult(agensCatalog.labelsSQL, graph.Result{
		Columns: []string{"name", "kind"},
		Rows:    []graph.Record{{"name": "city", "kind": "v"}},
	})
	client.SetResult(`SELECT count(*) AS count FROM "other"."city"`, graph.Result{
		Columns: []string{"count"},
		Rows:    []graph.Record{{"count": json.Number("3")}},
	})

	info := validInfo()
	info.Flavor = graph.FlavorAGENS
	svc := connectWith(t, client, info)

	meta, err := svc.Metadata(context.Background(), "s1", " other ")
	if err != nil {
		t.Fatalf("Metadata returned error: %v", err)
	}
	if meta.Graph != "other" {
		t.Fatalf("expected requested graph, got %q", meta.Graph)
	}
	if len(meta.Labels) != 1 || meta.Labels[0].Count != 3 {
		t.Fatalf("unexpected labels %+v", meta.Labels)
	}
	for _, call := range client.Calls() {
		if call.Query == agensCatalog.labelsSQL && (len(call.Params) != 1 || call.Params[0] != "other") {
			t.Fatalf("expected label query bound to graph, got %+v", call.Params)
		}
	}
}

func TestMetadata_AGENSFoldsMixedCaseGraph(t *testing.T) {
	client := graph.NewMemoryClient(graph.FlavorAGENS)
	client.SetResult(agensCatalog.labelsSQL, graph.Result{
		Columns: []string{"name", "kind"},
		Rows:    []graph.Record{{"name": "city", "kind": "v"}},
	})
	client.SetResult(`SELECT count(*) AS count FROM "mygraph"."city"`, graph.Result{
		Columns: []string{"count"},
		Rows:    []graph.Record{{"count": int64(9)}},
	})

	info := validInfo()
	info.Flavor = graph.FlavorAGENS
	info.Graph = "MyGraph"
	svc := connectWith(t, client, info)

	meta, err := svc.Metadata(context.Background(), "s1", "")
	if err != nil {
		t.Fatalf("Metadata returned error: %v", err)
	}
	if meta.Graph != "mygraph" {
		t.Fatalf("expected folded graph name, got %q", meta.Graph)
	}
	if len(meta.Labels) != 1 || meta.Labels[0].Count != 9 {
		t.Fatalf("unexpected labels %+v", meta.Labels)
	}
}

func TestMetadata_Neo4j(t *testing.T) {
	client := graph.NewMemoryClient(graph.FlavorNeo4j)
	client.SetResult(neo4jLabelsQuery, graph.Result{
		Columns: []string{"name"},
		Rows:    []graph.Record{{"name": "Person"}},
	})
	client.SetResult(neo4jRelTypesQuery, graph.Result{
		Columns: []string{"name"},
		Rows:    []graph.Record{{"name": "KNOWS"}},
	})
	client.SetResult("MATCH (n:`Person`) RETURN count(n) AS count", graph.Result{
		Columns: []string{"count"},
		Rows:    []graph.Record{{"count": int64(5)}},
	})
	client.SetResult("MATCH ()-[r:`KNOWS`]->() RETURN count(r) AS count", graph.Result{
		Columns: []string{"count"},
		Rows:    []graph.Record{{"count": int64(7)}},
	})

	info := validInfo()
	info.Flavor = graph.FlavorNeo4j
	info.Graph = ""
	info.Database = "neo4j"
	svc := connectWith(t, client, info)

	meta, err := svc.Metadata(context.Background(), "s1", "")
	if err != nil {
		t.Fatalf("Metadata returned error: %v", err)
	}
	if len(meta.Graphs) != 1 || meta.Graphs[0] != "neo4j" {
		t.Fatalf("unexpected graphs %v", meta.Graphs)
	}
	labels := labelsByName(meta.Labels)
	if labels["Person"].Count != 5 || labels["KNOWS"].Count != 7 || labels["KNOWS"].Kind != KindEdge {
		t.Fatalf("unexpected labels %+v", meta.Labels)
	}
}

func TestMetadata_Errors(t *testing.T) {
	svc := newTestService(&stubConnector{client: graph.NewMemoryClient(graph.FlavorAGE)}, nil, nil)
	if _, err := svc.Metadata(context.Background(), "s1", ""); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}

	client := graph.NewMemoryClient(graph.FlavorAGE)
	client.SetQueryError(ageCatalog.graphsSQL, errors.New("relation does not exist"))
	svc = connectWith(t, client, validInfo())
	if _, err := svc.Metadata(context.Background(), "s1", ""); err == nil {
		t.Fatal("expected error when the graph catalog is missing")
	}
}

func TestNeo4jCountQueryEscapesBackticks(t *testing.T) {
	got := neo4jCatalog{}.CountQuery("", Label{Name: "we`ird", Kind: KindVertex})
	want := "MATCH (n:`we``ird`) RETURN count(n) AS count"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
