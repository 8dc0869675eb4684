package graph

import (
	"encoding/json"
	"strconv"
)

// GraphID is the textual identity of a vertex or edge. AGE ids are
// integers; AgensGraph ids look like "3.1"; Neo4j uses element ids.
type GraphID string

// MarshalJSON emits canonical integer ids as JSON numbers and everything
// else, including "+5" or "007", as strings.
func (id GraphID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Vertex is a graph node.
type Vertex struct {
	ID         GraphID        `json:"id"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
}

// Edge is a directed relationship between two vertices.
type Edge struct {
	ID         GraphID        `json:"id"`
	Label      string         `json:"label"`
	Start      GraphID        `json:"start"`
	End        GraphID        `json:"end"`
	Properties map[string]any `json:"properties"`
}

// Path alternates vertices and edges, starting and ending with a vertex.
type Path []any

// Vertices returns the vertices of the path in order.
func (p Path) Vertices() []Vertex {
	var out []Vertex
	for _, el := range p {
		if v, ok := el.(Vertex); ok {
			out = append(out, v)
		}
	}
	return out
}

// Edges returns the edges of the path in order.
func (p Path) Edges() []Edge {
	var out []Edge
	for _, el := range p {
		if e, ok := el.(Edge); ok {
			out = append(out, e)
		}
	}
	return out
}
