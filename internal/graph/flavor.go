package graph

import (
	"fmt"
	"strings"
)

// Flavor selects the connection behaviour for a database server.
type Flavor string

const (
	FlavorAGE   Flavor = "AGE"
	FlavorAGENS Flavor = "AGENS"
	FlavorNeo4j Flavor = "NEO4J"
)

// ParseFlavor normalises a user supplied flavor name.
func ParseFlavor(s string) (Flavor, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", ErrFlavorRequired
	}
	switch f := Flavor(s); f {
	case FlavorAGE, FlavorAGENS, FlavorNeo4j:
		return f, nil
	default:
		return "", fmt.Errorf("unknown flavor %s", s)
	}
}

// UsesPostgres reports whether the flavor speaks the PostgreSQL protocol.
func (f Flavor) UsesPostgres() bool {
	return f == FlavorAGE || f == FlavorAGENS
}

// GraphName returns the graph name as the server stores it. AgensGraph
// graphs are schemas, so an unquoted name folds to lower case and a
// double-quoted one keeps its case. AGE and Neo4j names are used verbatim.
func (f Flavor) GraphName(name string) string {
	if f != FlavorAGENS {
		return name
	}
	if len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`) {
		return strings.ReplaceAll(name[1:len(name)-1], `""`, `"`)
	}
	return strings.ToLower(name)
}

func (f Flavor) String() string { return string(f) }
