package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAgensVertex(t *testing.T) {
	v, err := ParseAgensVertex(`person[3.1]{"name": "Alice", "age": 30, "score": 1.25}`)
	require.NoError(t, err)

	assert.Equal(t, GraphID("3.1"), v.ID)
	assert.Equal(t, "person", v.Label)
	assert.Equal(t, "Alice", v.Properties["name"])
	assert.Equal(t, int64(30), v.Properties["age"])
	assert.Equal(t, 1.25, v.Properties["score"])
}

func TestParseAgensVertex_QuotedLabel(t *testing.T) {
	v, err := ParseAgensVertex(`"my ""odd"" label"[5.9]{}`)
	require.NoError(t, err)
	assert.Equal(t, `my "odd" label`, v.Label)
	assert.Empty(t, v.Properties)
}

func TestParseAgensEdge(t *testing.T) {
	e, err := ParseAgensEdge(`knows[4.1][3.1,3.2]{"since": 2010}`)
	require.NoError(t, err)

	assert.Equal(t, GraphID("4.1"), e.ID)
	assert.Equal(t, "knows", e.Label)
	assert.Equal(t, GraphID("3.1"), e.Start)
	assert.Equal(t, GraphID("3.2"), e.End)
	assert.Equal(t, int64(2010), e.Properties["since"])
}

func TestParseAgensPath(t *testing.T) {
	p, err := ParseAgensPath(`[person[3.1]{"name": "a"},knows[4.1][3.1,3.2]{},person[3.2]{"name": "b"}]`)
	require.NoError(t, err)

	require.Len(t, p, 3)
	assert.IsType(t, Vertex{}, p[0])
	assert.IsType(t, Edge{}, p[1])
	assert.IsType(t, Vertex{}, p[2])
	assert.Equal(t, "b", p.Vertices()[1].Properties["name"])
}

func TestParseAgensPath_Empty(t *testing.T) {
	p, err := ParseAgensPath(`[]`)
	require.NoError(t, err)
	assert.Empty(t, p)
}

func TestParseAgens_Errors(t *testing.T) {
	_, err := ParseAgensVertex(`knows[4.1][3.1,3.2]{}`)
	assert.Error(t, err)

	_, err = ParseAgensEdge(`person[3.1]{}`)
	assert.Error(t, err)

	_, err = ParseAgensVertex(`person[3.1]`)
	assert.Error(t, err)

	_, err = ParseAgensEdge(`knows[4.1][3.1]{}`)
	assert.Error(t, err)

	_, err = ParseAgensPath(`[person[3.1]{}`)
	assert.Error(t, err)
}
