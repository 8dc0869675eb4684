package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAgtype_Scalars(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want any
	}{
		{"integer", "42", int64(42)},
		{"negative", "-7", int64(-7)},
		{"float", "3.5", 3.5},
		{"exponent", "1e3", 1000.0},
		{"string", `"Alice \"A\""`, `Alice "A"`},
		{"true", "true", true},
		{"false", "false", false},
		{"null", "null", nil},
		{"nan", "NaN", "NaN"},
		{"infinity", "Infinity", "Infinity"},
		{"negative infinity", "-Infinity", "-Infinity"},
		{"numeric", "12.3400::numeric", json.Number("12.3400")},
		{"big integer", "123456789012345678901234", json.Number("123456789012345678901234")},
		{"float annotation", "2.0::float", 2.0},
		{"numeric nan", "NaN::numeric", "NaN"},
		{"numeric infinity", "Infinity::numeric", "Infinity"},
		{"numeric negative infinity", "-Infinity::numeric", "-Infinity"},
		{"float nan", "NaN::float", "NaN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAgtype(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseAgtype_NonFiniteNumericMarshals(t *testing.T) {
	for _, in := range []string{"NaN::numeric", "Infinity::numeric", "-Infinity::numeric"} {
		got, err := ParseAgtype(in)
		require.NoError(t, err, in)
		_, err = json.Marshal(map[string]any{"v": got})
		assert.NoError(t, err, in)
	}
}

func TestParseAgtype_Vertex(t *testing.T) {
	in := `{"id": 844424930131969, "label": "Person", "properties": {"name": "Alice", "age": 30}}::vertex`

	got, err := ParseAgtype(in)
	require.NoError(t, err)

	v, ok := got.(Vertex)
	require.True(t, ok, "expected Vertex, got %T", got)
	assert.Equal(t, GraphID("844424930131969"), v.ID)
	assert.Equal(t, "Person", v.Label)
	assert.Equal(t, map[string]any{"name": "Alice", "age": int64(30)}, v.Properties)
}

func TestParseAgtype_Edge(t *testing.T) {
	in := `{"id": 1125899906842625, "label": "KNOWS", "end_id": 844424930131970, "start_id": 844424930131969, "properties": {}}::edge`

	got, err := ParseAgtype(in)
	require.NoError(t, err)

	e, ok := got.(Edge)
	require.True(t, ok, "expected Edge, got %T", got)
	assert.Equal(t, GraphID("1125899906842625"), e.ID)
	assert.Equal(t, "KNOWS", e.Label)
	assert.Equal(t, GraphID("844424930131969"), e.Start)
	assert.Equal(t, GraphID("844424930131970"), e.End)
	assert.Empty(t, e.Properties)
}

func TestParseAgtype_Path(t *testing.T) {
	in := `[{"id": 1, "label": "A", "properties": {}}::vertex, ` +
		`{"id": 3, "label": "R", "end_id": 2, "start_id": 1, "properties": {"w": 1.5}}::edge, ` +
		`{"id": 2, "label": "B", "properties": {}}::vertex]::path`

	got, err := ParseAgtype(in)
	require.NoError(t, err)

	p, ok := got.(Path)
	require.True(t, ok, "expected Path, got %T", got)
	require.Len(t, p, 3)
	assert.Len(t, p.Vertices(), 2)
	require.Len(t, p.Edges(), 1)
	assert.Equal(t, 1.5, p.Edges()[0].Properties["w"])
}

func TestParseAgtype_NestedCollections(t *testing.T) {
	got, err := ParseAgtype(`{"list": [1, "two", {"three": 3.0}], "empty": [], "obj": {}}`)
	require.NoError(t, err)

	m := got.(map[string]any)
	assert.Equal(t, []any{int64(1), "two", map[string]any{"three": 3.0}}, m["list"])
	assert.Equal(t, []any{}, m["empty"])
	assert.Equal(t, map[string]any{}, m["obj"])
}

func TestParseAgtype_Errors(t *testing.T) {
	for _, in := range []string{
		"",
		"{",
		`{"a" 1}`,
		`[1, 2`,
		`"unterminated`,
		`1::bogus`,
		`[1]::vertex`,
		`{"a": 1} trailing`,
		`-`,
	} {
		_, err := ParseAgtype(in)
		assert.Error(t, err, "input %q", in)
	}
}
