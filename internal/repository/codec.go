package repository

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/apache/age-viewer/backend/internal/graph"
)

// graphCodecs decode the graph types of both flavors from their text form.
var graphCodecs = map[string]pgtype.Codec{
	"agtype":    &textValueCodec{decode: graph.ParseAgtype},
	"graphid":   &textValueCodec{decode: func(s string) (any, error) { return graph.ParseGraphID(s), nil }},
	"vertex":    &textValueCodec{decode: func(s string) (any, error) { return graph.ParseAgensVertex(s) }},
	"edge":      &textValueCodec{decode: func(s string) (any, error) { return graph.ParseAgensEdge(s) }},
	"graphpath": &textValueCodec{decode: func(s string) (any, error) { return graph.ParseAgensPath(s) }},
}

// textValueCodec reads a type in text format and parses it into graph
// values. Scanning into strings keeps working through the embedded
// TextCodec. Parameters that are not text are sent as their JSON
// rendering, so a map bound to cypher()'s third argument arrives as an
// agtype object.
type textValueCodec struct {
	pgtype.TextCodec
	decode func(string) (any, error)
}

func (textValueCodec) FormatSupported(format int16) bool {
	return format == pgtype.TextFormatCode
}

func (textValueCodec) PreferredFormat() int16 {
	return pgtype.TextFormatCode
}

func (c textValueCodec) DecodeValue(_ *pgtype.Map, _ uint32, _ int16, src []byte) (any, error) {
	if src == nil {
		return nil, nil
	}
	return c.decode(string(src))
}

func (c textValueCodec) PlanEncode(m *pgtype.Map, oid uint32, format int16, value any) pgtype.EncodePlan {
	if format != pgtype.TextFormatCode {
		return nil
	}
	if plan := c.TextCodec.PlanEncode(m, oid, format, value); plan != nil {
		return plan
	}
	return encodePlanJSONText{}
}

type encodePlanJSONText struct{}

func (encodePlanJSONText) Encode(value any, buf []byte) ([]byte, error) {
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.String {
		return append(buf, rv.String()...), nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode parameter as json: %w", err)
	}
	return append(buf, data...), nil
}
