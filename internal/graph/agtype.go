package graph

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseAgtype decodes the text output of an Apache AGE agtype value.
//
// agtype is JSON extended with type annotations (`{...}::vertex`,
// `[...]::path`, `1.5::numeric`) and the float literals NaN, Infinity and
// -Infinity. Non-finite floats are returned as their literal text.
func ParseAgtype(s string) (any, error) {
	p := &agtypeParser{src: s}
	p.skipSpace()
	if p.eof() {
		return nil, fmt.Errorf("agtype: empty input")
	}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected trailing input")
	}
	return v, nil
}

type agtypeParser struct {
	src string
	pos int
}

func (p *agtypeParser) eof() bool { return p.pos >= len(p.src) }

func (p *agtypeParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *agtypeParser) errorf(format string, args ...any) error {
	return fmt.Errorf("agtype: offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *agtypeParser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *agtypeParser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func (p *agtypeParser) value() (any, error) {
	p.skipSpace()
	var (
		v   any
		raw string
		err error
	)
	switch c := p.peek(); {
	case c == '{':
		v, err = p.object()
	case c == '[':
		v, err = p.array()
	case c == '"':
		v, err = p.str()
	case c == '-' || (c >= '0' && c <= '9'):
		raw, v, err = p.number()
	case p.hasWord("true"):
		v = true
	case p.hasWord("false"):
		v = false
	case p.hasWord("null"):
		v = nil
	case p.hasWord("NaN"):
		v = "NaN"
	case p.hasWord("Infinity"):
		v = "Infinity"
	default:
		return nil, p.errorf("unexpected character %q", c)
	}
	if err != nil {
		return nil, err
	}

	annotation, ok := p.annotation()
	if !ok {
		return v, nil
	}
	return applyAnnotation(p, annotation, v, raw)
}

func (p *agtypeParser) hasWord(w string) bool {
	if strings.HasPrefix(p.src[p.pos:], w) {
		p.pos += len(w)
		return true
	}
	return false
}

func (p *agtypeParser) annotation() (string, bool) {
	if !strings.HasPrefix(p.src[p.pos:], "::") {
		return "", false
	}
	p.pos += 2
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && c != '_' {
			break
		}
		p.pos++
	}
	return strings.ToLower(p.src[start:p.pos]), true
}

func (p *agtypeParser) object() (map[string]any, error) {
	p.pos++ // {
	out := make(map[string]any)
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return out, nil
	}
	for {
		p.skipSpace()
		if p.peek() != '"' {
			return nil, p.errorf("expected object key")
		}
		key, err := p.str()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		out[key] = val

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or '}'")
		}
	}
}

func (p *agtypeParser) array() ([]any, error) {
	p.pos++ // [
	out := []any{}
	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		return out, nil
	}
	for {
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, val)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or ']'")
		}
	}
}

func (p *agtypeParser) str() (string, error) {
	start := p.pos
	p.pos++ // opening quote
	for !p.eof() {
		switch p.src[p.pos] {
		case '\\':
			p.pos += 2
		case '"':
			p.pos++
			var s string
			if err := json.Unmarshal([]byte(p.src[start:p.pos]), &s); err != nil {
				return "", fmt.Errorf("agtype: offset %d: %w", start, err)
			}
			return s, nil
		default:
			p.pos++
		}
	}
	p.pos = start
	return "", p.errorf("unterminated string")
}

func (p *agtypeParser) number() (string, any, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
		if p.hasWord("Infinity") {
			return "-Infinity", "-Infinity", nil
		}
	}
	isFloat := false
scan:
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c >= '0' && c <= '9':
		case c == '.' || c == 'e' || c == 'E':
			isFloat = true
		case (c == '+' || c == '-') && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E'):
		default:
			break scan
		}
		p.pos++
	}
	raw := p.src[start:p.pos]
	if raw == "" || raw == "-" {
		return "", nil, p.errorf("invalid number")
	}
	if !isFloat {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return raw, n, nil
		}
		return raw, json.Number(raw), nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", nil, fmt.Errorf("agtype: offset %d: invalid number %q", start, raw)
	}
	return raw, f, nil
}

func applyAnnotation(p *agtypeParser, annotation string, v any, raw string) (any, error) {
	switch annotation {
	case "vertex":
		m, ok := v.(map[string]any)
		if !ok {
			return nil, p.errorf("vertex annotation on %T", v)
		}
		return Vertex{
			ID:         toGraphID(m["id"]),
			Label:      stringField(m, "label"),
			Properties: propertiesField(m),
		}, nil
	case "edge":
		m, ok := v.(map[string]any)
		if !ok {
			return nil, p.errorf("edge annotation on %T", v)
		}
		return Edge{
			ID:         toGraphID(m["id"]),
			Label:      stringField(m, "label"),
			Start:      toGraphID(m["start_id"]),
			End:        toGraphID(m["end_id"]),
			Properties: propertiesField(m),
		}, nil
	case "path":
		items, ok := v.([]any)
		if !ok {
			return nil, p.errorf("path annotation on %T", v)
		}
		return Path(items), nil
	case "numeric":
		if s, ok := v.(string); ok && isNonFinite(s) {
			return s, nil
		}
		if raw == "" {
			return nil, p.errorf("numeric annotation on %T", v)
		}
		return json.Number(raw), nil
	case "integer", "float":
		return v, nil
	default:
		return nil, p.errorf("unknown annotation %q", annotation)
	}
}

// isNonFinite reports the textual forms AGE uses for NaN and the
// infinities, which JSON cannot carry as numbers.
func isNonFinite(s string) bool {
	return s == "NaN" || s == "Infinity" || s == "-Infinity"
}

func toGraphID(v any) GraphID {
	switch id := v.(type) {
	case int64:
		return GraphID(strconv.FormatInt(id, 10))
	case json.Number:
		return GraphID(id.String())
	case string:
		return GraphID(id)
	case nil:
		return ""
	default:
		return GraphID(fmt.Sprint(id))
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func propertiesField(m map[string]any) map[string]any {
	props, _ := m["properties"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	return props
}
