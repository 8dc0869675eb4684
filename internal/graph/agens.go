package graph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AgensGraph renders graph values as text:
//
//	person[3.1]{"name": "Alice"}               vertex
//	knows[4.1][3.1,3.2]{"since": 2010}         edge
//	[person[3.1]{...},knows[4.1][3.1,3.2]{...},person[3.2]{...}]   graphpath

// ParseAgensVertex decodes an AgensGraph vertex.
func ParseAgensVertex(s string) (Vertex, error) {
	p := &agensParser{src: strings.TrimSpace(s)}
	el, err := p.element()
	if err != nil {
		return Vertex{}, err
	}
	if err := p.end(); err != nil {
		return Vertex{}, err
	}
	v, ok := el.(Vertex)
	if !ok {
		return Vertex{}, fmt.Errorf("agens: expected vertex, got edge")
	}
	return v, nil
}

// ParseAgensEdge decodes an AgensGraph edge.
func ParseAgensEdge(s string) (Edge, error) {
	p := &agensParser{src: strings.TrimSpace(s)}
	el, err := p.element()
	if err != nil {
		return Edge{}, err
	}
	if err := p.end(); err != nil {
		return Edge{}, err
	}
	e, ok := el.(Edge)
	if !ok {
		return Edge{}, fmt.Errorf("agens: expected edge, got vertex")
	}
	return e, nil
}

// ParseAgensPath decodes an AgensGraph graphpath.
func ParseAgensPath(s string) (Path, error) {
	p := &agensParser{src: strings.TrimSpace(s)}
	if p.peek() != '[' {
		return nil, p.errorf("expected '['")
	}
	p.pos++
	path := Path{}
	if p.peek() == ']' {
		p.pos++
		return path, p.end()
	}
	for {
		el, err := p.element()
		if err != nil {
			return nil, err
		}
		path = append(path, el)
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return path, p.end()
		default:
			return nil, p.errorf("expected ',' or ']'")
		}
	}
}

// ParseGraphID decodes an AgensGraph graphid such as "3.1".
func ParseGraphID(s string) GraphID {
	return GraphID(strings.TrimSpace(s))
}

type agensParser struct {
	src string
	pos int
}

func (p *agensParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *agensParser) errorf(format string, args ...any) error {
	return fmt.Errorf("agens: offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *agensParser) end() error {
	if p.pos != len(p.src) {
		return p.errorf("unexpected trailing input")
	}
	return nil
}

func (p *agensParser) element() (any, error) {
	label, err := p.label()
	if err != nil {
		return nil, err
	}
	id, err := p.bracket()
	if err != nil {
		return nil, err
	}

	if p.peek() != '[' {
		props, err := p.properties()
		if err != nil {
			return nil, err
		}
		return Vertex{ID: GraphID(id), Label: label, Properties: props}, nil
	}

	ends, err := p.bracket()
	if err != nil {
		return nil, err
	}
	start, end, ok := strings.Cut(ends, ",")
	if !ok {
		return nil, p.errorf("edge endpoints %q", ends)
	}
	props, err := p.properties()
	if err != nil {
		return nil, err
	}
	return Edge{
		ID:         GraphID(id),
		Label:      label,
		Start:      ParseGraphID(start),
		End:        ParseGraphID(end),
		Properties: props,
	}, nil
}

func (p *agensParser) label() (string, error) {
	if p.peek() != '"' {
		i := strings.IndexByte(p.src[p.pos:], '[')
		if i <= 0 {
			return "", p.errorf("expected label")
		}
		label := p.src[p.pos : p.pos+i]
		p.pos += i
		return label, nil
	}

	// quoted identifier, "" escapes a quote
	var b strings.Builder
	p.pos++
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '"' {
			if p.pos+1 < len(p.src) && p.src[p.pos+1] == '"' {
				b.WriteByte('"')
				p.pos += 2
				continue
			}
			p.pos++
			return b.String(), nil
		}
		b.WriteByte(c)
		p.pos++
	}
	return "", p.errorf("unterminated quoted label")
}

func (p *agensParser) bracket() (string, error) {
	if p.peek() != '[' {
		return "", p.errorf("expected '['")
	}
	i := strings.IndexByte(p.src[p.pos:], ']')
	if i < 0 {
		return "", p.errorf("unterminated '['")
	}
	content := p.src[p.pos+1 : p.pos+i]
	p.pos += i + 1
	return strings.TrimSpace(content), nil
}

func (p *agensParser) properties() (map[string]any, error) {
	if p.peek() != '{' {
		return nil, p.errorf("expected properties")
	}
	dec := json.NewDecoder(strings.NewReader(p.src[p.pos:]))
	dec.UseNumber()
	var props map[string]any
	if err := dec.Decode(&props); err != nil {
		return nil, fmt.Errorf("agens: offset %d: %w", p.pos, err)
	}
	p.pos += int(dec.InputOffset())
	return normalizeNumbers(props).(map[string]any), nil
}

// normalizeNumbers turns json.Number leaves into int64 or float64 so
// both flavors hand the same Go types to callers.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeNumbers(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalizeNumbers(val)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t
	default:
		return v
	}
}
