package expr

import (
	"fmt"
	"net/url"
	"strconv"
)

// Path is a parsed path expression.
type Path struct {
	raw  string
	segs []segment
}

// segment is a single accessor step: a map key or a slice index.
type segment struct {
	key     string
	index   int
	isIndex bool
}

// Parse parses a path expression into a reusable Path.
func Parse(input string) (*Path, error) {
	p := &parser{input: input}
	segs, err := p.parse()
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", input, err)
	}
	return &Path{raw: input, segs: segs}, nil
}

// String returns the original expression text.
func (p *Path) String() string { return p.raw }

// Eval resolves the path against a generic key-value tree rooted at root.
// The boolean reports whether the full path exists; a present nil value is
// defined, only an absent key or an impossible traversal is undefined.
func (p *Path) Eval(root any) (any, bool) {
	cur := root
	for _, seg := range p.segs {
		var ok bool
		cur, ok = step(cur, seg)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// step descends one accessor into the tree.
func step(v any, seg segment) (any, bool) {
	if seg.isIndex {
		switch s := v.(type) {
		case []any:
			if seg.index >= len(s) {
				return nil, false
			}
			return s[seg.index], true
		case []string:
			if seg.index >= len(s) {
				return nil, false
			}
			return s[seg.index], true
		}
		return nil, false
	}

	switch m := v.(type) {
	case map[string]any:
		val, ok := m[seg.key]
		return val, ok
	case map[string]string:
		val, ok := m[seg.key]
		return val, ok
	case map[string][]string:
		val, ok := m[seg.key]
		return val, ok
	case url.Values:
		val, ok := m[seg.key]
		return val, ok
	}
	return nil, false
}

// parser is a recursive-descent parser over the path grammar.
type parser struct {
	input string
	pos   int
}

func (p *parser) parse() ([]segment, error) {
	ident, err := p.ident()
	if err != nil {
		return nil, err
	}
	segs := []segment{{key: ident}}

	for p.pos < len(p.input) {
		switch c := p.input[p.pos]; c {
		case '.':
			p.pos++
			id, err := p.ident()
			if err != nil {
				return nil, err
			}
			segs = append(segs, segment{key: id})
		case '[':
			p.pos++
			seg, err := p.index()
			if err != nil {
				return nil, err
			}
			segs = append(segs, seg)
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", c, p.pos)
		}
	}
	return segs, nil
}

// ident consumes [A-Za-z_$][A-Za-z0-9_$]*.
func (p *parser) ident() (string, error) {
	start := p.pos
	for p.pos < len(p.input) && isIdentChar(p.input[p.pos], p.pos == start) {
		p.pos++
	}
	if p.pos == start {
		if start >= len(p.input) {
			return "", fmt.Errorf("expected identifier at position %d", start)
		}
		return "", fmt.Errorf("expected identifier at position %d, got %q", start, p.input[start])
	}
	return p.input[start:p.pos], nil
}

// index consumes an integer or quoted-string index plus the closing bracket.
func (p *parser) index() (segment, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return segment{}, fmt.Errorf("expected index at position %d", p.pos)
	}

	var seg segment
	switch c := p.input[p.pos]; {
	case c == '\'' || c == '"':
		key, err := p.quoted(c)
		if err != nil {
			return segment{}, err
		}
		seg = segment{key: key}
	case c >= '0' && c <= '9':
		start := p.pos
		for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
			p.pos++
		}
		idx, err := strconv.Atoi(p.input[start:p.pos])
		if err != nil {
			return segment{}, fmt.Errorf("invalid index %q at position %d", p.input[start:p.pos], start)
		}
		seg = segment{index: idx, isIndex: true}
	default:
		return segment{}, fmt.Errorf("expected index at position %d, got %q", p.pos, c)
	}

	p.skipSpaces()
	if p.pos >= len(p.input) || p.input[p.pos] != ']' {
		return segment{}, fmt.Errorf("expected ] at position %d", p.pos)
	}
	p.pos++
	return seg, nil
}

// quoted consumes a string index delimited by the given quote. The content
// is taken literally; there are no escape sequences.
func (p *parser) quoted(quote byte) (string, error) {
	opening := p.pos
	p.pos++
	start := p.pos
	for p.pos < len(p.input) {
		if p.input[p.pos] == quote {
			key := p.input[start:p.pos]
			p.pos++
			return key, nil
		}
		p.pos++
	}
	return "", fmt.Errorf("unterminated string index at position %d", opening)
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func isIdentChar(c byte, first bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_', c == '$':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}
