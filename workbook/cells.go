package workbook

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

/* ──────────── encoding ──────────── */

func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// listCell renders a string list as JSON. A nil list renders as [].
func listCell(v []string) string {
	if v == nil {
		v = []string{}
	}
	return jsonText(v)
}

func countsCell(m map[string]int) string {
	if m == nil {
		m = map[string]int{}
	}
	return jsonText(m)
}

/* ──────────── decoding ──────────── */

// CellKind tags what a cell decoded to.
type CellKind int

const (
	CellScalar CellKind = iota
	CellList
	CellMap
)

// Cell is a decoded cell: a plain string, a list of strings or a string-keyed map.
// Numbers and booleans inside collections are kept in their text form.
type Cell struct {
	Kind CellKind
	Text string
	List []string
	Map  map[string]string
}

// Contains reports list membership for a list cell and equality for a scalar.
func (c Cell) Contains(v string) bool {
	switch c.Kind {
	case CellList:
		for _, s := range c.List {
			if s == v {
				return true
			}
		}
		return false
	case CellMap:
		_, ok := c.Map[v]
		return ok
	}
	return c.Text == v
}

// DecodeCell reads a cell written by this package or by a spreadsheet tool. JSON and
// literal list/map text with single or double quotes become collections; everything
// else, including collection text that does not parse, is a scalar.
func DecodeCell(s string) Cell {
	t := strings.TrimSpace(s)
	if len(t) >= 2 && ((t[0] == '[' && t[len(t)-1] == ']') || (t[0] == '{' && t[len(t)-1] == '}')) {
		if c, ok := decodeJSON(t); ok {
			return c
		}
		if c, ok := decodeLiteral(t); ok {
			return c
		}
	}
	return Cell{Kind: CellScalar, Text: t}
}

func decodeJSON(t string) (Cell, bool) {
	if t[0] == '[' {
		var raw []any
		if err := json.Unmarshal([]byte(t), &raw); err != nil {
			return Cell{}, false
		}
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			s, ok := jsonScalar(v)
			if !ok {
				return Cell{}, false
			}
			out = append(out, s)
		}
		return Cell{Kind: CellList, List: out}, true
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(t), &raw); err != nil {
		return Cell{}, false
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		s, ok := jsonScalar(v)
		if !ok {
			return Cell{}, false
		}
		out[k] = s
	}
	return Cell{Kind: CellMap, Map: out}, true
}

func jsonScalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case nil:
		return "", true
	}
	return "", false
}

// decodeLiteral parses list and map literals of the form ['a', "b", 3] or
// {'a': 1}. Only quoted strings, numbers, True/False/None are accepted as items.
func decodeLiteral(t string) (Cell, bool) {
	p := &litParser{s: t}
	var c Cell
	var err error
	if t[0] == '[' {
		c.Kind = CellList
		c.List, err = p.list()
	} else {
		c.Kind = CellMap
		c.Map, err = p.dict()
	}
	if err != nil {
		return Cell{}, false
	}
	p.space()
	if p.i != len(p.s) {
		return Cell{}, false
	}
	return c, true
}

type litParser struct {
	s string
	i int
}

func (p *litParser) space() {
	for p.i < len(p.s) && (p.s[p.i] == ' ' || p.s[p.i] == '\t' || p.s[p.i] == '\n' || p.s[p.i] == '\r') {
		p.i++
	}
}

func (p *litParser) eat(b byte) bool {
	p.space()
	if p.i < len(p.s) && p.s[p.i] == b {
		p.i++
		return true
	}
	return false
}

func (p *litParser) list() ([]string, error) {
	if !p.eat('[') {
		return nil, fmt.Errorf("want [ at %d", p.i)
	}
	out := []string{}
	if p.eat(']') {
		return out, nil
	}
	for {
		v, err := p.scalar()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if p.eat(',') {
			if p.eat(']') {
				return out, nil
			}
			continue
		}
		if p.eat(']') {
			return out, nil
		}
		return nil, fmt.Errorf("want , or ] at %d", p.i)
	}
}

func (p *litParser) dict() (map[string]string, error) {
	if !p.eat('{') {
		return nil, fmt.Errorf("want { at %d", p.i)
	}
	out := map[string]string{}
	if p.eat('}') {
		return out, nil
	}
	for {
		k, err := p.scalar()
		if err != nil {
			return nil, err
		}
		if !p.eat(':') {
			return nil, fmt.Errorf("want : at %d", p.i)
		}
		v, err := p.scalar()
		if err != nil {
			return nil, err
		}
		out[k] = v
		if p.eat(',') {
			if p.eat('}') {
				return out, nil
			}
			continue
		}
		if p.eat('}') {
			return out, nil
		}
		return nil, fmt.Errorf("want , or } at %d", p.i)
	}
}

func (p *litParser) scalar() (string, error) {
	p.space()
	if p.i >= len(p.s) {
		return "", fmt.Errorf("unexpected end")
	}
	if q := p.s[p.i]; q == '\'' || q == '"' {
		return p.quoted(q)
	}
	start := p.i
	for p.i < len(p.s) && !strings.ContainsRune(",:]} \t\r\n", rune(p.s[p.i])) {
		p.i++
	}
	tok := p.s[start:p.i]
	switch tok {
	case "None", "nan", "NaN":
		return "", nil
	case "True", "False":
		return strings.ToLower(tok), nil
	}
	if _, err := strconv.ParseFloat(tok, 64); err != nil {
		return "", fmt.Errorf("bare token %q", tok)
	}
	return tok, nil
}

func (p *litParser) quoted(q byte) (string, error) {
	p.i++
	var b strings.Builder
	for p.i < len(p.s) {
		c := p.s[p.i]
		switch {
		case c == q:
			p.i++
			return b.String(), nil
		case c == '\\' && p.i+1 < len(p.s):
			p.i++
			switch e := p.s[p.i]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(e)
			}
			p.i++
		default:
			r, size := utf8.DecodeRuneInString(p.s[p.i:])
			b.WriteRune(r)
			p.i += size
		}
	}
	return "", fmt.Errorf("unterminated string")
}
