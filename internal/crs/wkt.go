package crs

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// wktNode is one KEYWORD[...] element of a WKT string.
// Args hold string, float64 or *wktNode values in order.
type wktNode struct {
	Keyword string
	Args    []any
}

// Name returns the first string argument.
func (n *wktNode) Name() string {
	if n == nil || len(n.Args) == 0 {
		return ""
	}
	s, _ := n.Args[0].(string)
	return s
}

// Number returns the numeric argument at position i.
func (n *wktNode) Number(i int) (float64, bool) {
	if n == nil || i >= len(n.Args) {
		return 0, false
	}
	f, ok := n.Args[i].(float64)
	return f, ok
}

// Child returns the first direct child with one of the keywords.
func (n *wktNode) Child(keywords ...string) *wktNode {
	if n == nil {
		return nil
	}
	for _, a := range n.Args {
		c, ok := a.(*wktNode)
		if !ok {
			continue
		}
		for _, k := range keywords {
			if c.Keyword == k {
				return c
			}
		}
	}
	return nil
}

// Children returns all direct children with the keyword.
func (n *wktNode) Children(keyword string) []*wktNode {
	var out []*wktNode
	for _, a := range n.Args {
		if c, ok := a.(*wktNode); ok && c.Keyword == keyword {
			out = append(out, c)
		}
	}
	return out
}

// Find searches the subtree depth-first for the first node with one of the keywords.
func (n *wktNode) Find(keywords ...string) *wktNode {
	if n == nil {
		return nil
	}
	for _, k := range keywords {
		if n.Keyword == k {
			return n
		}
	}
	for _, a := range n.Args {
		if c, ok := a.(*wktNode); ok {
			if found := c.Find(keywords...); found != nil {
				return found
			}
		}
	}
	return nil
}

type wktParser struct {
	src string
	pos int
}

// parseWKT parses WKT1 or WKT2 text into a node tree.
// Keywords are upper-cased; both [] and () brackets are accepted.
func parseWKT(src string) (*wktNode, error) {
	p := &wktParser{src: src}
	n, err := p.node()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("wkt: unexpected trailing input at offset %d", p.pos)
	}
	return n, nil
}

func (p *wktParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *wktParser) node() (*wktNode, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		break
	}
	if start == p.pos {
		return nil, fmt.Errorf("wkt: expected keyword at offset %d", p.pos)
	}

	n := &wktNode{Keyword: strings.ToUpper(p.src[start:p.pos])}

	p.skipSpace()
	if p.pos >= len(p.src) || (p.src[p.pos] != '[' && p.src[p.pos] != '(') {
		// bare keyword, e.g. axis direction NORTH
		return n, nil
	}
	open := p.src[p.pos]
	closing := byte(']')
	if open == '(' {
		closing = ')'
	}
	p.pos++

	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, fmt.Errorf("wkt: unterminated %s", n.Keyword)
		}
		if p.src[p.pos] == closing {
			p.pos++
			return n, nil
		}
		if len(n.Args) > 0 {
			if p.src[p.pos] != ',' {
				return nil, fmt.Errorf("wkt: expected ',' at offset %d in %s", p.pos, n.Keyword)
			}
			p.pos++
			p.skipSpace()
		}

		arg, err := p.value()
		if err != nil {
			return nil, err
		}
		n.Args = append(n.Args, arg)
	}
}

func (p *wktParser) value() (any, error) {
	if p.pos >= len(p.src) {
		return nil, fmt.Errorf("wkt: unexpected end of input")
	}

	c := p.src[p.pos]
	switch {
	case c == '"':
		return p.quoted()
	case c == '-' || c == '+' || c == '.' || c >= '0' && c <= '9':
		return p.number()
	}
	return p.node()
}

func (p *wktParser) quoted() (string, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		if c != '"' {
			sb.WriteByte(c)
			continue
		}
		// doubled quote is an escaped quote
		if p.pos < len(p.src) && p.src[p.pos] == '"' {
			sb.WriteByte('"')
			p.pos++
			continue
		}
		return sb.String(), nil
	}
	return "", fmt.Errorf("wkt: unterminated string")
}

func (p *wktParser) number() (float64, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' || c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		break
	}
	f, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("wkt: invalid number %q", p.src[start:p.pos])
	}
	return f, nil
}

// normalizeParam folds parameter and method names so WKT1 and WKT2 spellings compare equal:
// "False_Easting", "False easting" and "false_easting" all become "falseeasting".
func normalizeParam(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
