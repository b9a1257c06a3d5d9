package query

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/dropzone/internal/common"
)

// Condition is one "attr eq value" term of a $filter.
type Condition struct {
	Attribute string
	Value     string
	// Null is set for "attr eq null".
	Null bool
}

type Order struct {
	Attribute string
	Desc      bool
}

// Options are the parsed list query options.
type Options struct {
	Select  []string
	Filter  []Condition
	OrderBy []Order
}

// Parse reads $select, $filter and $orderby from v.
func Parse(v url.Values) (Options, error) {
	var o Options

	if s := strings.TrimSpace(v.Get("$select")); s != "" {
		for _, a := range strings.Split(s, ",") {
			a = strings.TrimSpace(a)
			if !isIdent(a) {
				return Options{}, fmt.Errorf("%w: bad $select item %q", common.ErrInvalidQuery, a)
			}
			o.Select = append(o.Select, a)
		}
	}

	if s := strings.TrimSpace(v.Get("$filter")); s != "" {
		f, err := parseFilter(s)
		if err != nil {
			return Options{}, err
		}
		o.Filter = f
	}

	if s := strings.TrimSpace(v.Get("$orderby")); s != "" {
		for _, item := range strings.Split(s, ",") {
			parts := strings.Fields(item)
			if len(parts) == 0 || len(parts) > 2 || !isIdent(parts[0]) {
				return Options{}, fmt.Errorf("%w: bad $orderby item %q", common.ErrInvalidQuery, item)
			}
			ord := Order{Attribute: parts[0]}
			if len(parts) == 2 {
				switch strings.ToLower(parts[1]) {
				case "asc":
				case "desc":
					ord.Desc = true
				default:
					return Options{}, fmt.Errorf("%w: bad direction %q", common.ErrInvalidQuery, parts[1])
				}
			}
			o.OrderBy = append(o.OrderBy, ord)
		}
	}

	return o, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// parseFilter accepts `term (and term)*` with term = `ident eq literal`.
// Literals are 'quoted' strings ('' escapes a quote), null, or bare tokens
// such as numbers and GUIDs.
func parseFilter(s string) ([]Condition, error) {
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}

	var out []Condition
	for i := 0; ; {
		if i+3 > len(toks) {
			return nil, fmt.Errorf("%w: incomplete $filter term", common.ErrInvalidQuery)
		}
		attr, op, val := toks[i], toks[i+1], toks[i+2]
		if attr.quoted || !isIdent(attr.text) {
			return nil, fmt.Errorf("%w: bad attribute %q", common.ErrInvalidQuery, attr.text)
		}
		if op.quoted || strings.ToLower(op.text) != "eq" {
			return nil, fmt.Errorf("%w: unsupported operator %q", common.ErrInvalidQuery, op.text)
		}
		c := Condition{Attribute: attr.text, Value: val.text}
		if !val.quoted && strings.EqualFold(val.text, "null") {
			c = Condition{Attribute: attr.text, Null: true}
		}
		out = append(out, c)
		i += 3

		if i == len(toks) {
			return out, nil
		}
		if toks[i].quoted || strings.ToLower(toks[i].text) != "and" {
			return nil, fmt.Errorf("%w: expected 'and', got %q", common.ErrInvalidQuery, toks[i].text)
		}
		i++
	}
}

type token struct {
	text   string
	quoted bool
}

func tokenize(s string) ([]token, error) {
	var toks []token
	rs := []rune(s)
	for i := 0; i < len(rs); {
		switch {
		case unicode.IsSpace(rs[i]):
			i++
		case rs[i] == '\'':
			var b strings.Builder
			i++
			closed := false
			for i < len(rs) {
				if rs[i] == '\'' {
					if i+1 < len(rs) && rs[i+1] == '\'' {
						b.WriteRune('\'')
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				b.WriteRune(rs[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("%w: unterminated string", common.ErrInvalidQuery)
			}
			toks = append(toks, token{text: b.String(), quoted: true})
		default:
			start := i
			for i < len(rs) && !unicode.IsSpace(rs[i]) && rs[i] != '\'' {
				i++
			}
			toks = append(toks, token{text: string(rs[start:i])})
		}
	}
	return toks, nil
}
