package validator

import "strings"

// Identifier is a table reference from a mapping sheet. An empty Schema
// places no constraint on the schema.
type Identifier struct {
	Schema string
	Table  string
}

// ParseIdentifier splits a possibly quoted, dot-separated table reference.
//
//	orders               -> table orders
//	sales.orders         -> schema sales, table orders
//	db.sales.orders      -> schema sales, table orders
//	srv.db.sales.orders  -> schema sales, table orders
//
// Dots inside [..], "..", or `..` quoting do not split.
func ParseIdentifier(raw string) Identifier {
	segs := splitQuoted(strings.TrimSpace(raw))
	for i, s := range segs {
		segs[i] = cleanSegment(s)
	}

	switch len(segs) {
	case 0:
		return Identifier{}
	case 1:
		return Identifier{Table: segs[0]}
	default:
		n := len(segs)
		return Identifier{Schema: segs[n-2], Table: segs[n-1]}
	}
}

// CleanColumn strips quoting from a column reference.
func CleanColumn(raw string) string {
	return cleanSegment(raw)
}

func cleanSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '"', '`':
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func splitQuoted(s string) []string {
	if s == "" {
		return nil
	}

	var segs []string
	var cur strings.Builder
	var closing rune
	for _, r := range s {
		switch {
		case closing != 0:
			if r == closing {
				closing = 0
			}
			cur.WriteRune(r)
		case r == '[':
			closing = ']'
			cur.WriteRune(r)
		case r == '"' || r == '`':
			closing = r
			cur.WriteRune(r)
		case r == '.':
			segs = append(segs, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(segs, cur.String())
}
