package vectordb

import (
	"sort"
	"strings"
)

// Filter is a metadata predicate: field equality, field membership ($in) or
// a conjunction ($and). The zero Filter matches everything.
type Filter struct {
	Field string
	Eq    string
	In    []string
	And   []Filter
}

// Eq matches chunks whose field equals value.
func Eq(field, value string) Filter {
	return Filter{Field: field, Eq: value}
}

// In matches chunks whose field is one of values.
func In(field string, values ...string) Filter {
	vs := append([]string(nil), values...)
	sort.Strings(vs)
	return Filter{Field: field, In: vs}
}

// And combines filters, dropping zero filters and flattening nested
// conjunctions. A single remaining filter is returned as is.
func And(filters ...Filter) Filter {
	var flat []Filter
	for _, f := range filters {
		switch {
		case f.IsZero():
		case len(f.And) > 0:
			flat = append(flat, f.And...)
		default:
			flat = append(flat, f)
		}
	}
	switch len(flat) {
	case 0:
		return Filter{}
	case 1:
		return flat[0]
	}
	return Filter{And: flat}
}

// IsZero reports whether f places no constraint.
func (f Filter) IsZero() bool {
	return f.Field == "" && len(f.And) == 0
}

// Matches evaluates f against stored metadata.
func (f Filter) Matches(md map[string]string) bool {
	if len(f.And) > 0 {
		for _, sub := range f.And {
			if !sub.Matches(md) {
				return false
			}
		}
		return true
	}
	if f.Field == "" {
		return true
	}
	v := md[f.Field]
	if f.In != nil {
		for _, want := range f.In {
			if v == want {
				return true
			}
		}
		return false
	}
	return v == f.Eq
}

// Equalities expands f into the disjunction of plain equality maps that
// chromem can evaluate. An $in over n values inside an $and yields n maps.
// A contradictory conjunction yields no maps; the zero filter yields one
// nil map.
func (f Filter) Equalities() []map[string]string {
	out := []map[string]string{nil}
	var leaves []Filter
	if len(f.And) > 0 {
		leaves = f.And
	} else if f.Field != "" {
		leaves = []Filter{f}
	}

	for _, leaf := range leaves {
		values := leaf.In
		if values == nil {
			values = []string{leaf.Eq}
		}
		var next []map[string]string
		for _, base := range out {
			for _, v := range values {
				if prev, ok := base[leaf.Field]; ok && prev != v {
					continue
				}
				m := make(map[string]string, len(base)+1)
				for k, bv := range base {
					m[k] = bv
				}
				m[leaf.Field] = v
				next = append(next, m)
			}
		}
		out = next
	}
	return out
}

// String renders f in the Chroma-style notation used in traces.
func (f Filter) String() string {
	if f.IsZero() {
		return "{}"
	}
	if len(f.And) > 0 {
		parts := make([]string, len(f.And))
		for i, sub := range f.And {
			parts[i] = sub.String()
		}
		return `{"$and":[` + strings.Join(parts, ",") + `]}`
	}
	if f.In != nil {
		return `{"` + f.Field + `":{"$in":["` + strings.Join(f.In, `","`) + `"]}}`
	}
	return `{"` + f.Field + `":"` + f.Eq + `"}`
}

// DocFilter is a document-text predicate: the document must contain at least
// one of the phrases ($or of $contains). The zero DocFilter matches
// everything.
type DocFilter struct {
	Contains []string
}

// Contains builds a DocFilter over phrases, dropping blanks and duplicates.
func Contains(phrases ...string) DocFilter {
	seen := make(map[string]bool)
	var out []string
	for _, p := range phrases {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return DocFilter{Contains: out}
}

// IsZero reports whether d places no constraint.
func (d DocFilter) IsZero() bool {
	return len(d.Contains) == 0
}

// Matches evaluates d against document text.
func (d DocFilter) Matches(doc string) bool {
	if d.IsZero() {
		return true
	}
	for _, p := range d.Contains {
		if strings.Contains(doc, p) {
			return true
		}
	}
	return false
}
