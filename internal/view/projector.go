package view

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// Project returns the records that match q in the order q.Sort requests.
// Project never modifies records and keeps no state between calls, so equal
// inputs always yield equal output.
//
// A record matches when any searchable field of spec contains q.Search as a
// case-insensitive substring and every active filter matches: string equality
// for scalar fields, membership for list fields. A record without a filtered
// field is excluded. Sorting is stable; a sort field that spec does not
// declare leaves the matching records in store order.
func Project(records []types.Record, q types.Query, spec types.CollectionSpec) []types.Record {
	m := newMatcher(q, spec)
	out := make([]types.Record, 0, len(records))
	for _, r := range records {
		if m.match(r) {
			out = append(out, r)
		}
	}
	if less, ok := comparator(q.Sort, spec); ok {
		slices.SortStableFunc(out, less)
	}
	return out
}

type matcher struct {
	fold       cases.Caser
	search     string
	searchable []string
	filters    map[string]string
}

func newMatcher(q types.Query, spec types.CollectionSpec) *matcher {
	m := &matcher{
		fold:       cases.Fold(),
		searchable: spec.Searchable,
		filters:    q.ActiveFilters(),
	}
	if q.Search != "" {
		m.search = m.fold.String(q.Search)
	}
	return m
}

func (m *matcher) match(r types.Record) bool {
	return m.matchSearch(r) && m.matchFilters(r)
}

func (m *matcher) matchSearch(r types.Record) bool {
	if m.search == "" {
		return true
	}
	for _, field := range m.searchable {
		v, ok := r.Value(field)
		if !ok {
			continue
		}
		if strings.Contains(m.fold.String(Text(v)), m.search) {
			return true
		}
	}
	return false
}

func (m *matcher) matchFilters(r types.Record) bool {
	for field, want := range m.filters {
		v, ok := r.Value(field)
		if !ok || v == nil {
			return false
		}
		if list, isList := elements(v); isList {
			if !slices.Contains(list, want) {
				return false
			}
			continue
		}
		if Text(v) != want {
			return false
		}
	}
	return true
}

// comparator builds the ordering for s. It reports false when no ordering
// applies: an empty field, or a field spec does not declare.
func comparator(s types.SortSpec, spec types.CollectionSpec) (func(a, b types.Record) int, bool) {
	if s.Field == "" {
		return nil, false
	}
	var kind types.FieldKind
	if len(spec.Fields) > 0 {
		f, ok := spec.Field(s.Field)
		if !ok {
			return nil, false
		}
		kind = f.Kind
	}
	compare := func(a, b types.Record) int {
		av, _ := a.Value(s.Field)
		bv, _ := b.Value(s.Field)
		return Compare(av, bv, kind)
	}
	if s.Direction == types.Descending {
		return func(a, b types.Record) int { return -compare(a, b) }, true
	}
	return compare, true
}

// Compare orders two field values by the natural ordering of kind: numeric
// for numbers, chronological for dates, false before true for booleans, and
// lexicographic otherwise. Missing values order before present ones. An empty
// kind compares numerically when both values are numbers.
func Compare(a, b any, kind types.FieldKind) int {
	if a == nil || b == nil {
		return cmpMissing(a == nil, b == nil)
	}
	switch kind {
	case types.KindNumber:
		an, aok := Number(a)
		bn, bok := Number(b)
		if !aok || !bok {
			return cmpMissing(!aok, !bok)
		}
		return cmp.Compare(an, bn)
	case types.KindDate:
		ad, aok := date(a)
		bd, bok := date(b)
		if aok && bok {
			return ad.Compare(bd)
		}
	case types.KindBool:
		ab, aok := a.(bool)
		bb, bok := b.(bool)
		if aok && bok {
			return cmpBool(ab, bb)
		}
	case "":
		an, aok := a.(float64)
		bn, bok := b.(float64)
		if aok && bok {
			return cmp.Compare(an, bn)
		}
	}
	return strings.Compare(Text(a), Text(b))
}

func cmpMissing(aMissing, bMissing bool) int {
	switch {
	case aMissing && bMissing:
		return 0
	case aMissing:
		return -1
	case bMissing:
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
