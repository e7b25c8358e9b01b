package types

import "strings"

// AllValues is the filter sentinel meaning "no constraint". It is matched
// case-insensitively, so "All" selects everything as well.
const AllValues = "all"

// Direction is the ordering direction of a sort.
type Direction string

// Sort directions.
const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortSpec names the field to order by and the direction.
type SortSpec struct {
	Field     string
	Direction Direction
}

// Toggle returns the sort produced by clicking the header of field: the same
// field sorted ascending flips to descending, anything else sorts field
// ascending.
func (s SortSpec) Toggle(field string) SortSpec {
	if s.Field == field && s.Direction != Descending {
		return SortSpec{Field: field, Direction: Descending}
	}
	return SortSpec{Field: field, Direction: Ascending}
}

// Query holds the search text, the filter selections, and the sort applied to
// a record store.
type Query struct {
	Search  string
	Filters map[string]string
	Sort    SortSpec
}

// IsAll reports whether a filter value places no constraint.
func IsAll(value string) bool {
	return value == "" || strings.EqualFold(value, AllValues)
}

// ActiveFilters returns the filters whose value is not the all sentinel.
func (q Query) ActiveFilters() map[string]string {
	active := make(map[string]string, len(q.Filters))
	for k, v := range q.Filters {
		if !IsAll(v) {
			active[k] = v
		}
	}
	return active
}

// Clone returns a copy of the query whose filter map can be mutated freely.
func (q Query) Clone() Query {
	out := q
	if q.Filters != nil {
		out.Filters = make(map[string]string, len(q.Filters))
		for k, v := range q.Filters {
			out.Filters[k] = v
		}
	}
	return out
}
