package view

import (
	"sync"

	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// Source supplies the records a View projects. The record store satisfies it.
type Source interface {
	Snapshot() []types.Record
}

// View is the display state of one collection: the query applied to its
// records and the current page. Every read re-projects the source, so
// changes to the store show up on the next call and the page index is
// re-clamped against the new visible count.
type View struct {
	mu     sync.Mutex
	spec   types.CollectionSpec
	source Source
	query  types.Query
	window types.PageWindow
}

// New creates a View over source with the collection's default sort.
// pageSize is fixed for the life of the view.
func New(spec types.CollectionSpec, source Source, pageSize int) *View {
	if pageSize <= 0 {
		pageSize = types.DefaultPageSize
	}
	return &View{
		spec:   spec,
		source: source,
		query:  types.Query{Filters: map[string]string{}, Sort: spec.DefaultSort},
		window: types.PageWindow{Size: pageSize},
	}
}

// Spec returns the collection schema the view was built for.
func (v *View) Spec() types.CollectionSpec {
	return v.spec
}

// Query returns a copy of the current query.
func (v *View) Query() types.Query {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query.Clone()
}

// SetQuery replaces the whole query and clamps the page index.
func (v *View) SetQuery(q types.Query) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query = q.Clone()
	if v.query.Filters == nil {
		v.query.Filters = map[string]string{}
	}
	v.clampLocked()
}

// SetSearch changes the search text and returns to the first page.
func (v *View) SetSearch(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query.Search = text
	v.window.Index = 0
}

// SetFilter selects value for field. types.AllValues removes the constraint.
func (v *View) SetFilter(field, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if types.IsAll(value) {
		delete(v.query.Filters, field)
	} else {
		v.query.Filters[field] = value
	}
	v.clampLocked()
}

// ClearFilters removes every filter selection.
func (v *View) ClearFilters() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query.Filters = map[string]string{}
	v.clampLocked()
}

// SetSort orders the view by s.
func (v *View) SetSort(s types.SortSpec) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query.Sort = s
	v.clampLocked()
}

// ToggleSort sorts by field ascending, or flips to descending when field is
// already the ascending sort. It returns the resulting sort.
func (v *View) ToggleSort(field string) types.SortSpec {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query.Sort = v.query.Sort.Toggle(field)
	v.clampLocked()
	return v.query.Sort
}

// SetPage moves to page index, clamped to the available pages.
func (v *View) SetPage(index int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.window.Index = index
	return v.clampLocked()
}

// NextPage advances one page unless already on the last one.
func (v *View) NextPage() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.window.Index++
	return v.clampLocked()
}

// PrevPage goes back one page unless already on the first one.
func (v *View) PrevPage() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.window.Index--
	return v.clampLocked()
}

// Visible returns every record that matches the query, in display order.
func (v *View) Visible() []types.Record {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visibleLocked()
}

// Page returns the current page of visible records and stores the clamped
// page index.
func (v *View) Page() types.Page[types.Record] {
	v.mu.Lock()
	defer v.mu.Unlock()
	page := Paginate(v.visibleLocked(), v.window)
	v.window.Index = page.Index
	return page
}

// Facets lists the distinct values of field across the whole store, in order
// of first appearance, preceded by types.AllValues. List fields contribute
// each element.
func (v *View) Facets(field string) []string {
	return Facets(v.source.Snapshot(), field)
}

// Stats summarizes the whole store, ignoring the query.
func (v *View) Stats() Stats {
	return Summarize(v.source.Snapshot(), v.spec)
}

func (v *View) visibleLocked() []types.Record {
	return Project(v.source.Snapshot(), v.query, v.spec)
}

func (v *View) clampLocked() int {
	total := len(v.visibleLocked())
	v.window.Index = ClampIndex(v.window.Index, total, v.window.Size)
	return v.window.Index
}

// Facets lists the distinct values of field in records, preceded by
// types.AllValues.
func Facets(records []types.Record, field string) []string {
	out := []string{types.AllValues}
	seen := map[string]bool{}
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, r := range records {
		val, ok := r.Value(field)
		if !ok || val == nil {
			continue
		}
		if list, isList := elements(val); isList {
			for _, e := range list {
				add(e)
			}
			continue
		}
		add(Text(val))
	}
	return out
}
