package types

// PageWindow is the page size and zero-based page index requested by a view.
type PageWindow struct {
	Size  int
	Index int
}

// Page is one window of a visible sequence. Index is the clamped page index,
// Count the number of pages, and Total the length of the whole sequence.
type Page[T any] struct {
	Items []T
	Index int
	Count int
	Total int
}
