package view

import "github.com/mesh-intelligence/agencydesk/pkg/types"

// PageCount returns the number of pages needed for total items.
func PageCount(total, size int) int {
	if total <= 0 {
		return 0
	}
	if size <= 0 {
		size = types.DefaultPageSize
	}
	return (total + size - 1) / size
}

// ClampIndex keeps index within [0, max(0, pageCount-1)].
func ClampIndex(index, total, size int) int {
	last := PageCount(total, size) - 1
	if index > last {
		index = last
	}
	if index < 0 {
		index = 0
	}
	return index
}

// Paginate returns the window of seq selected by w. The page index is clamped
// to the last page, so a window past the end yields the final page and an
// empty sequence yields index 0 with no items. A non-positive size falls back
// to types.DefaultPageSize.
func Paginate[T any](seq []T, w types.PageWindow) types.Page[T] {
	size := w.Size
	if size <= 0 {
		size = types.DefaultPageSize
	}
	index := ClampIndex(w.Index, len(seq), size)
	start := index * size
	end := min(start+size, len(seq))
	items := make([]T, 0, end-start)
	items = append(items, seq[start:end]...)
	return types.Page[T]{
		Items: items,
		Index: index,
		Count: PageCount(len(seq), size),
		Total: len(seq),
	}
}
