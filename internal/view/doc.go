// Package view shapes a collection's records for display. Project filters and
// orders a record sequence for a Query, Paginate windows the result, and View
// holds the per-collection query state and page index between calls.
package view
