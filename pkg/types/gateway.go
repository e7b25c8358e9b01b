package types

import "context"

// Gateway provides CRUD operations for the records of a single collection.
// Implementations cover the REST backend, SQLite and Postgres storage, and
// in-memory fixtures.
type Gateway interface {
	// List returns every record in the collection in storage order.
	List(ctx context.Context) ([]Record, error)

	// Get retrieves the record with the given ID.
	// Returns a *NotFoundError if no record exists with that ID.
	Get(ctx context.Context, id string) (Record, error)

	// Create stores a new record and returns it with the assigned ID.
	Create(ctx context.Context, fields Fields) (Record, error)

	// Update replaces the fields of an existing record and returns the
	// stored result. Returns a *NotFoundError if the ID does not exist.
	Update(ctx context.Context, id string, fields Fields) (Record, error)

	// Remove deletes the record with the given ID.
	// Returns a *NotFoundError if the ID does not exist.
	Remove(ctx context.Context, id string) error
}

// Backend hands out the Gateway of each standard collection and releases
// its resources on Close.
type Backend interface {
	// Gateway returns the Gateway for the named collection.
	// Returns ErrCollectionNotFound for names outside StandardCollections.
	Gateway(collection string) (Gateway, error)

	// Close releases backend resources. Idempotent.
	Close() error
}
