// Package memory implements an in-memory types.Backend. Writes are lost when
// the process exits; it backs sample-data sessions and tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/agencydesk/internal/sample"
	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// Backend holds one in-memory gateway per standard collection.
type Backend struct {
	mu       sync.Mutex
	closed   bool
	gateways map[string]*Gateway
}

// New returns an empty Backend.
func New() *Backend {
	return &Backend{gateways: map[string]*Gateway{}}
}

// NewSeeded returns a Backend holding the sample records.
func NewSeeded() (*Backend, error) {
	b := New()
	for _, name := range types.StandardCollectionNames() {
		records, err := sample.Records(name)
		if err != nil {
			return nil, err
		}
		b.gateways[name] = newGateway(b, name, records)
	}
	return b, nil
}

// Gateway returns the gateway of a standard collection.
func (b *Backend) Gateway(collection string) (types.Gateway, error) {
	if _, err := types.LookupCollection(collection); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, types.ErrBackendClosed
	}
	g, ok := b.gateways[collection]
	if !ok {
		g = newGateway(b, collection, nil)
		b.gateways[collection] = g
	}
	return g, nil
}

// Close discards every record. Idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.gateways = map[string]*Gateway{}
	return nil
}

func (b *Backend) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Gateway is the in-memory store of one collection.
type Gateway struct {
	backend    *Backend
	collection string

	mu      sync.RWMutex
	records []types.Record
}

func newGateway(b *Backend, collection string, records []types.Record) *Gateway {
	return &Gateway{backend: b, collection: collection, records: records}
}

func (g *Gateway) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.backend.isClosed() {
		return types.ErrBackendClosed
	}
	return nil
}

func (g *Gateway) indexOf(id string) int {
	for i, r := range g.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (g *Gateway) notFound(id string) error {
	return &types.NotFoundError{Collection: g.collection, ID: id}
}

func (g *Gateway) List(ctx context.Context) ([]types.Record, error) {
	if err := g.check(ctx); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]types.Record, len(g.records))
	for i, r := range g.records {
		out[i] = r.Clone()
	}
	return out, nil
}

func (g *Gateway) Get(ctx context.Context, id string) (types.Record, error) {
	if err := g.check(ctx); err != nil {
		return types.Record{}, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	i := g.indexOf(id)
	if i < 0 {
		return types.Record{}, g.notFound(id)
	}
	return g.records[i].Clone(), nil
}

func (g *Gateway) Create(ctx context.Context, fields types.Fields) (types.Record, error) {
	if err := g.check(ctx); err != nil {
		return types.Record{}, err
	}
	rec := types.Record{ID: uuid.Must(uuid.NewV7()).String(), Fields: fields.Clone()}
	if rec.Fields == nil {
		rec.Fields = types.Fields{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.records = append(g.records, rec)
	return rec.Clone(), nil
}

func (g *Gateway) Update(ctx context.Context, id string, fields types.Fields) (types.Record, error) {
	if err := g.check(ctx); err != nil {
		return types.Record{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.indexOf(id)
	if i < 0 {
		return types.Record{}, g.notFound(id)
	}
	g.records[i] = types.Record{ID: id, Fields: fields.Clone()}
	return g.records[i].Clone(), nil
}

func (g *Gateway) Remove(ctx context.Context, id string) error {
	if err := g.check(ctx); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.indexOf(id)
	if i < 0 {
		return g.notFound(id)
	}
	g.records = append(g.records[:i], g.records[i+1:]...)
	return nil
}
