package controller

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

type gatewayCall struct {
	op     string
	id     string
	fields types.Fields
}

// fakeGateway is an in-memory gateway whose calls can be held open by a gate
// to control the order in which responses resolve.
type fakeGateway struct {
	mu      sync.Mutex
	records []types.Record
	nextID  int
	calls   []gatewayCall
	gates   map[string]chan struct{}
	errs    map[string]error
	entered chan string
}

func newFakeGateway(records ...types.Record) *fakeGateway {
	return &fakeGateway{
		records: records,
		nextID:  100,
		gates:   map[string]chan struct{}{},
		errs:    map[string]error{},
		entered: make(chan string, 16),
	}
}

// hold makes the next op on id block until the returned func is called.
func (g *fakeGateway) hold(op, id string) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan struct{})
	g.gates[op+":"+id] = ch
	return func() { close(ch) }
}

func (g *fakeGateway) fail(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs[op] = err
}

func (g *fakeGateway) waitEntered(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-g.entered:
		require.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("gateway call %s never started", want)
	}
}

func (g *fakeGateway) enter(ctx context.Context, op, id string, fields types.Fields) error {
	g.mu.Lock()
	g.calls = append(g.calls, gatewayCall{op: op, id: id, fields: fields.Clone()})
	gate := g.gates[op+":"+id]
	err := g.errs[op]
	g.mu.Unlock()

	if gate != nil {
		g.entered <- op + ":" + id
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *fakeGateway) lastCall() gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[len(g.calls)-1]
}

func (g *fakeGateway) List(ctx context.Context) ([]types.Record, error) {
	if err := g.enter(ctx, "list", "", nil); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]types.Record, len(g.records))
	for i, r := range g.records {
		out[i] = r.Clone()
	}
	return out, nil
}

func (g *fakeGateway) Get(ctx context.Context, id string) (types.Record, error) {
	if err := g.enter(ctx, "get", id, nil); err != nil {
		return types.Record{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range g.records {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return types.Record{}, &types.NotFoundError{ID: id}
}

func (g *fakeGateway) Create(ctx context.Context, fields types.Fields) (types.Record, error) {
	if err := g.enter(ctx, "create", "", fields); err != nil {
		return types.Record{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	rec := types.Record{ID: strconv.Itoa(g.nextID), Fields: fields.Clone()}
	g.records = append(g.records, rec)
	return rec.Clone(), nil
}

func (g *fakeGateway) Update(ctx context.Context, id string, fields types.Fields) (types.Record, error) {
	if err := g.enter(ctx, "update", id, fields); err != nil {
		return types.Record{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, r := range g.records {
		if r.ID == id {
			g.records[i].Fields = fields.Clone()
			return g.records[i].Clone(), nil
		}
	}
	// The record may be gone remotely; answer like a backend that upserts so
	// tests can observe the store rejecting the late response.
	return types.Record{ID: id, Fields: fields.Clone()}, nil
}

func (g *fakeGateway) Remove(ctx context.Context, id string) error {
	if err := g.enter(ctx, "remove", id, nil); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, r := range g.records {
		if r.ID == id {
			g.records = append(g.records[:i], g.records[i+1:]...)
			return nil
		}
	}
	return &types.NotFoundError{ID: id}
}

type countingRecorder struct {
	mu      sync.Mutex
	results map[string]int
}

func (r *countingRecorder) ObserveMutation(_, kind, result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = map[string]int{}
	}
	r.results[kind+"/"+result]++
}

func (r *countingRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[key]
}
