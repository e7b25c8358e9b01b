package rest

import (
	"context"
	"net/http"

	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// gateway serves one collection. List responses carry records under the
// collection name and single-record responses under the singular name.
type gateway struct {
	client *Client
	spec   types.CollectionSpec
}

func (g *gateway) List(ctx context.Context) ([]types.Record, error) {
	env, err := g.client.do(ctx, "list", http.MethodGet, g.client.endpoint(g.spec.Name), nil, g.spec.Name, "")
	if err != nil {
		return nil, err
	}
	records, err := decodeList(env.Data, g.spec.Name)
	if err != nil {
		return nil, &types.GatewayError{Op: "list", Err: err}
	}
	return records, nil
}

func (g *gateway) Get(ctx context.Context, id string) (types.Record, error) {
	if id == "" {
		return types.Record{}, types.ErrInvalidID
	}
	env, err := g.client.do(ctx, "get", http.MethodGet, g.client.endpoint(g.spec.Name, id), nil, g.spec.Name, id)
	if err != nil {
		return types.Record{}, err
	}
	return g.record("get", env, id)
}

func (g *gateway) Create(ctx context.Context, fields types.Fields) (types.Record, error) {
	env, err := g.client.do(ctx, "create", http.MethodPost, g.client.endpoint(g.spec.Name), fields, g.spec.Name, "")
	if err != nil {
		return types.Record{}, err
	}
	return g.record("create", env, "")
}

// Update returns a record without fields when the backend acknowledges the
// update with a message only; the caller keeps the fields it sent.
func (g *gateway) Update(ctx context.Context, id string, fields types.Fields) (types.Record, error) {
	if id == "" {
		return types.Record{}, types.ErrInvalidID
	}
	env, err := g.client.do(ctx, "update", http.MethodPut, g.client.endpoint(g.spec.Name, id), fields, g.spec.Name, id)
	if err != nil {
		return types.Record{}, err
	}
	if emptyData(env.Data) {
		return types.Record{ID: id}, nil
	}
	rec, err := g.record("update", env, id)
	if err != nil {
		return types.Record{}, err
	}
	if rec.ID == "" {
		rec.ID = id
	}
	return rec, nil
}

func (g *gateway) Remove(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	_, err := g.client.do(ctx, "remove", http.MethodDelete, g.client.endpoint(g.spec.Name, id), nil, g.spec.Name, id)
	return err
}

func (g *gateway) record(op string, env Envelope, id string) (types.Record, error) {
	rec, err := decodeRecord(env.Data, g.spec.Singular, id)
	if err != nil {
		return types.Record{}, &types.GatewayError{Op: op, Err: err}
	}
	return rec, nil
}
