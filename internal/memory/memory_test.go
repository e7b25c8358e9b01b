package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

func TestSeededCRUD(t *testing.T) {
	b, err := NewSeeded()
	require.NoError(t, err)
	defer b.Close()
	ctx := context.Background()

	gw, err := b.Gateway(types.CollectionClients)
	require.NoError(t, err)

	records, err := gw.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 7)

	created, err := gw.Create(ctx, types.Fields{"name": "Initech"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	updated, err := gw.Update(ctx, created.ID, types.Fields{"name": "Initech LLC"})
	require.NoError(t, err)
	assert.Equal(t, "Initech LLC", updated.Fields["name"])

	got, err := gw.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	require.NoError(t, gw.Remove(ctx, created.ID))
	_, err = gw.Get(ctx, created.ID)
	assert.True(t, errors.Is(err, types.ErrNotFound))
	assert.True(t, errors.Is(gw.Remove(ctx, created.ID), types.ErrNotFound))
	_, err = gw.Update(ctx, created.ID, nil)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestGatewayIsShared(t *testing.T) {
	b := New()
	ctx := context.Background()
	a, err := b.Gateway(types.CollectionRoles)
	require.NoError(t, err)
	c, err := b.Gateway(types.CollectionRoles)
	require.NoError(t, err)

	_, err = a.Create(ctx, types.Fields{"name": "Intern"})
	require.NoError(t, err)
	records, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestClosedBackend(t *testing.T) {
	b := New()
	gw, err := b.Gateway(types.CollectionClients)
	require.NoError(t, err)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err = gw.List(context.Background())
	assert.True(t, errors.Is(err, types.ErrBackendClosed))
	_, err = b.Gateway(types.CollectionClients)
	assert.True(t, errors.Is(err, types.ErrBackendClosed))
}

func TestCancelledContext(t *testing.T) {
	b := New()
	gw, err := b.Gateway(types.CollectionClients)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gw.Create(ctx, types.Fields{"name": "x"})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestUnknownCollection(t *testing.T) {
	_, err := New().Gateway("tasks")
	assert.True(t, errors.Is(err, types.ErrCollectionNotFound))
}
