package rest

import (
	"context"
	"errors"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/agencydesk/internal/controller"
	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

func member7() map[string]any {
	return map[string]any{
		"_id":        "7",
		"name":       "Ann",
		"email":      "ann@agency.com",
		"phone":      "555-0107",
		"role":       "Designer",
		"department": "Design",
	}
}

// loadedMembers returns a controller over the members gateway with member 7
// loaded into its store.
func loadedMembers(t *testing.T) *controller.Controller {
	t.Helper()
	gw := newTestGateway(t, types.CollectionMembers)
	gock.New(apiURL).
		Get("/members").
		Reply(200).
		JSON(map[string]any{"data": map[string]any{"members": []map[string]any{member7()}}})

	spec, err := types.LookupCollection(types.CollectionMembers)
	require.NoError(t, err)
	ctl := controller.New(spec, gw, controller.Options{})
	t.Cleanup(func() { ctl.Close() })
	require.NoError(t, ctl.Load(context.Background()))
	return ctl
}

func TestUpdateRejectsUnexpectedShapes(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "record under another key",
			body: map[string]any{"data": map[string]any{"user": map[string]any{"_id": "7", "name": "Ann B"}}},
		},
		{
			name: "acknowledgement object",
			body: map[string]any{"data": map[string]any{"updated": true}},
		},
		{
			name: "singular key holds a scalar",
			body: map[string]any{"data": map[string]any{"member": "7"}},
		},
		{
			name: "record for another id",
			body: map[string]any{"data": map[string]any{"member": map[string]any{"_id": "8", "name": "Ann B"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl := loadedMembers(t)
			before, ok := ctl.Store().Get("7")
			require.True(t, ok)

			gock.New(apiURL).Put("/members/7").Reply(200).JSON(tt.body)

			out, err := ctl.Update(context.Background(), "7", types.Fields{"name": "Ann B"})
			require.Error(t, err)
			assert.False(t, out.Succeeded())
			var ge *types.GatewayError
			require.True(t, errors.As(err, &ge))
			assert.True(t, errors.Is(err, types.ErrInvalidData))

			after, ok := ctl.Store().Get("7")
			require.True(t, ok)
			assert.Equal(t, before, after)
		})
	}
}

func TestUpdateMessageOnlyKeepsSentFields(t *testing.T) {
	ctl := loadedMembers(t)
	gock.New(apiURL).
		Put("/members/7").
		Reply(200).
		JSON(map[string]any{"message": "Member updated successfully"})

	out, err := ctl.Update(context.Background(), "7", types.Fields{"name": "Ann B"})
	require.NoError(t, err)
	assert.True(t, out.Succeeded())

	rec, ok := ctl.Store().Get("7")
	require.True(t, ok)
	assert.Equal(t, "Ann B", rec.Fields["name"])
	assert.Equal(t, "ann@agency.com", rec.Fields["email"])
	assert.Equal(t, "Design", rec.Fields["department"])
}

func TestGatewayUpdateAcknowledgement(t *testing.T) {
	gw := newTestGateway(t, types.CollectionClients)
	gock.New(apiURL).Put("/clients/9").Reply(200).JSON(map[string]any{"message": "Client updated"})

	rec, err := gw.Update(context.Background(), "9", types.Fields{"name": "Globex"})
	require.NoError(t, err)
	assert.Equal(t, "9", rec.ID)
	assert.Nil(t, rec.Fields)
}

func TestCreateRequiresRecordUnderKey(t *testing.T) {
	gw := newTestGateway(t, types.CollectionClients)
	gock.New(apiURL).
		Post("/clients").
		Reply(201).
		JSON(map[string]any{"data": map[string]any{"created": true}})
	gock.New(apiURL).
		Post("/clients").
		Reply(201).
		JSON(map[string]any{"data": map[string]any{"id": "12", "name": "Initech"}})

	_, err := gw.Create(context.Background(), types.Fields{"name": "Initech"})
	assert.True(t, errors.Is(err, types.ErrInvalidData))

	rec, err := gw.Create(context.Background(), types.Fields{"name": "Initech"})
	require.NoError(t, err)
	assert.Equal(t, "12", rec.ID)
	assert.Equal(t, "Initech", rec.Fields["name"])
}
