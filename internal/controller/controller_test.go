// Tests for the mutation lifecycle, in-flight tracking, and error mapping.
package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

func lookup(t *testing.T, name string) types.CollectionSpec {
	t.Helper()
	spec, err := types.LookupCollection(name)
	require.NoError(t, err)
	return spec
}

func clientRecords() []types.Record {
	return []types.Record{
		{ID: "1", Fields: types.Fields{"name": "Acme", "email": "john@acme.com", "value": float64(4250), "status": "active"}},
		{ID: "2", Fields: types.Fields{"name": "TechNova", "email": "sarah@technova.com", "value": float64(1500), "status": "inactive"}},
	}
}

// loaded returns a controller over a fake gateway holding records, with the
// store already loaded.
func loaded(t *testing.T, collection string, opts Options, records ...types.Record) (*Controller, *fakeGateway) {
	t.Helper()
	gw := newFakeGateway(records...)
	c := New(lookup(t, collection), gw, opts)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.Load(context.Background()))
	return c, gw
}

func storeIDs(c *Controller) []string {
	snap := c.Store().Snapshot()
	out := make([]string, len(snap))
	for i, r := range snap {
		out[i] = r.ID
	}
	return out
}

func TestCreate(t *testing.T) {
	var transitions []Transition
	var notices []Notice
	opts := Options{
		Observer: func(tr Transition) { transitions = append(transitions, tr) },
		Notify:   func(n Notice) { notices = append(notices, n) },
	}
	c, gw := loaded(t, types.CollectionClients, opts, clientRecords()...)

	out, err := c.Create(context.Background(), types.Fields{"name": "Globex", "email": "hank@globex.com"})
	require.NoError(t, err)
	assert.True(t, out.Succeeded())
	assert.Equal(t, "101", out.ID)
	assert.Equal(t, "Globex", out.Record.Fields["name"])
	assert.Equal(t, []string{"1", "2", "101"}, storeIDs(c))
	assert.Equal(t, "Client added successfully", out.Notice.Message)
	assert.Equal(t, []Notice{out.Notice}, notices)

	var phases []Phase
	for _, tr := range transitions {
		phases = append(phases, tr.To)
	}
	assert.Equal(t, []Phase{PhaseValidating, PhaseSubmitting, PhaseSucceeded, PhaseIdle}, phases)
	assert.Equal(t, 2, gw.callCount(), "list and create")
}

func TestCreateValidationNeverCallsGateway(t *testing.T) {
	var transitions []Transition
	c, gw := loaded(t, types.CollectionMembers, Options{
		Observer: func(tr Transition) { transitions = append(transitions, tr) },
	})

	out, err := c.Create(context.Background(), types.Fields{
		"name":            "",
		"email":           "not-an-email",
		"phone":           "555-0100",
		"role":            "Designer",
		"department":      "Design",
		"password":        "short",
		"confirmPassword": "different",
	})

	var ve *types.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, map[string]string{
		"name":            "Name is required",
		"email":           "Email is invalid",
		"password":        "Password must be at least 8 characters",
		"confirmPassword": "Passwords do not match",
	}, ve.Fields)
	assert.Equal(t, PhaseIdle, out.Phase)
	assert.Equal(t, LevelWarning, out.Notice.Level)
	assert.Equal(t, 1, gw.callCount(), "only the initial list")
	assert.Zero(t, c.Store().Len())
	require.Len(t, transitions, 2)
	assert.Equal(t, Transition{Collection: "members", Kind: KindCreate, From: PhaseValidating, To: PhaseIdle}, transitions[1])
}

func TestCreateStripsTransientFields(t *testing.T) {
	c, gw := loaded(t, types.CollectionMembers, Options{})

	_, err := c.Create(context.Background(), types.Fields{
		"name":            "Alex Morgan",
		"email":           "alex@agency.com",
		"phone":           "555-0100",
		"role":            "Designer",
		"department":      "Design",
		"password":        "secret123",
		"confirmPassword": "secret123",
	})
	require.NoError(t, err)
	sent := gw.lastCall().fields
	assert.NotContains(t, sent, "confirmPassword")
	assert.Equal(t, "secret123", sent["password"])
}

func TestUpdateReplacesInPlace(t *testing.T) {
	c, gw := loaded(t, types.CollectionClients, Options{}, clientRecords()...)

	out, err := c.Update(context.Background(), "1", types.Fields{"status": "inactive"})
	require.NoError(t, err)
	assert.Equal(t, "Client updated successfully", out.Notice.Message)

	sent := gw.lastCall()
	assert.Equal(t, "1", sent.id)
	assert.Equal(t, "Acme", sent.fields["name"], "full field set is sent")

	snap := c.Store().Snapshot()
	assert.Equal(t, []string{"1", "2"}, storeIDs(c))
	assert.Equal(t, "inactive", snap[0].Fields["status"])
	assert.Equal(t, clientRecords()[1], snap[1])
}

func TestUpdateRefusedLocally(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		fields  types.Fields
		wantErr error
	}{
		{"unsaved record", "", types.Fields{"name": "x"}, types.ErrUnsavedRecord},
		{"unknown record", "42", types.Fields{"name": "x"}, types.ErrUnknownRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, gw := loaded(t, types.CollectionClients, Options{}, clientRecords()...)
			out, err := c.Update(context.Background(), tt.id, tt.fields)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, PhaseIdle, out.Phase)
			assert.Equal(t, 1, gw.callCount())
		})
	}

	t.Run("invalid email after merge", func(t *testing.T) {
		c, gw := loaded(t, types.CollectionClients, Options{}, clientRecords()...)
		_, err := c.Update(context.Background(), "1", types.Fields{"email": "nope"})
		var ve *types.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "Email is invalid", ve.Fields["email"])
		assert.Equal(t, 1, gw.callCount())
	})
}

func TestGatewayFailureLeavesStoreUnchanged(t *testing.T) {
	rec := &countingRecorder{}
	c, gw := loaded(t, types.CollectionClients, Options{Recorder: rec}, clientRecords()...)
	before := c.Store().Snapshot()
	gw.fail("update", &types.GatewayError{Op: "update", Status: 500, Message: "Database unavailable"})
	gw.fail("remove", &types.GatewayError{Op: "remove", Status: 500, Message: "Database unavailable"})

	out, err := c.Update(context.Background(), "1", types.Fields{"name": "Acme 2"})
	require.Error(t, err)
	assert.True(t, types.IsGatewayError(err))
	assert.Equal(t, PhaseFailed, out.Phase)
	assert.Equal(t, "Database unavailable", out.Notice.Message)
	assert.False(t, out.Refresh)

	_, err = c.Delete(context.Background(), "2")
	require.Error(t, err)

	assert.Equal(t, before, c.Store().Snapshot())
	assert.Equal(t, 1, rec.count("update/failure"))
	assert.Equal(t, 1, rec.count("delete/failure"))
}

func TestNotFoundPromptsRefresh(t *testing.T) {
	c, gw := loaded(t, types.CollectionClients, Options{}, clientRecords()...)
	gw.fail("remove", &types.NotFoundError{Collection: "clients", ID: "2"})

	out, err := c.Delete(context.Background(), "2")
	assert.True(t, errors.Is(err, types.ErrNotFound))
	assert.True(t, out.Refresh)
	assert.Equal(t, []string{"1", "2"}, storeIDs(c))
}

func TestTimeoutIsGatewayFailure(t *testing.T) {
	c, gw := loaded(t, types.CollectionClients, Options{}, clientRecords()...)
	gw.fail("update", context.DeadlineExceeded)

	_, err := c.Update(context.Background(), "1", types.Fields{"name": "Acme"})
	var ge *types.GatewayError
	require.True(t, errors.As(err, &ge))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestAuthErrorNotice(t *testing.T) {
	gw := newFakeGateway()
	gw.fail("list", &types.AuthError{})
	var notices []Notice
	c := New(lookup(t, types.CollectionMembers), gw, Options{Notify: func(n Notice) { notices = append(notices, n) }})
	defer c.Close()

	err := c.Load(context.Background())
	assert.True(t, errors.Is(err, types.ErrUnauthorized))
	require.Len(t, notices, 1)
	assert.Equal(t, MsgUnauthorized, notices[0].Message)
}

func TestDeleteProtectedRecord(t *testing.T) {
	roles := []types.Record{
		{ID: "1", Fields: types.Fields{"name": "Administrator", "department": "Management", "isSystemRole": true}},
		{ID: "2", Fields: types.Fields{"name": "Designer", "department": "Design", "isSystemRole": false}},
	}
	c, gw := loaded(t, types.CollectionRoles, Options{}, roles...)

	out, err := c.Delete(context.Background(), "1")
	assert.True(t, errors.Is(err, types.ErrProtectedRecord))
	var ve *types.ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "System roles cannot be deleted", out.Notice.Message)
	assert.Equal(t, 1, gw.callCount())

	out, err = c.Delete(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "Role deleted successfully", out.Notice.Message)
	assert.Equal(t, []string{"1"}, storeIDs(c))
}

func TestSingleInFlight(t *testing.T) {
	c, gw := loaded(t, types.CollectionClients, Options{}, clientRecords()...)
	release := gw.hold("update", "1")

	done := make(chan error, 1)
	go func() {
		_, err := c.Update(context.Background(), "1", types.Fields{"name": "Acme Corp"})
		done <- err
	}()
	gw.waitEntered(t, "update:1")
	assert.True(t, c.Busy())

	out, err := c.Delete(context.Background(), "2")
	assert.True(t, errors.Is(err, types.ErrMutationInFlight))
	assert.Equal(t, PhaseIdle, out.Phase)

	release()
	require.NoError(t, <-done)
	assert.False(t, c.Busy())

	_, err = c.Delete(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, storeIDs(c))
}

func TestPerActionRejectsOnlyDuplicates(t *testing.T) {
	c, gw := loaded(t, types.CollectionClients, Options{Concurrency: types.ConcurrencyPerAction}, clientRecords()...)
	release := gw.hold("update", "1")

	done := make(chan error, 1)
	go func() {
		_, err := c.Update(context.Background(), "1", types.Fields{"name": "Acme Corp"})
		done <- err
	}()
	gw.waitEntered(t, "update:1")

	_, err := c.Update(context.Background(), "1", types.Fields{"name": "Again"})
	assert.True(t, errors.Is(err, types.ErrMutationInFlight))

	_, err = c.Update(context.Background(), "2", types.Fields{"status": "active"})
	require.NoError(t, err, "disjoint record proceeds")

	release()
	require.NoError(t, <-done)
	got, _ := c.Store().Get("1")
	assert.Equal(t, "Acme Corp", got.Fields["name"])
}

func TestDeleteThenLateUpdateIsIgnored(t *testing.T) {
	t.Run("per_action policy drops the stale update", func(t *testing.T) {
		rec := &countingRecorder{}
		c, gw := loaded(t, types.CollectionClients, Options{Concurrency: types.ConcurrencyPerAction, Recorder: rec}, clientRecords()...)
		release := gw.hold("update", "2")

		done := make(chan error, 1)
		go func() {
			_, err := c.Update(context.Background(), "2", types.Fields{"status": "active"})
			done <- err
		}()
		gw.waitEntered(t, "update:2")

		_, err := c.Delete(context.Background(), "2")
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, storeIDs(c))

		release()
		err = <-done
		assert.True(t, errors.Is(err, types.ErrStaleResponse), "got %v", err)
		assert.Equal(t, []string{"1"}, storeIDs(c))
		assert.Equal(t, 1, rec.count("update/stale"))
	})

	t.Run("single policy refuses the update", func(t *testing.T) {
		c, _ := loaded(t, types.CollectionClients, Options{}, clientRecords()...)
		_, err := c.Delete(context.Background(), "2")
		require.NoError(t, err)

		_, err = c.Update(context.Background(), "2", types.Fields{"status": "active"})
		assert.True(t, errors.Is(err, types.ErrUnknownRecord))
		assert.Equal(t, []string{"1"}, storeIDs(c))
	})
}

func TestCloseAbandonsPendingResult(t *testing.T) {
	gw := newFakeGateway(clientRecords()...)
	c := New(lookup(t, types.CollectionClients), gw, Options{})
	require.NoError(t, c.Load(context.Background()))
	before := c.Store().Snapshot()
	release := gw.hold("update", "1")
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := c.Update(context.Background(), "1", types.Fields{"name": "Never"})
		done <- err
	}()
	gw.waitEntered(t, "update:1")

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "idempotent")
	assert.True(t, errors.Is(<-done, types.ErrAbandoned))
	assert.Equal(t, before, c.Store().Snapshot())

	_, err := c.Create(context.Background(), types.Fields{"name": "x", "email": "x@y.z"})
	assert.True(t, errors.Is(err, types.ErrControllerClosed))
	assert.True(t, errors.Is(c.Load(context.Background()), types.ErrControllerClosed))
}

func TestToggleLocal(t *testing.T) {
	contacts := []types.Record{
		{ID: "1", Fields: types.Fields{"name": "Emily", "email": "emily@acme.com", "starred": false}},
		{ID: "2", Fields: types.Fields{"name": "Jake", "email": "jake@globex.com"}},
	}
	c, gw := loaded(t, types.CollectionContacts, Options{}, contacts...)

	on, err := c.ToggleLocal("1", "starred")
	require.NoError(t, err)
	assert.True(t, on)
	on, err = c.ToggleLocal("2", "starred")
	require.NoError(t, err)
	assert.True(t, on, "missing flag counts as false")
	assert.Equal(t, 1, gw.callCount(), "no gateway call")

	_, err = c.ToggleLocal("1", "status")
	assert.True(t, errors.Is(err, types.ErrNotToggleable))
	_, err = c.ToggleLocal("9", "starred")
	assert.True(t, errors.Is(err, types.ErrUnknownRecord))

	// A persisted update neither sends nor loses the local flag.
	_, err = c.Update(context.Background(), "1", types.Fields{"position": "CTO"})
	require.NoError(t, err)
	assert.NotContains(t, gw.lastCall().fields, "starred")
	got, _ := c.Store().Get("1")
	assert.Equal(t, true, got.Fields["starred"])

	// Local toggles are lost on reload.
	require.NoError(t, c.Refresh(context.Background()))
	got, _ = c.Store().Get("1")
	starred, _ := got.Fields["starred"].(bool)
	assert.False(t, starred)
}

func TestCreateThenProjectOnce(t *testing.T) {
	c, _ := loaded(t, types.CollectionClients, Options{}, clientRecords()...)
	out, err := c.Create(context.Background(), types.Fields{"name": "Initech", "email": "bill@initech.com"})
	require.NoError(t, err)

	count := 0
	for _, r := range c.Store().Snapshot() {
		if r.ID == out.ID {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
