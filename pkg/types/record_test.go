package types

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordJSON(t *testing.T) {
	t.Run("flat object with id", func(t *testing.T) {
		rec := Record{ID: "7", Fields: Fields{"name": "Acme"}}
		data, err := json.Marshal(rec)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"7","name":"Acme"}`, string(data))
	})

	t.Run("unsaved record omits id", func(t *testing.T) {
		data, err := json.Marshal(Record{Fields: Fields{"name": "Acme"}})
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"Acme"}`, string(data))
	})

	t.Run("numeric id is stringified", func(t *testing.T) {
		var rec Record
		require.NoError(t, json.Unmarshal([]byte(`{"id":2,"name":"TechNova"}`), &rec))
		assert.Equal(t, "2", rec.ID)
		assert.Equal(t, "TechNova", rec.Fields["name"])
		_, hasID := rec.Fields["id"]
		assert.False(t, hasID)
	})

	t.Run("underscore id", func(t *testing.T) {
		var rec Record
		require.NoError(t, json.Unmarshal([]byte(`{"_id":"64ab","name":"Alex"}`), &rec))
		assert.Equal(t, "64ab", rec.ID)
		assert.NotContains(t, rec.Fields, "_id")
	})

	t.Run("bad id type", func(t *testing.T) {
		var rec Record
		err := json.Unmarshal([]byte(`{"id":true}`), &rec)
		assert.True(t, errors.Is(err, ErrInvalidID))
	})
}

func TestRecordClone(t *testing.T) {
	orig := Record{ID: "1", Fields: Fields{"tags": []any{"a", "b"}, "name": "x"}}
	cp := orig.Clone()
	cp.Fields["tags"].([]any)[0] = "z"
	cp.Fields["name"] = "y"

	assert.Equal(t, "a", orig.Fields["tags"].([]any)[0])
	assert.Equal(t, "x", orig.Fields["name"])
}

func TestFieldsWithout(t *testing.T) {
	f := Fields{"password": "secret123", "confirmPassword": "secret123"}
	out := f.Without("confirmPassword")
	assert.Equal(t, Fields{"password": "secret123"}, out)
	assert.Len(t, f, 2, "original untouched")
}

func TestSortToggle(t *testing.T) {
	s := SortSpec{Field: "name", Direction: Ascending}
	s = s.Toggle("name")
	assert.Equal(t, SortSpec{Field: "name", Direction: Descending}, s)
	s = s.Toggle("name")
	assert.Equal(t, SortSpec{Field: "name", Direction: Ascending}, s)
	s = s.Toggle("role")
	assert.Equal(t, SortSpec{Field: "role", Direction: Ascending}, s)
}

func TestQueryActiveFilters(t *testing.T) {
	q := Query{Filters: map[string]string{"status": "all", "role": "All", "priority": "", "tags": "Technical"}}
	assert.Equal(t, map[string]string{"tags": "Technical"}, q.ActiveFilters())
}

func TestErrorTaxonomy(t *testing.T) {
	nf := &NotFoundError{Collection: "clients", ID: "9"}
	assert.True(t, errors.Is(nf, ErrNotFound))
	assert.True(t, IsGatewayError(nf))
	assert.True(t, NeedsRefresh(nf))

	ge := &GatewayError{Op: "update", Status: 500, Message: "Database unavailable"}
	assert.Equal(t, "Database unavailable", ge.Error())
	assert.True(t, IsGatewayError(ge))
	assert.False(t, NeedsRefresh(ge))

	ae := &AuthError{}
	assert.True(t, errors.Is(ae, ErrUnauthorized))
	assert.False(t, IsGatewayError(ae))

	ve := &ValidationError{Fields: map[string]string{"name": "Name is required", "email": "Email is invalid"}}
	assert.Equal(t, "validation failed: email: Email is invalid; name: Name is required", ve.Error())
}

func TestLookupCollection(t *testing.T) {
	spec, err := LookupCollection("contacts")
	require.NoError(t, err)
	assert.True(t, spec.IsToggle("starred"))
	f, ok := spec.Field("tags")
	assert.True(t, ok)
	assert.Equal(t, KindList, f.Kind)

	_, err = LookupCollection("invoices")
	assert.True(t, errors.Is(err, ErrCollectionNotFound))
	assert.Len(t, StandardCollectionNames(), 5)
}
