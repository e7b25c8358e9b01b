package types

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// Fields maps a field name to its value. Values are the shapes produced by
// JSON decoding: string, float64, bool, []any, map[string]any, or nil.
type Fields map[string]any

// Record is one business entity of a collection. ID is assigned by the
// Gateway on creation and never changes afterwards; a Record with an empty ID
// is unsaved.
type Record struct {
	ID     string
	Fields Fields
}

// Saved reports whether the record carries a gateway-assigned identifier.
func (r Record) Saved() bool {
	return r.ID != ""
}

// Value returns the value of a field and whether the record carries it.
func (r Record) Value(field string) (any, bool) {
	if r.Fields == nil {
		return nil, false
	}
	v, ok := r.Fields[field]
	return v, ok
}

// Clone returns a deep copy of the record so that callers can mutate the
// result without touching the original.
func (r Record) Clone() Record {
	return Record{ID: r.ID, Fields: r.Fields.Clone()}
}

// Clone returns a deep copy of the field map.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

// Without returns a copy of the field map with the named fields removed.
func (f Fields) Without(names ...string) Fields {
	out := f.Clone()
	if out == nil {
		out = Fields{}
	}
	for _, n := range names {
		delete(out, n)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		cp := make([]any, len(t))
		for i, e := range t {
			cp[i] = cloneValue(e)
		}
		return cp
	case []string:
		cp := make([]string, len(t))
		copy(cp, t)
		return cp
	case map[string]any:
		cp := make(map[string]any, len(t))
		for k, e := range t {
			cp[k] = cloneValue(e)
		}
		return cp
	default:
		return v
	}
}

// Identifier keys accepted when decoding a record. Member records served by
// the backend use "_id".
const (
	idKey       = "id"
	legacyIDKey = "_id"
)

// MarshalJSON encodes the record as a flat object with the identifier under
// "id" next to its fields.
func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		flat[k] = v
	}
	if r.ID != "" {
		flat[idKey] = r.ID
	}
	return json.Marshal(flat)
}

// UnmarshalJSON decodes a flat object. The identifier is taken from "id" or
// "_id"; numeric identifiers are converted to their decimal string form.
func (r *Record) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	if flat == nil {
		return ErrInvalidData
	}
	rec, err := RecordFromMap(flat)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// RecordFromMap builds a Record from a decoded flat object.
func RecordFromMap(flat map[string]any) (Record, error) {
	var rec Record
	for _, key := range []string{idKey, legacyIDKey} {
		raw, ok := flat[key]
		if !ok || raw == nil {
			continue
		}
		id, err := FormatID(raw)
		if err != nil {
			return Record{}, err
		}
		rec.ID = id
		break
	}
	rec.Fields = make(Fields, len(flat))
	for k, v := range flat {
		if k == idKey || k == legacyIDKey {
			continue
		}
		rec.Fields[k] = v
	}
	return rec, nil
}

// FormatID converts a decoded identifier to its string form.
func FormatID(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("%w: identifier of type %T", ErrInvalidID, raw)
	}
}
