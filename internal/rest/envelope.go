package rest

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// Envelope is the body of every response.
type Envelope struct {
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// ListEnvelope is the success body of a list request: records under the
// collection name.
type ListEnvelope struct {
	Data    map[string][]types.Record `json:"data"`
	Message string                    `json:"message,omitempty"`
}

// RecordEnvelope is the success body of a single-record request: the record
// under the singular name.
type RecordEnvelope struct {
	Data    map[string]types.Record `json:"data"`
	Message string                  `json:"message,omitempty"`
}

// TokenData is the data of a sign-in response.
type TokenData struct {
	Token string `json:"token"`
}

// TokenEnvelope is the success body of a sign-in request.
type TokenEnvelope struct {
	Data    TokenData `json:"data"`
	Message string    `json:"message,omitempty"`
}

var errMalformed = fmt.Errorf("%w: malformed response envelope", types.ErrInvalidData)

// decodeList narrows data to a record list. data is either the list itself
// or an object holding it under key.
func decodeList(data json.RawMessage, key string) ([]types.Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errMalformed
	}
	if data[0] == '{' {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, err
		}
		inner, ok := wrapped[key]
		if !ok {
			return nil, fmt.Errorf("%w: no %q in data", errMalformed, key)
		}
		data = inner
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]types.Record, 0, len(raw))
	for _, m := range raw {
		rec, err := types.RecordFromMap(m)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// decodeRecord narrows data to the record stored under key. A bare record
// is accepted only when it carries an identifier. When wantID is set, a
// record naming another identifier is rejected.
func decodeRecord(data json.RawMessage, key, wantID string) (types.Record, error) {
	var obj map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &obj); err != nil || obj == nil {
		return types.Record{}, errMalformed
	}
	if raw, ok := obj[key]; ok {
		inner, isObj := raw.(map[string]any)
		if !isObj || inner == nil {
			return types.Record{}, fmt.Errorf("%w: %q is not an object", errMalformed, key)
		}
		obj = inner
	} else if !hasID(obj) {
		return types.Record{}, fmt.Errorf("%w: no %q in data", errMalformed, key)
	}
	rec, err := types.RecordFromMap(obj)
	if err != nil {
		return types.Record{}, err
	}
	if wantID != "" && rec.ID != "" && rec.ID != wantID {
		return types.Record{}, fmt.Errorf("%w: record %q in response to %q", errMalformed, rec.ID, wantID)
	}
	return rec, nil
}

func hasID(obj map[string]any) bool {
	for _, k := range []string{"id", "_id"} {
		if v, ok := obj[k]; ok && v != nil {
			return true
		}
	}
	return false
}

// emptyData reports whether a response carried no data, as a message-only
// acknowledgement does.
func emptyData(data json.RawMessage) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}
