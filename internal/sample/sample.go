// Package sample provides the records every backend starts from when it has
// no data of its own.
package sample

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

//go:embed records.yaml
var recordsYAML []byte

var (
	loadOnce sync.Once
	loaded   map[string][]types.Record
	loadErr  error
)

func load() (map[string][]types.Record, error) {
	loadOnce.Do(func() {
		var raw map[string][]map[string]any
		if err := yaml.Unmarshal(recordsYAML, &raw); err != nil {
			loadErr = fmt.Errorf("decoding sample records: %w", err)
			return
		}
		loaded = make(map[string][]types.Record, len(raw))
		for collection, items := range raw {
			records := make([]types.Record, 0, len(items))
			for _, item := range items {
				rec, err := types.RecordFromMap(normalize(item).(map[string]any))
				if err != nil {
					loadErr = fmt.Errorf("sample %s: %w", collection, err)
					return
				}
				records = append(records, rec)
			}
			loaded[collection] = records
		}
	})
	return loaded, loadErr
}

// Records returns a copy of the sample records of collection. Collections
// without samples yield an empty slice.
func Records(collection string) ([]types.Record, error) {
	if _, err := types.LookupCollection(collection); err != nil {
		return nil, err
	}
	all, err := load()
	if err != nil {
		return nil, err
	}
	src := all[collection]
	out := make([]types.Record, len(src))
	for i, r := range src {
		out[i] = r.Clone()
	}
	return out, nil
}

// normalize converts decoded YAML values to the shapes JSON decoding
// produces, so sample records compare equal to records read back from any
// gateway.
func normalize(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	default:
		return v
	}
}
