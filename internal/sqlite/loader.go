package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// loadAllJSONL reads every collection file from dataDir into the records
// table. Loading is transactional: all collections load or the table stays
// empty. A repeated identifier keeps its first occurrence.
func loadAllJSONL(db *sql.DB, dataDir string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO records (collection, record_id, position, fields) VALUES (?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	total := 0
	for _, name := range types.StandardCollectionNames() {
		records, err := readJSONL(collectionFile(dataDir, name))
		if err != nil {
			return 0, err
		}
		for i, rec := range records {
			fields, err := encodeFields(rec.Fields)
			if err != nil {
				return 0, fmt.Errorf("encoding %s/%s: %w", name, rec.ID, err)
			}
			if _, err := stmt.Exec(name, rec.ID, i, fields); err != nil {
				return 0, fmt.Errorf("loading %s/%s: %w", name, rec.ID, err)
			}
		}
		total += len(records)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing load transaction: %w", err)
	}
	return total, nil
}

func encodeFields(fields types.Fields) (string, error) {
	if fields == nil {
		fields = types.Fields{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeFields(raw string) (types.Fields, error) {
	var fields types.Fields
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	if fields == nil {
		fields = types.Fields{}
	}
	return fields, nil
}
