package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// Table is the types.Gateway of one collection. Every write updates SQLite
// and rewrites the collection's JSONL file inside the same transaction.
type Table struct {
	backend    *Backend
	collection string
}

func newTable(b *Backend, collection string) *Table {
	return &Table{backend: b, collection: collection}
}

// db returns the open database, or ErrBackendClosed after Detach.
func (t *Table) db(ctx context.Context) (*sql.DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()
	if !t.backend.attached {
		return nil, types.ErrBackendClosed
	}
	return t.backend.db, nil
}

func (t *Table) notFound(id string) error {
	return &types.NotFoundError{Collection: t.collection, ID: id}
}

func (t *Table) List(ctx context.Context) ([]types.Record, error) {
	db, err := t.db(ctx)
	if err != nil {
		return nil, err
	}
	return queryRecords(ctx, db, t.collection)
}

func (t *Table) Get(ctx context.Context, id string) (types.Record, error) {
	db, err := t.db(ctx)
	if err != nil {
		return types.Record{}, err
	}
	var raw string
	err = db.QueryRowContext(ctx,
		"SELECT fields FROM records WHERE collection = ? AND record_id = ?",
		t.collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, t.notFound(id)
	}
	if err != nil {
		return types.Record{}, fmt.Errorf("get %s/%s: %w", t.collection, id, err)
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return types.Record{}, err
	}
	return types.Record{ID: id, Fields: fields}, nil
}

func (t *Table) Create(ctx context.Context, fields types.Fields) (types.Record, error) {
	rec := types.Record{ID: uuid.Must(uuid.NewV7()).String(), Fields: fields.Clone()}
	if rec.Fields == nil {
		rec.Fields = types.Fields{}
	}
	encoded, err := encodeFields(rec.Fields)
	if err != nil {
		return types.Record{}, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	err = t.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO records (collection, record_id, position, fields)
			 VALUES (?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM records WHERE collection = ?), ?)`,
			t.collection, rec.ID, t.collection, encoded)
		return err
	})
	if err != nil {
		return types.Record{}, err
	}
	return rec, nil
}

func (t *Table) Update(ctx context.Context, id string, fields types.Fields) (types.Record, error) {
	rec := types.Record{ID: id, Fields: fields.Clone()}
	if rec.Fields == nil {
		rec.Fields = types.Fields{}
	}
	encoded, err := encodeFields(rec.Fields)
	if err != nil {
		return types.Record{}, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	err = t.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE records SET fields = ? WHERE collection = ? AND record_id = ?",
			encoded, t.collection, id)
		if err != nil {
			return err
		}
		return t.expectRow(res, id)
	})
	if err != nil {
		return types.Record{}, err
	}
	return rec, nil
}

func (t *Table) Remove(ctx context.Context, id string) error {
	return t.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM records WHERE collection = ? AND record_id = ?",
			t.collection, id)
		if err != nil {
			return err
		}
		return t.expectRow(res, id)
	})
}

func (t *Table) expectRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return t.notFound(id)
	}
	return nil
}

// write runs change in a transaction and persists the collection to JSONL
// before committing. Writes hold the backend lock exclusively so the file
// and the table cannot diverge between concurrent writers.
func (t *Table) write(ctx context.Context, change func(*sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := t.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrBackendClosed
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := change(tx); err != nil {
		var nf *types.NotFoundError
		if errors.As(err, &nf) {
			return err
		}
		return fmt.Errorf("write %s: %w", t.collection, err)
	}
	records, err := queryRecords(ctx, tx, t.collection)
	if err != nil {
		return err
	}
	if err := writeJSONL(collectionFile(b.dataDir, t.collection), records); err != nil {
		return fmt.Errorf("persist %s: %w", t.collection, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", t.collection, err)
	}
	b.log.Debugw("persisted collection", "collection", t.collection, "records", len(records))
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryRecords(ctx context.Context, q querier, collection string) ([]types.Record, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT record_id, fields FROM records WHERE collection = ? ORDER BY position",
		collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	records := []types.Record{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", collection, err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, types.Record{ID: id, Fields: fields})
	}
	return records, rows.Err()
}
