// Package postgres implements a types.Backend over a shared Postgres table.
// Records of every collection live in one table with their fields as JSONB.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"go.uber.org/zap"

	"github.com/mesh-intelligence/agencydesk/internal/sample"
	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

var _ types.Backend = (*Backend)(nil)

const defaultDriver = "pgx"

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS agency_records (
		collection TEXT NOT NULL,
		record_id TEXT NOT NULL,
		position BIGSERIAL,
		fields JSONB NOT NULL,
		PRIMARY KEY (collection, record_id)
	)`,
	`CREATE INDEX IF NOT EXISTS agency_records_position ON agency_records (collection, position)`,
}

// Backend hands out one Table per standard collection.
type Backend struct {
	db  *sql.DB
	log *zap.SugaredLogger

	mu     sync.RWMutex
	closed bool
}

// Open connects to dsn, pings the server, and ensures the records table.
func Open(ctx context.Context, dsn string, log *zap.SugaredLogger) (*Backend, error) {
	if dsn == "" {
		return nil, types.ErrDSNMissing
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute ddl: %w", err)
		}
	}
	return &Backend{db: db, log: log}, nil
}

// Gateway returns the table of a standard collection.
func (b *Backend) Gateway(collection string) (types.Gateway, error) {
	if _, err := types.LookupCollection(collection); err != nil {
		return nil, err
	}
	if b.isClosed() {
		return nil, types.ErrBackendClosed
	}
	return &Table{backend: b, collection: collection}, nil
}

// SeedSamples inserts the sample records into every collection that holds no
// rows. It returns the names of the seeded collections.
func (b *Backend) SeedSamples(ctx context.Context) ([]string, error) {
	if b.isClosed() {
		return nil, types.ErrBackendClosed
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seeded []string
	for _, name := range types.StandardCollectionNames() {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM agency_records WHERE collection = $1`, name).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		if n > 0 {
			continue
		}
		records, err := sample.Records(name)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			payload, err := json.Marshal(rec.Fields)
			if err != nil {
				return nil, fmt.Errorf("encode %s/%s: %w", name, rec.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO agency_records (collection, record_id, fields) VALUES ($1, $2, $3)`,
				name, rec.ID, string(payload)); err != nil {
				return nil, fmt.Errorf("seed %s/%s: %w", name, rec.ID, err)
			}
		}
		seeded = append(seeded, name)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit seed: %w", err)
	}
	if len(seeded) > 0 {
		b.log.Infow("seeded sample records", "collections", seeded)
	}
	return seeded, nil
}

// Close closes the connection pool. Idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

func (b *Backend) isClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// Table is the gateway of one collection.
type Table struct {
	backend    *Backend
	collection string
}

func (t *Table) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.backend.isClosed() {
		return types.ErrBackendClosed
	}
	return nil
}

func (t *Table) notFound(id string) error {
	return &types.NotFoundError{Collection: t.collection, ID: id}
}

func (t *Table) List(ctx context.Context) ([]types.Record, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	rows, err := t.backend.db.QueryContext(ctx,
		`SELECT record_id, fields FROM agency_records WHERE collection = $1 ORDER BY position`,
		t.collection)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.collection, err)
	}
	defer func() { _ = rows.Close() }()

	records := []types.Record{}
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.collection, err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, types.Record{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.collection, err)
	}
	return records, nil
}

func (t *Table) Get(ctx context.Context, id string) (types.Record, error) {
	if err := t.check(ctx); err != nil {
		return types.Record{}, err
	}
	var raw []byte
	err := t.backend.db.QueryRowContext(ctx,
		`SELECT fields FROM agency_records WHERE collection = $1 AND record_id = $2`,
		t.collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, t.notFound(id)
	}
	if err != nil {
		return types.Record{}, fmt.Errorf("select %s/%s: %w", t.collection, id, err)
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return types.Record{}, err
	}
	return types.Record{ID: id, Fields: fields}, nil
}

func (t *Table) Create(ctx context.Context, fields types.Fields) (types.Record, error) {
	if err := t.check(ctx); err != nil {
		return types.Record{}, err
	}
	rec := types.Record{ID: uuid.Must(uuid.NewV7()).String(), Fields: fields.Clone()}
	if rec.Fields == nil {
		rec.Fields = types.Fields{}
	}
	payload, err := json.Marshal(rec.Fields)
	if err != nil {
		return types.Record{}, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	if _, err := t.backend.db.ExecContext(ctx,
		`INSERT INTO agency_records (collection, record_id, fields) VALUES ($1, $2, $3)`,
		t.collection, rec.ID, string(payload)); err != nil {
		return types.Record{}, fmt.Errorf("insert %s: %w", t.collection, err)
	}
	return rec, nil
}

func (t *Table) Update(ctx context.Context, id string, fields types.Fields) (types.Record, error) {
	if err := t.check(ctx); err != nil {
		return types.Record{}, err
	}
	rec := types.Record{ID: id, Fields: fields.Clone()}
	if rec.Fields == nil {
		rec.Fields = types.Fields{}
	}
	payload, err := json.Marshal(rec.Fields)
	if err != nil {
		return types.Record{}, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	res, err := t.backend.db.ExecContext(ctx,
		`UPDATE agency_records SET fields = $1 WHERE collection = $2 AND record_id = $3`,
		string(payload), t.collection, id)
	if err != nil {
		return types.Record{}, fmt.Errorf("update %s/%s: %w", t.collection, id, err)
	}
	if err := t.expectRow(res, id); err != nil {
		return types.Record{}, err
	}
	return rec, nil
}

func (t *Table) Remove(ctx context.Context, id string) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	res, err := t.backend.db.ExecContext(ctx,
		`DELETE FROM agency_records WHERE collection = $1 AND record_id = $2`,
		t.collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", t.collection, id, err)
	}
	return t.expectRow(res, id)
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

func decodeFields(raw []byte) (types.Fields, error) {
	fields := types.Fields{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	return fields, nil
}

// OverrideSQLOpen swaps the function used to open connections and returns a
// restore func. Tests use it to inject a stub driver.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
