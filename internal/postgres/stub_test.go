package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// stubConn is an in-memory driver.Conn understanding the statements the
// store issues against agency_records.
type stubConn struct {
	mu       sync.Mutex
	execs    []string
	rows     []stubRow
	failPing bool
	failExec bool
}

type stubRow struct {
	collection string
	id         string
	fields     string
}

type stubDriver struct{ conn *stubConn }

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func newStubDB() (*sql.DB, *stubConn) {
	conn := &stubConn{}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }

func (c *stubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return stubTx{}, nil
}

func (c *stubConn) Ping(context.Context) error {
	if c.failPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, query)
	if c.failExec {
		return nil, fmt.Errorf("exec fail")
	}
	q := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(q, "CREATE"):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(q, "INSERT"):
		row := stubRow{collection: str(args[0]), id: str(args[1]), fields: str(args[2])}
		if c.find(row.collection, row.id) >= 0 {
			return nil, fmt.Errorf("duplicate key")
		}
		c.rows = append(c.rows, row)
		return driver.RowsAffected(1), nil
	case strings.HasPrefix(q, "UPDATE"):
		i := c.find(str(args[1]), str(args[2]))
		if i < 0 {
			return driver.RowsAffected(0), nil
		}
		c.rows[i].fields = str(args[0])
		return driver.RowsAffected(1), nil
	case strings.HasPrefix(q, "DELETE"):
		i := c.find(str(args[0]), str(args[1]))
		if i < 0 {
			return driver.RowsAffected(0), nil
		}
		c.rows = append(c.rows[:i], c.rows[i+1:]...)
		return driver.RowsAffected(1), nil
	}
	return nil, fmt.Errorf("unsupported exec: %s", query)
}

func (c *stubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := strings.ToUpper(strings.TrimSpace(query))
	collection := str(args[0])
	switch {
	case strings.HasPrefix(q, "SELECT COUNT(*)"):
		var n int64
		for _, r := range c.rows {
			if r.collection == collection {
				n++
			}
		}
		return &stubRows{cols: []string{"count"}, values: [][]driver.Value{{n}}}, nil
	case strings.HasPrefix(q, "SELECT RECORD_ID, FIELDS"):
		out := &stubRows{cols: []string{"record_id", "fields"}}
		for _, r := range c.rows {
			if r.collection == collection {
				out.values = append(out.values, []driver.Value{r.id, r.fields})
			}
		}
		return out, nil
	case strings.HasPrefix(q, "SELECT FIELDS"):
		out := &stubRows{cols: []string{"fields"}}
		if i := c.find(collection, str(args[1])); i >= 0 {
			out.values = append(out.values, []driver.Value{c.rows[i].fields})
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported query: %s", query)
}

func (c *stubConn) find(collection, id string) int {
	for i, r := range c.rows {
		if r.collection == collection && r.id == id {
			return i
		}
	}
	return -1
}

func str(v driver.NamedValue) string {
	switch x := v.Value.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	}
	return fmt.Sprint(v.Value)
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	cols   []string
	values [][]driver.Value
	idx    int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.idx])
	r.idx++
	return nil
}
