// Package fake provides in-memory stand-ins for the pool interfaces.
//
// A Script routes each statement to a canned Result by SQL substring,
// so repository methods which run several statements in one transaction
// can be exercised without a database.
package fake

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgproto3/v2"
	"github.com/jackc/pgx/v4"

	kpool "github.com/expfab/expfab/pkg/conn/db/postgres/pool"
)

// Result is what a scripted statement yields.
//
// Rows is the result set, one slice per row. A nil Rows with nil Err
// means "no rows": QueryRow.Scan sees pgx.ErrNoRows, Query sees an
// empty set.
type Result struct {
	Rows [][]interface{}
	Err  error
}

// Script maps a SQL substring to its Result.
//
// Statements are whitespace-flattened before matching, so keys are
// written in single-space form. Keys should be chosen so that at most
// one matches each statement the testee sends.
type Script map[string]Result

func flatten(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

func (s Script) find(sql string) (Result, bool) {
	flat := flatten(sql)
	for key, result := range s {
		if strings.Contains(flat, key) {
			return result, true
		}
	}
	return Result{}, false
}

// Query is a recorded statement.
type Query struct {
	SQL  string
	Args []interface{}
}

type Pool struct {
	Script Script

	NextBegin   error
	NextAcquire error

	// transactions and connections handed out, in order.
	Txs   []*Tx
	Conns []*Conn
}

var _ kpool.Pool = &Pool{}

func New(script Script) *Pool {
	return &Pool{Script: script}
}

func (p *Pool) Begin(ctx context.Context) (kpool.Tx, error) {
	if p.NextBegin != nil {
		return nil, p.NextBegin
	}
	tx := &Tx{Script: p.Script}
	p.Txs = append(p.Txs, tx)
	return tx, nil
}

func (p *Pool) Acquire(ctx context.Context) (kpool.Conn, error) {
	if p.NextAcquire != nil {
		return nil, p.NextAcquire
	}
	conn := &Conn{Script: p.Script}
	p.Conns = append(p.Conns, conn)
	return conn, nil
}

func (p *Pool) Ping(ctx context.Context) error { return nil }

type Tx struct {
	Script Script

	NextCommit error

	Log        []Query
	Committed  bool
	RolledBack bool
}

var _ kpool.Tx = &Tx{}

func (tx *Tx) Begin(ctx context.Context) (kpool.Tx, error) {
	sub := &Tx{Script: tx.Script}
	return sub, nil
}

func (tx *Tx) Commit(ctx context.Context) error {
	if tx.NextCommit != nil {
		return tx.NextCommit
	}
	tx.Committed = true
	return nil
}

func (tx *Tx) Rollback(ctx context.Context) error {
	// rollback after commit is the usual deferred cleanup. not recorded.
	if !tx.Committed {
		tx.RolledBack = true
	}
	return nil
}

func (tx *Tx) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	tx.Log = append(tx.Log, Query{SQL: sql, Args: arguments})
	result, ok := tx.Script.find(sql)
	if !ok {
		return nil, fmt.Errorf("unscripted statement: %s", flatten(sql))
	}
	return pgconn.CommandTag{}, result.Err
}

func (tx *Tx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	tx.Log = append(tx.Log, Query{SQL: sql, Args: args})
	return queryScript(tx.Script, sql)
}

func (tx *Tx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	tx.Log = append(tx.Log, Query{SQL: sql, Args: args})
	return queryRowScript(tx.Script, sql)
}

type Conn struct {
	Script Script

	Log      []Query
	Released bool
}

var _ kpool.Conn = &Conn{}

func (c *Conn) Begin(ctx context.Context) (kpool.Tx, error) {
	return &Tx{Script: c.Script}, nil
}

func (c *Conn) Release() { c.Released = true }

func (c *Conn) Ping(ctx context.Context) error { return nil }

func (c *Conn) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	c.Log = append(c.Log, Query{SQL: sql, Args: arguments})
	result, ok := c.Script.find(sql)
	if !ok {
		return nil, fmt.Errorf("unscripted statement: %s", flatten(sql))
	}
	return pgconn.CommandTag{}, result.Err
}

func (c *Conn) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	c.Log = append(c.Log, Query{SQL: sql, Args: args})
	return queryScript(c.Script, sql)
}

func (c *Conn) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	c.Log = append(c.Log, Query{SQL: sql, Args: args})
	return queryRowScript(c.Script, sql)
}

func queryScript(script Script, sql string) (pgx.Rows, error) {
	result, ok := script.find(sql)
	if !ok {
		return nil, fmt.Errorf("unscripted statement: %s", flatten(sql))
	}
	if result.Err != nil {
		return nil, result.Err
	}
	return &Rows{rows: result.Rows}, nil
}

func queryRowScript(script Script, sql string) pgx.Row {
	result, ok := script.find(sql)
	if !ok {
		return &Row{Err: fmt.Errorf("unscripted statement: %s", flatten(sql))}
	}
	if result.Err != nil {
		return &Row{Err: result.Err}
	}
	if len(result.Rows) == 0 {
		return &Row{Err: pgx.ErrNoRows}
	}
	return &Row{Values: result.Rows[0]}
}

type Row struct {
	Values []interface{}
	Err    error
}

var _ pgx.Row = &Row{}

func (r *Row) Scan(dest ...interface{}) error {
	if r.Err != nil {
		return r.Err
	}
	return scanInto(r.Values, dest)
}

type Rows struct {
	rows [][]interface{}
	next int
	err  error
}

var _ pgx.Rows = &Rows{}

func (r *Rows) Close()                        {}
func (r *Rows) Err() error                    { return r.err }
func (r *Rows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *Rows) FieldDescriptions() []pgproto3.FieldDescription {
	return []pgproto3.FieldDescription{}
}

func (r *Rows) Next() bool {
	if r.next < len(r.rows) {
		r.next++
		return true
	}
	return false
}

func (r *Rows) Scan(dest ...interface{}) error {
	if r.next == 0 || len(r.rows) < r.next {
		return fmt.Errorf("Scan without Next")
	}
	return scanInto(r.rows[r.next-1], dest)
}

func (r *Rows) Values() ([]interface{}, error) {
	if r.next == 0 || len(r.rows) < r.next {
		return nil, fmt.Errorf("Values without Next")
	}
	return r.rows[r.next-1], nil
}

func (r *Rows) RawValues() [][]byte { return [][]byte{} }

func scanInto(values []interface{}, dest []interface{}) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values into %d destinations", len(values), len(dest))
	}
	for i, v := range values {
		if scanner, ok := dest[i].(sql.Scanner); ok {
			if err := scanner.Scan(v); err != nil {
				return err
			}
			continue
		}
		target := reflect.ValueOf(dest[i])
		if target.Kind() != reflect.Pointer || target.IsNil() {
			return fmt.Errorf("scan: destination %d is not a pointer", i)
		}
		value := reflect.ValueOf(v)
		elem := target.Elem()
		if !value.Type().AssignableTo(elem.Type()) {
			if !value.Type().ConvertibleTo(elem.Type()) {
				return fmt.Errorf(
					"scan: cannot assign %s to %s", value.Type(), elem.Type(),
				)
			}
			value = value.Convert(elem.Type())
		}
		elem.Set(value)
	}
	return nil
}
