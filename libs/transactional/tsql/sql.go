// Package tsql provides a common interface over *sql.DB and *sql.Tx so a
// data access layer can run the same queries inside and outside a
// transaction.
package tsql

import (
	"context"
	"database/sql"
	"errors"
)

// DB is the set of query methods shared by *sql.DB and *sql.Tx.
type DB interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Prepare(query string) (*sql.Stmt, error)
	Begin() (Tx, error)
}

// Tx is a transaction that satisfies the DB interface.
type Tx interface {
	DB
	Rollback() error
	Commit() error
}

// AsDB wraps a *sql.DB to conform to the tsql interfaces.
func AsDB(s *sql.DB) DB {
	return &db{s}
}

type db struct {
	*sql.DB
}

func (db *db) Begin() (Tx, error) {
	t, err := db.DB.Begin()
	if err != nil {
		return nil, err
	}
	return &tx{t}, nil
}

type tx struct {
	*sql.Tx
}

func (tx *tx) Begin() (Tx, error) {
	return nil, errors.New("tsql: cannot call Begin on an existing transaction")
}

// AsSafeTx wraps a transaction so that nested Begin returns the transaction
// itself and Rollback and Commit are noops. The owner of the real transaction
// keeps sole control over its lifetime.
func AsSafeTx(t Tx) Tx {
	return &safeTx{t}
}

type safeTx struct {
	Tx
}

func (tx *safeTx) Begin() (Tx, error) {
	return tx, nil
}

func (tx *safeTx) Rollback() error {
	return nil
}

func (tx *safeTx) Commit() error {
	return nil
}
