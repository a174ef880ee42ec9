// Package repository contains the database access layer. Each aggregate
// gets its own repository struct backed by database/sql.
package repository

import (
	"database/sql"
)

// Queryer is satisfied by both *sql.DB and *sql.Tx so repositories can
// participate in caller-managed transactions. State transitions that
// touch multiple rows must go through a single transaction.
type Queryer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}
