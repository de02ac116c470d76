/*
 * Copyright (c) 2020 Siemens AG
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of
 * this software and associated documentation files (the "Software"), to deal in
 * the Software without restriction, including without limitation the rights to
 * use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
 * the Software, and to permit persons to whom the Software is furnished to do so,
 * subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
 * FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
 * COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 *
 * Author(s): Jonas Plum
 */

// Package dbutil provides read-only access to SQLite databases copied from a
// device. Connections are never shared: every parser opens, scans and closes
// its own.
package dbutil

import (
	"fmt"
	"sort"
	"strings"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/pkg/errors"
)

// Open opens an existing database read-only.
func Open(path string) (*sqlite.Conn, error) {
	conn, err := sqlite.OpenConn(path, sqlite.SQLITE_OPEN_READONLY|sqlite.SQLITE_OPEN_NOMUTEX)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", path)
	}
	return conn, nil
}

// Create opens or creates a writable database without WAL journaling, so the
// result can later be opened with Open. Nothing in the pipeline writes to
// device databases; Create exists to build fixtures.
func Create(path string) (*sqlite.Conn, error) {
	conn, err := sqlite.OpenConn(path, sqlite.SQLITE_OPEN_READWRITE|sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_NOMUTEX)
	if err != nil {
		return nil, errors.Wrapf(err, "could not create %s", path)
	}
	return conn, nil
}

// Pragma reads an integer pragma like user_version.
func Pragma(conn *sqlite.Conn, name string) (int64, error) {
	stmt, _, err := conn.PrepareTransient("PRAGMA " + name)
	if err != nil {
		return 0, err
	}
	defer stmt.Finalize() // nolint:errcheck
	hasRow, err := stmt.Step()
	if err != nil {
		return 0, err
	}
	if !hasRow {
		return 0, errors.Errorf("pragma %s returned no row", name)
	}
	return stmt.ColumnInt64(0), nil
}

// Tables lists all table names in alphabetical order.
func Tables(conn *sqlite.Conn) ([]string, error) {
	var tables []string
	err := sqlitex.Exec(conn, "SELECT name FROM sqlite_master WHERE type='table'", func(stmt *sqlite.Stmt) error {
		tables = append(tables, stmt.ColumnText(0))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(tables)
	return tables, nil
}

// TableExists reports whether a table with the given name exists.
func TableExists(conn *sqlite.Conn, name string) (bool, error) {
	exists := false
	err := sqlitex.Exec(conn, "SELECT 1 FROM sqlite_master WHERE type='table' AND name=?", func(stmt *sqlite.Stmt) error {
		exists = true
		return nil
	}, name)
	return exists, err
}

// Columns returns the column names of a table.
func Columns(conn *sqlite.Conn, table string) (map[string]bool, error) {
	columns := map[string]bool{}
	query := fmt.Sprintf("PRAGMA table_info (%s)", QuoteIdent(table))
	err := sqlitex.Exec(conn, query, func(stmt *sqlite.Stmt) error {
		columns[stmt.GetText("name")] = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return columns, nil
}

// QuoteIdent quotes a table or column name for use in a statement.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// IsNull reports whether column col of the current row is NULL.
func IsNull(stmt *sqlite.Stmt, col int) bool {
	return stmt.ColumnType(col) == sqlite.SQLITE_NULL
}

// Int64 returns column col as integer; ok is false for NULL and for values
// that are not stored as numbers.
func Int64(stmt *sqlite.Stmt, col int) (v int64, ok bool) {
	switch stmt.ColumnType(col) {
	case sqlite.SQLITE_INTEGER:
		return stmt.ColumnInt64(col), true
	case sqlite.SQLITE_FLOAT:
		return int64(stmt.ColumnFloat(col)), true
	default:
		return 0, false
	}
}

// Bytes copies a BLOB or TEXT column. NULL yields nil.
func Bytes(stmt *sqlite.Stmt, col int) []byte {
	if IsNull(stmt, col) {
		return nil
	}
	buf := make([]byte, stmt.ColumnLen(col))
	stmt.ColumnBytes(col, buf)
	return buf
}
