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

// Package sources extracts timeline events from the well known Android system
// databases, the media files of the shared storage and network captures.
//
// The absence of an artifact is expected: every extractor reports it through
// Present and returns an empty sequence instead of an error.
package sources

import (
	"context"
	"os"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/forensicanalysis/droidtimeline/dbutil"
	"github.com/forensicanalysis/droidtimeline/timeline"
)

// Extractor produces the events of a single source.
type Extractor interface {
	Name() string
	Category() timeline.Category
	// Present reports whether the backing file or directory exists.
	Present() bool
	Extract(ctx context.Context) ([]timeline.Event, error)
}

// checkInterval is the number of rows or packets between cancellation checks.
const checkInterval = 256

type rowFunc func(stmt *sqlite.Stmt) (timeline.Event, bool)

// database is an Extractor that runs one query against one system database
// and converts every row.
type database struct {
	name     string
	category timeline.Category
	path     string
	query    func(conn *sqlite.Conn) (string, error)
	row      rowFunc
	log      zerolog.Logger
}

func (d *database) Name() string                { return d.name }
func (d *database) Category() timeline.Category { return d.category }

func (d *database) Present() bool {
	info, err := os.Stat(d.path)
	return err == nil && !info.IsDir()
}

func (d *database) Extract(ctx context.Context) ([]timeline.Event, error) {
	if !d.Present() {
		d.log.Info().Str("path", d.path).Msg("database not found")
		return nil, nil
	}

	conn, err := dbutil.Open(d.path)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query, err := d.query(conn)
	if err != nil {
		return nil, err
	}

	var events []timeline.Event
	rows, skipped := 0, 0
	err = sqlitex.Exec(conn, query, func(stmt *sqlite.Stmt) error {
		rows++
		if rows%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		event, ok := d.row(stmt)
		if !ok {
			skipped++
			return nil
		}
		events = append(events, event)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not query %s", d.path)
	}
	if skipped > 0 {
		d.log.Warn().Int("skipped", skipped).Int("rows", rows).Msg("malformed rows skipped")
	}
	return events, nil
}

func staticQuery(query string) func(*sqlite.Conn) (string, error) {
	return func(*sqlite.Conn) (string, error) { return query, nil }
}
