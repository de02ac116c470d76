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

package sources

import (
	"strings"

	"crawshaw.io/sqlite"
	"github.com/rs/zerolog"

	"github.com/forensicanalysis/droidtimeline/dbutil"
	"github.com/forensicanalysis/droidtimeline/timeline"
)

// NewCalendar reads the Events table of calendar.db. Rows flagged as deleted
// are left out.
func NewCalendar(path string, log zerolog.Logger) Extractor {
	return &database{
		name:     "calendar",
		category: timeline.Calendar,
		path:     path,
		query:    calendarQuery,
		row:      calendarRow,
		log:      log.With().Str("source", "calendar").Logger(),
	}
}

func calendarQuery(conn *sqlite.Conn) (string, error) {
	columns, err := dbutil.Columns(conn, "Events")
	if err != nil {
		return "", err
	}
	location := "NULL"
	if columns["eventLocation"] {
		location = "eventLocation"
	}
	query := "SELECT _id, title, dtstart, dtend, " + location + " FROM Events"
	if columns["deleted"] {
		query += " WHERE deleted = 0"
	}
	return query + " ORDER BY dtstart DESC", nil
}

func calendarRow(stmt *sqlite.Stmt) (timeline.Event, bool) {
	if dbutil.IsNull(stmt, 0) {
		return timeline.Event{}, false
	}
	start, _ := dbutil.Int64(stmt, 2)
	parts := []string{"Title: " + stmt.ColumnText(1)}
	if location := stmt.ColumnText(4); location != "" {
		parts = append(parts, "Location: "+location)
	}
	if end, ok := dbutil.Int64(stmt, 3); ok {
		if ts := timeline.FromMillis(end); ts.Valid {
			parts = append(parts, "End: "+ts.Time().Format("2006-01-02 15:04:05"))
		}
	}
	return timeline.Event{
		Timestamp: timeline.FromMillis(start),
		Category:  timeline.Calendar,
		Label:     "Calendar event",
		Details:   strings.Join(parts, ", "),
	}, true
}
