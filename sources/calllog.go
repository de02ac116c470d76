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
	"fmt"

	"crawshaw.io/sqlite"
	"github.com/rs/zerolog"

	"github.com/forensicanalysis/droidtimeline/dbutil"
	"github.com/forensicanalysis/droidtimeline/timeline"
)

const callLogQuery = `SELECT _id, number, type, duration, date FROM calls ORDER BY date DESC`

// CallType maps the integer type column of the calls table.
func CallType(code int64) string {
	switch code {
	case 1:
		return "INCOMING"
	case 2:
		return "OUTGOING"
	case 3:
		return "MISSED"
	default:
		return "OTHER"
	}
}

// NewCallLog reads calllog.db.
func NewCallLog(path string, log zerolog.Logger) Extractor {
	return &database{
		name:     "calllog",
		category: timeline.Call,
		path:     path,
		query:    staticQuery(callLogQuery),
		row:      callRow,
		log:      log.With().Str("source", "calllog").Logger(),
	}
}

func callRow(stmt *sqlite.Stmt) (timeline.Event, bool) {
	if dbutil.IsNull(stmt, 0) {
		return timeline.Event{}, false
	}
	code, _ := dbutil.Int64(stmt, 2)
	duration, _ := dbutil.Int64(stmt, 3)
	date, _ := dbutil.Int64(stmt, 4)
	return timeline.Event{
		Timestamp: timeline.FromMillis(date),
		Category:  timeline.Call,
		Label:     CallType(code) + " call",
		Details:   fmt.Sprintf("Number: %s, Duration: %d sec", stmt.ColumnText(1), duration),
	}, true
}
