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
	"crawshaw.io/sqlite"
	"github.com/rs/zerolog"

	"github.com/forensicanalysis/droidtimeline/dbutil"
	"github.com/forensicanalysis/droidtimeline/timeline"
)

// SMSType maps the type column of the sms table to an event label.
func SMSType(code int64) string {
	switch code {
	case 1:
		return "Received"
	case 2:
		return "Sent"
	case 3:
		return "Draft"
	case 4:
		return "Outbox"
	case 5:
		return "Failed"
	case 6:
		return "Queued"
	default:
		return "Other"
	}
}

// NewSMS reads the sms table of mmssms.db.
func NewSMS(path string, log zerolog.Logger) Extractor {
	return &database{
		name:     "sms",
		category: timeline.SMS,
		path:     path,
		query:    staticQuery(`SELECT _id, address, date, type, body FROM sms ORDER BY date DESC`),
		row:      smsRow,
		log:      log.With().Str("source", "sms").Logger(),
	}
}

func smsRow(stmt *sqlite.Stmt) (timeline.Event, bool) {
	if dbutil.IsNull(stmt, 0) {
		return timeline.Event{}, false
	}
	date, _ := dbutil.Int64(stmt, 2)
	code, _ := dbutil.Int64(stmt, 3)
	address, body := stmt.ColumnText(1), stmt.ColumnText(4)

	label := SMSType(code)
	var details string
	switch label {
	case "Received":
		details = "Received SMS | Sender: " + address + ", Body: " + body
	case "Other":
		details = "SMS | Address: " + address + ", Body: " + body
	default:
		details = label + " SMS | Recipient: " + address + ", Body: " + body
	}
	return timeline.Event{
		Timestamp: timeline.FromMillis(date),
		Category:  timeline.SMS,
		Label:     label,
		Details:   details,
	}, true
}
