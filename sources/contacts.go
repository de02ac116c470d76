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

const contactsQuery = `
SELECT
  c._id AS contact_id,
  dn.data1 AS display_name,
  c.contact_last_updated_timestamp AS last_updated,
  (SELECT ph.data1 FROM data AS ph
     WHERE ph.raw_contact_id = rc._id
       AND ph.mimetype_id = (SELECT _id FROM mimetypes WHERE mimetype = 'vnd.android.cursor.item/phone_v2')
     LIMIT 1) AS phone
FROM contacts AS c
JOIN raw_contacts AS rc
  ON rc.contact_id = c._id
JOIN data AS dn
  ON dn.raw_contact_id = rc._id
 AND dn.mimetype_id = (
       SELECT _id FROM mimetypes WHERE mimetype = 'vnd.android.cursor.item/name'
     )
GROUP BY c._id
ORDER BY c.contact_last_updated_timestamp DESC`

// NewContacts reads contacts2.db and emits one event per contact with its
// current display name.
func NewContacts(path string, log zerolog.Logger) Extractor {
	return &database{
		name:     "contacts",
		category: timeline.Contact,
		path:     path,
		query:    staticQuery(contactsQuery),
		row:      contactRow,
		log:      log.With().Str("source", "contacts").Logger(),
	}
}

func contactRow(stmt *sqlite.Stmt) (timeline.Event, bool) {
	id, ok := dbutil.Int64(stmt, 0)
	if !ok {
		return timeline.Event{}, false
	}
	details := fmt.Sprintf("ID: %d, Name: %s", id, stmt.ColumnText(1))
	if phone := stmt.ColumnText(3); phone != "" {
		details += ", Phone: " + phone
	}
	updated, _ := dbutil.Int64(stmt, 2)
	return timeline.Event{
		Timestamp: timeline.FromMillis(updated),
		Category:  timeline.Contact,
		Label:     "Contact updated",
		Details:   details,
	}, true
}
