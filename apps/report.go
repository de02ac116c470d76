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

package apps

// SkipReason explains why a database row produced no record.
type SkipReason string

// Skip reasons.
const (
	SkipMissingID          SkipReason = "missing_message_id"
	SkipBadPeerID          SkipReason = "bad_peer_id"
	SkipUndecodablePayload SkipReason = "undecodable_payload"
)

// RowResult is either a record or the reason the row was skipped.
type RowResult struct {
	Record ChatMessageRecord
	Skip   SkipReason
}

// Skipped returns a result for a dropped row.
func Skipped(reason SkipReason) RowResult {
	return RowResult{Skip: reason}
}

// Parsed returns a result carrying a record.
func Parsed(record ChatMessageRecord) RowResult {
	return RowResult{Record: record}
}

// OK reports whether the row yielded a record.
func (r RowResult) OK() bool { return r.Skip == "" }

// ParseReport counts the row outcomes of one parse.
type ParseReport struct {
	Parsed  int                `json:"parsed"`
	Skipped int                `json:"skipped"`
	Empty   int                `json:"empty"`
	Reasons map[SkipReason]int `json:"reasons,omitempty"`

	// SchemaVersion is the user_version of the parsed database.
	SchemaVersion int64  `json:"schema_version,omitempty"`
	// Format names the fixed layout binary payloads were decoded with.
	Format        string `json:"format,omitempty"`
}

// Add counts a row result.
func (r *ParseReport) Add(res RowResult) {
	if !res.OK() {
		r.Skipped++
		if r.Reasons == nil {
			r.Reasons = map[SkipReason]int{}
		}
		r.Reasons[res.Skip]++
		return
	}
	r.Parsed++
	if res.Record.Payload.Kind == PayloadEmpty {
		r.Empty++
	}
}
