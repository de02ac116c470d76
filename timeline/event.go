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

// Package timeline defines the normalized event every source is converted
// into and fuses per source sequences into sorted per category and combined
// timelines.
//
// The timeline format
//
// Timelines are stored as CSV files with the header
//     timestamp,type,event,details
// One row per event. The timestamp holds Unix epoch seconds and is empty when
// the source did not provide a decodable time. The details field is always
// double quoted.
package timeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/stoewer/go-strcase"
)

// Category is the kind of activity an event describes.
type Category int

const (
	Contact Category = iota
	Call
	Calendar
	SMS
	Media
	Network
	AppActivity
)

var categoryNames = [...]string{"Contact", "Call", "Calendar", "SMS", "Media", "Network", "AppActivity"}

// Categories returns all categories in their canonical order.
func Categories() []Category {
	return []Category{Contact, Call, Calendar, SMS, Media, Network, AppActivity}
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// Token is the name used in the type column and as directory name,
// e.g. app_activity.
func (c Category) Token() string {
	return strcase.SnakeCase(c.String())
}

// ParseCategory is the inverse of Token.
func ParseCategory(token string) (Category, error) {
	for _, c := range Categories() {
		if c.Token() == token {
			return c, nil
		}
	}
	return 0, errors.Errorf("unknown category %q", token)
}

// Timestamp is an optional point in time in Unix epoch seconds.
type Timestamp struct {
	Seconds float64
	Valid   bool
}

// Null is the absent timestamp.
var Null = Timestamp{}

// At returns a valid timestamp.
func At(seconds float64) Timestamp {
	return Timestamp{Seconds: seconds, Valid: true}
}

// FromMillis converts Android's milliseconds since epoch. Zero and negative
// values are treated as not set.
func FromMillis(ms int64) Timestamp {
	if ms <= 0 {
		return Null
	}
	return At(float64(ms) / 1000)
}

// FromUnix converts whole seconds. Zero and negative values are treated as not
// set.
func FromUnix(s int64) Timestamp {
	if s <= 0 {
		return Null
	}
	return At(float64(s))
}

// FromTime converts t, the zero time is Null.
func FromTime(t time.Time) Timestamp {
	if t.IsZero() {
		return Null
	}
	return At(float64(t.UnixNano()) / 1e9)
}

// Time returns the timestamp as UTC time, or the zero time for Null.
func (t Timestamp) Time() time.Time {
	if !t.Valid {
		return time.Time{}
	}
	sec, frac := math.Modf(t.Seconds)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
}

func (t Timestamp) String() string {
	if !t.Valid {
		return ""
	}
	return strconv.FormatFloat(t.Seconds, 'f', -1, 64)
}

// ParseTimestamp reads the CSV representation written by String.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" {
		return Null, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Null, err
	}
	return At(f), nil
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006:01:02 15:04:05",
}

// ParseDateTime converts a formatted date time as found in databases and EXIF
// headers. Strings without zone are interpreted in loc. Unparsable input
// yields Null.
func ParseDateTime(s string, loc *time.Location) Timestamp {
	s = strings.TrimSpace(strings.SplitN(s, "\x00", 2)[0])
	if s == "" {
		return Null
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return FromTime(t)
		}
	}
	return Null
}

// Event is a single normalized timeline entry.
type Event struct {
	Timestamp Timestamp
	Category  Category
	Label     string
	Details   string
	// SourceApp names the app parser for AppActivity events.
	SourceApp string
}

// AppEventLabel is the label of AppActivity events produced for appID.
func AppEventLabel(appID string) string {
	return appID + "-event"
}
