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

package timeline

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exampleEvents = []Event{
	{Timestamp: At(1700000000.25), Category: Call, Label: "INCOMING call", Details: "Number: +4915112345, Duration: 42 sec"},
	{Timestamp: Null, Category: Contact, Label: "Contact updated", Details: `ID: 3, Name: "Bob", the builder`},
	{Timestamp: At(1600000000), Category: SMS, Label: "Received", Details: "Received SMS | Sender: 123, Body: line one\nline two"},
	{Timestamp: At(1500000000), Category: AppActivity, Label: "org.telegram.messenger-event", Details: "", SourceApp: "org.telegram.messenger"},
	{Timestamp: At(1400000000), Category: Media, Label: "File, created", Details: "Path: DCIM/a.jpg"},
	{Timestamp: At(1300000000), Category: SMS, Label: "Sent", Details: "Sent SMS | Recipient: 456, Body: a\r\nb\rc"},
}

// stored returns events the way they read back from a timeline file.
func stored(events []Event) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		e.Details = NormalizeNewlines(e.Details)
		out[i] = e
	}
	return out
}

func TestWrite(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Write(buf, exampleEvents[:2]))
	assert.Equal(t, "timestamp,type,event,details\n"+
		"1700000000.25,call,INCOMING call,\"Number: +4915112345, Duration: 42 sec\"\n"+
		",contact,Contact updated,\"ID: 3, Name: \"\"Bob\"\", the builder\"\n", buf.String())
}

func TestRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Write(buf, exampleEvents))
	first := buf.String()

	got, err := Read(buf)
	require.NoError(t, err)
	assert.Equal(t, stored(exampleEvents), got)
	assert.Equal(t, "Sent SMS | Recipient: 456, Body: a\nb\nc", got[len(got)-1].Details)

	again := &bytes.Buffer{}
	require.NoError(t, Write(again, got))
	assert.Equal(t, first, again.String())

	reread, err := Read(again)
	require.NoError(t, err)
	assert.Equal(t, got, reread)
}

func TestNormalizeNewlines(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a\r\nb", "a\nb"},
		{"a\rb", "a\nb"},
		{"a\n\r\nb\r", "a\n\nb\n"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeNewlines(tt.in))
		})
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Wrong header", "time,type,event,details\n"},
		{"Bad timestamp", "timestamp,type,event,details\nabc,call,x,\"y\"\n"},
		{"Bad category", "timestamp,type,event,details\n1,location,x,\"y\"\n"},
		{"Missing field", "timestamp,type,event,details\n1,call,x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}

	events, err := Read(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Empty(t, events)
}

func TestReadHeaderErrorHasStack(t *testing.T) {
	_, err := Read(strings.NewReader("time,type,event,details\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected header")
	_, ok := err.(interface{ StackTrace() pkgerrors.StackTrace })
	assert.True(t, ok)
}

func TestWriteReadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	name := filepath.Join("/project", "processed_data", "timeline", "call", FileName)
	require.NoError(t, WriteFile(fs, name, exampleEvents))

	got, err := ReadFile(fs, name)
	require.NoError(t, err)
	assert.Equal(t, stored(exampleEvents), got)

	infos, err := afero.ReadDir(fs, filepath.Dir(name))
	require.NoError(t, err)
	assert.Len(t, infos, 1, "temporary file left behind")
}

func TestWriteFileAtomicFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	name := filepath.Join("/out", FileName)
	require.NoError(t, WriteFile(fs, name, exampleEvents[:1]))

	err := WriteFileAtomic(fs, name, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("interrupted")
	})
	assert.Error(t, err)

	got, err := ReadFile(fs, name)
	require.NoError(t, err)
	assert.Equal(t, exampleEvents[:1], got)

	infos, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestSave(t *testing.T) {
	fs := afero.NewMemMapFs()
	fused := Fuse(exampleEvents)
	present := map[Category]bool{Call: true, Contact: true, Calendar: true}
	require.NoError(t, Save(fs, "/tl", fused, present))

	calendar, err := ReadFile(fs, "/tl/calendar/timeline.csv")
	require.NoError(t, err)
	assert.Empty(t, calendar)

	exists, err := afero.Exists(fs, "/tl/sms/timeline.csv")
	require.NoError(t, err)
	assert.False(t, exists)

	combined, err := ReadFile(fs, "/tl/combined/timeline.csv")
	require.NoError(t, err)
	assert.Len(t, combined, len(exampleEvents))
	assert.Equal(t, "Contact updated", combined[len(combined)-1].Label)
}
