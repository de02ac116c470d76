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
	"bufio"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// FileName is the name of every timeline file.
const FileName = "timeline.csv"

// Header is the column set of a timeline file.
var Header = []string{"timestamp", "type", "event", "details"}

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// NormalizeNewlines turns CRLF and lone CR line breaks into LF. CSV readers
// fold a quoted CRLF into LF, so text is normalized before it is written to
// keep files stable across a write and read cycle.
func NormalizeNewlines(s string) string {
	return newlines.Replace(s)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(NormalizeNewlines(s), `"`, `""`) + `"`
}

func field(s string) string {
	if s == "" || (!strings.ContainsAny(s, ",\"\r\n") && s[0] != ' ') {
		return s
	}
	return quote(s)
}

// Write encodes events as timeline CSV.
func Write(w io.Writer, events []Event) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(Header, ",") + "\n"); err != nil {
		return err
	}
	for _, e := range events {
		line := field(e.Timestamp.String()) + "," +
			field(e.Category.Token()) + "," +
			field(e.Label) + "," +
			quote(e.Details) + "\n"
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Read decodes a timeline CSV.
func Read(r io.Reader) ([]Event, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(Header)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not read header")
	}
	for i := range Header {
		if header[i] != Header[i] {
			return nil, errors.Errorf("unexpected header %v", header)
		}
	}

	var events []Event
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		ts, err := ParseTimestamp(record[0])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", len(events)+2)
		}
		category, err := ParseCategory(record[1])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", len(events)+2)
		}
		event := Event{Timestamp: ts, Category: category, Label: record[2], Details: record[3]}
		if category == AppActivity {
			event.SourceApp = strings.TrimSuffix(record[2], AppEventLabel(""))
		}
		events = append(events, event)
	}
	return events, nil
}

// WriteFileAtomic writes a file by filling a temporary file in the target
// directory and renaming it, so readers never observe partial output.
func WriteFileAtomic(fs afero.Fs, name string, fill func(w io.Writer) error) error {
	dir := filepath.Dir(name)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(name)+"-*")
	if err != nil {
		return err
	}
	if err := fill(tmp); err != nil {
		tmp.Close()           // nolint:errcheck
		fs.Remove(tmp.Name()) // nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		fs.Remove(tmp.Name()) // nolint:errcheck
		return err
	}
	return fs.Rename(tmp.Name(), name)
}

// WriteFile atomically stores events at name.
func WriteFile(fs afero.Fs, name string, events []Event) error {
	return WriteFileAtomic(fs, name, func(w io.Writer) error {
		return Write(w, events)
	})
}

// ReadFile loads a timeline file.
func ReadFile(fs afero.Fs, name string) ([]Event, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Save writes one timeline per category of fused below dir, plus the combined
// timeline in dir/combined. Only categories listed in present are written, so
// a failed source leaves no file behind.
func Save(fs afero.Fs, dir string, fused *Fused, present map[Category]bool) error {
	for _, category := range Categories() {
		if !present[category] {
			continue
		}
		name := filepath.Join(dir, category.Token(), FileName)
		if err := WriteFile(fs, name, fused.ByCategory[category]); err != nil {
			return errors.Wrapf(err, "could not save %s timeline", category)
		}
	}
	return WriteFile(fs, filepath.Join(dir, "combined", FileName), fused.Combined)
}
