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

import (
	"bytes"
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"

	"github.com/forensicanalysis/droidtimeline/blob"
	"github.com/forensicanalysis/droidtimeline/dbutil"
)

// GenericName is the module name of apps handled by the fallback parser.
const GenericName = "Generic app data"

// ErrAppDataNotFound is returned if an app has no data directory.
var ErrAppDataNotFound = errors.New("app data not found")

// SkipUnreadableFile counts artifact files the generic parser could not read.
const SkipUnreadableFile SkipReason = "unreadable_file"

// maxFindingValue caps the runes kept of a matched value.
const maxFindingValue = 256

type dataPattern struct {
	name string
	re   *regexp.Regexp
}

// dataPatterns are applied in order to every text found in app data.
var dataPatterns = []dataPattern{
	{"password", regexp.MustCompile(`(?i)\b(?:password|passwd|pass|pwd|key)\s*[=:]\s*[A-Za-z0-9@#$%^&*()_+=-]+`)},
	{"location", regexp.MustCompile(`(?i)\b(?:lat|long|location|latitude|longitude)\s*[=:]\s*[-+]?[0-9]*\.?[0-9]+\b`)},
	{"health_data", regexp.MustCompile(`(?i)\b(?:health|medical)\s*[=:]\s*[A-Za-z0-9]+`)},
	{"credit_card", regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`)},
	{"url", regexp.MustCompile(`\bhttps?://[^\s"'<>]+`)},
	{"email", regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{"pii", regexp.MustCompile(`(?i)\b(?:ssn|dob|phone|address)\s*[=:]\s*[A-Za-z0-9+][A-Za-z0-9 ,+-]*`)},
}

// Finding is a sensitive value found in an app's files.
type Finding struct {
	// TimestampUnix is the modification time of the file.
	TimestampUnix int64
	// File is relative to the app data directory, with forward slashes.
	File string
	// Location names the table column, preference or JSON path, or "raw".
	Location string
	Type     string
	Value    string
}

// ScanText applies the sensitive data patterns to text. Persian and
// Arabic-Indic digits match like ASCII digits.
func ScanText(text string) (types, values []string) {
	text = blob.ASCIIDigits(text)
	for _, p := range dataPatterns {
		for _, match := range p.re.FindAllString(text, -1) {
			match = strings.TrimSpace(match)
			if match == "" {
				continue
			}
			types = append(types, p.name)
			values = append(values, truncate(match, maxFindingValue))
		}
	}
	return types, values
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Generic scans the databases, shared preferences and JSON files of apps
// without a dedicated module. Databases are opened by path, so fs has to be
// backed by the OS filesystem for them to be read.
type Generic struct {
	fs afero.Fs
}

// NewGeneric returns a generic parser reading from fs.
func NewGeneric(fs afero.Fs) *Generic {
	return &Generic{fs: fs}
}

func init() {
	DefaultRegistry.SetFallback(NewGeneric(afero.NewOsFs()))
}

// fileScan collects the findings of one file without duplicates.
type fileScan struct {
	file     string
	mtime    int64
	seen     map[[2]string]bool
	findings []Finding
}

func (s *fileScan) scan(location, text string) {
	types, values := ScanText(text)
	for i := range types {
		key := [2]string{types[i], values[i]}
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.findings = append(s.findings, Finding{
			TimestampUnix: s.mtime,
			File:          s.file,
			Location:      location,
			Type:          types[i],
			Value:         values[i],
		})
	}
}

// Parse walks dataRoot and scans every .db, .xml and .json file.
func (g *Generic) Parse(ctx context.Context, dataRoot string) (*Result, error) {
	log := zerolog.Ctx(ctx)

	if exists, _ := afero.DirExists(g.fs, dataRoot); !exists {
		return nil, errors.Wrap(ErrAppDataNotFound, dataRoot)
	}

	result := &Result{Findings: []Finding{}}
	err := afero.Walk(g.fs, dataRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("could not walk")
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".db" && ext != ".xml" && ext != ".json" {
			return nil
		}

		rel, err := filepath.Rel(dataRoot, path)
		if err != nil {
			rel = path
		}
		s := &fileScan{file: filepath.ToSlash(rel), seen: map[[2]string]bool{}}
		if mtime := info.ModTime(); !mtime.IsZero() && mtime.Unix() > 0 {
			s.mtime = mtime.Unix()
		}

		if err := g.scanFile(log, s, path, ext); err != nil {
			log.Warn().Err(err).Str("file", s.file).Msg("could not scan file")
			result.Report.Add(Skipped(SkipUnreadableFile))
			return nil
		}
		result.Report.Parsed++
		result.Findings = append(result.Findings, s.findings...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Int("files", result.Report.Parsed).Int("findings", len(result.Findings)).Msg("app data scanned")
	return result, nil
}

func (g *Generic) scanFile(log *zerolog.Logger, s *fileScan, path, ext string) error {
	data, err := afero.ReadFile(g.fs, path)
	if err != nil {
		return err
	}
	switch ext {
	case ".db":
		// A file that is no database is still scanned as raw text.
		if err := scanDatabase(s, path); err != nil {
			log.Debug().Err(err).Str("file", s.file).Msg("scanning database as raw text")
		}
	case ".xml":
		scanPreferences(s, data)
	case ".json":
		if gjson.ValidBytes(data) {
			scanJSON(s, "", gjson.ParseBytes(data))
		}
	}
	s.scan("raw", blob.Decode(data))
	return nil
}

// scanDatabase scans all text cells of all tables.
func scanDatabase(s *fileScan, path string) error {
	conn, err := dbutil.Open(path)
	if err != nil {
		return err
	}
	defer conn.Close()

	tables, err := dbutil.Tables(conn)
	if err != nil {
		return err
	}
	for _, table := range tables {
		err := sqlitex.Exec(conn, "SELECT * FROM "+dbutil.QuoteIdent(table), func(stmt *sqlite.Stmt) error {
			for col := 0; col < stmt.ColumnCount(); col++ {
				if stmt.ColumnType(col) != sqlite.SQLITE_TEXT {
					continue
				}
				s.scan(table+"."+stmt.ColumnName(col), stmt.ColumnText(col))
			}
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "table %s", table)
		}
	}
	return nil
}

// scanPreferences reads Android shared preferences. Every entry is scanned as
// "name=value".
func scanPreferences(s *fileScan, data []byte) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	var name, value string
	var text strings.Builder
	for {
		token, err := decoder.Token()
		if err != nil {
			return
		}
		switch t := token.(type) {
		case xml.StartElement:
			name, value = "", ""
			text.Reset()
			for _, attr := range t.Attr {
				switch attr.Name.Local {
				case "name":
					name = attr.Value
				case "value":
					value = attr.Value
				}
			}
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if name == "" {
				continue
			}
			if value == "" {
				value = strings.TrimSpace(text.String())
			}
			s.scan(name, name+"="+value)
			name = ""
		}
	}
}

// scanJSON scans every leaf as "key=value", located by its dotted path.
func scanJSON(s *fileScan, path string, v gjson.Result) {
	if v.IsObject() || v.IsArray() {
		v.ForEach(func(key, value gjson.Result) bool {
			child := key.String()
			if path != "" {
				child = path + "." + child
			}
			scanJSON(s, child, value)
			return true
		})
		return
	}
	key := path[strings.LastIndex(path, ".")+1:]
	s.scan(path, key+"="+v.String())
}

// GenericDetails describes a finding row. Rows of other layouts have no
// details.
func GenericDetails(row map[string]string) string {
	if row["finding_type"] == "" {
		return ""
	}
	details := "File: " + row["file"]
	if location := row["location"]; location != "" && location != "raw" {
		details += ", Location: " + location
	}
	return details + ", Type: " + row["finding_type"] + ", Value: " + row["value"]
}
