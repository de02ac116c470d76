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
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/structs"
	"github.com/pkg/errors"
	"github.com/qri-io/jsonschema"
	"github.com/spf13/afero"

	"github.com/forensicanalysis/droidtimeline/timeline"
)

// File names below processed_data/apps/<app-id>.
const (
	RecordsFile   = "timeline.csv"
	DialoguesFile = "dialogues.json"
)

// csvRow is one line of an app's records file. Column names come from the
// csv tags.
type csvRow struct {
	MID           string `csv:"mid"`
	Timestamp     string `csv:"timestamp"`
	TimestampUnix string `csv:"timestamp_unix"`
	Sender        string `csv:"sender"`
	SenderPhone   string `csv:"sender_phone"`
	SenderAltID   string `csv:"sender_alt_id"`
	ChatID        string `csv:"chat_id"`
	ChatName      string `csv:"chat_name"`
	ChatType      string `csv:"chat_type"`
	PeerPhone     string `csv:"peer_phone"`
	PeerAltID     string `csv:"peer_alt_id"`
	Message       string `csv:"message"`
	FileType      string `csv:"file_type"`
	FilePath      string `csv:"file_path"`
	Latitude      string `csv:"latitude"`
	Longitude     string `csv:"longitude"`
}

func newCSVRow(r *ChatMessageRecord) *csvRow {
	row := &csvRow{
		MID:         strconv.FormatInt(r.MessageID, 10),
		Timestamp:   formatUnix(r.TimestampUnix),
		Sender:      r.Sender,
		SenderPhone: r.SenderPhone,
		SenderAltID: r.SenderAltID,
		ChatID:      formatID(r.ChatID),
		ChatName:    r.ChatName,
		ChatType:    r.ChatType.String(),
		PeerPhone:   r.PeerPhone,
		PeerAltID:   r.PeerAltID,
		Message:     r.Payload.Message(),
	}
	if r.TimestampUnix > 0 {
		row.TimestampUnix = strconv.FormatInt(r.TimestampUnix, 10)
	}
	switch r.Payload.Kind {
	case PayloadMedia:
		row.FileType = r.Payload.MediaType
		row.FilePath = r.Payload.Path
	case PayloadLocation:
		row.Latitude = formatFloat(r.Payload.Latitude)
		row.Longitude = formatFloat(r.Payload.Longitude)
	}
	return row
}

// findingRow is one line of the records file of a generically parsed app.
type findingRow struct {
	Timestamp     string `csv:"timestamp"`
	TimestampUnix string `csv:"timestamp_unix"`
	File          string `csv:"file"`
	Location      string `csv:"location"`
	Type          string `csv:"finding_type"`
	Value         string `csv:"value"`
}

func newFindingRow(f *Finding) *findingRow {
	row := &findingRow{
		Timestamp: formatUnix(f.TimestampUnix),
		File:      f.File,
		Location:  f.Location,
		Type:      f.Type,
		Value:     f.Value,
	}
	if f.TimestampUnix > 0 {
		row.TimestampUnix = strconv.FormatInt(f.TimestampUnix, 10)
	}
	return row
}

func header(row interface{}) []string {
	var names []string
	for _, field := range structs.Fields(row) {
		names = append(names, field.Tag("csv"))
	}
	return names
}

func values(row interface{}) []string {
	var fields []string
	for _, field := range structs.Fields(row) {
		fields = append(fields, timeline.NormalizeNewlines(field.Value().(string)))
	}
	return fields
}

// RecordsHeader returns the column names of the records file.
func RecordsHeader() []string {
	return header(&csvRow{})
}

// FindingsHeader returns the column names of the findings file.
func FindingsHeader() []string {
	return header(&findingRow{})
}

// WriteRecords writes records as CSV including the header line.
func WriteRecords(w io.Writer, records []ChatMessageRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RecordsHeader()); err != nil {
		return err
	}
	for i := range records {
		if err := cw.Write(values(newCSVRow(&records[i]))); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFindings writes findings as CSV including the header line.
func WriteFindings(w io.Writer, findings []Finding) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FindingsHeader()); err != nil {
		return err
	}
	for i := range findings {
		if err := cw.Write(values(newFindingRow(&findings[i]))); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRows reads a records file into header keyed rows.
func ReadRows(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []map[string]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
}

// DialogueMessage is a message as shown in a dialogue.
type DialogueMessage struct {
	MID           string `json:"mid"`
	TimestampUnix *int64 `json:"timestamp_unix"`
	Timestamp     string `json:"timestamp"`
	Sender        string `json:"sender"`
	ChatID        string `json:"chat_id"`
	ChatName      string `json:"chat_name"`
	ChatType      string `json:"chat_type"`
	Message       string `json:"message"`
}

// Dialogue groups the messages of one chat.
type Dialogue struct {
	ChatID   string            `json:"chat_id"`
	ChatName string            `json:"chat_name"`
	Messages []DialogueMessage `json:"messages"`
}

// Dialogues maps a chat type to its chats.
type Dialogues map[string][]Dialogue

var (
	nameJunk   = regexp.MustCompile(`[^A-Za-z0-9\x{0600}-\x{06FF}\s]`)
	senderJunk = regexp.MustCompile(`[^A-Za-z0-9\x{0600}-\x{06FF}@./:_\s]`)
)

// CleanChatName cuts a name at the first semicolon and drops everything but
// letters, digits, Arabic script and whitespace.
func CleanChatName(name string) string {
	if i := strings.Index(name, ";"); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(nameJunk.ReplaceAllString(name, ""))
}

func cleanSender(sender string) string {
	return strings.TrimSpace(senderJunk.ReplaceAllString(sender, ""))
}

// BuildDialogues groups records by chat type and chat. Chats keep the order
// of their first record, messages of a chat are sorted oldest first.
func BuildDialogues(records []ChatMessageRecord) Dialogues {
	dialogues := Dialogues{}
	index := map[string]map[string]int{}

	for i := range records {
		r := &records[i]
		chatType := r.ChatType.String()
		chatID := formatID(r.ChatID)
		if chatID == "" {
			chatID = "unknown"
		}
		chatName := CleanChatName(r.ChatName)
		if chatName == "" {
			chatName = "Unknown"
		}

		msg := DialogueMessage{
			MID:       strconv.FormatInt(r.MessageID, 10),
			Timestamp: formatUnix(r.TimestampUnix),
			Sender:    cleanSender(r.Sender),
			ChatID:    chatID,
			ChatName:  chatName,
			ChatType:  chatType,
			Message:   r.Payload.Message(),
		}
		if r.TimestampUnix > 0 {
			ts := r.TimestampUnix
			msg.TimestampUnix = &ts
		}

		if index[chatType] == nil {
			index[chatType] = map[string]int{}
		}
		pos, ok := index[chatType][chatID]
		if !ok {
			pos = len(dialogues[chatType])
			index[chatType][chatID] = pos
			dialogues[chatType] = append(dialogues[chatType], Dialogue{ChatID: chatID, ChatName: chatName})
		}
		dialogues[chatType][pos].Messages = append(dialogues[chatType][pos].Messages, msg)
	}

	for _, chats := range dialogues {
		for _, chat := range chats {
			messages := chat.Messages
			sort.SliceStable(messages, func(i, j int) bool {
				return unixKey(messages[i].TimestampUnix) < unixKey(messages[j].TimestampUnix)
			})
		}
	}
	return dialogues
}

func unixKey(ts *int64) int64 {
	if ts == nil {
		return 0
	}
	return *ts
}

const dialogueSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2019-09/schema#",
  "title": "dialogues",
  "type": "object",
  "additionalProperties": {
    "type": "array",
    "items": {
      "type": "object",
      "required": ["chat_id", "chat_name", "messages"],
      "properties": {
        "chat_id": {"type": "string", "minLength": 1},
        "chat_name": {"type": "string"},
        "messages": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": ["mid", "timestamp_unix", "sender", "chat_id", "chat_type", "message"],
            "properties": {
              "mid": {"type": "string"},
              "timestamp_unix": {"type": ["number", "null"]},
              "timestamp": {"type": "string"},
              "sender": {"type": "string"},
              "chat_id": {"type": "string"},
              "chat_name": {"type": "string"},
              "chat_type": {"enum": ["private", "group", "channel", "unknown"]},
              "message": {"type": "string"}
            }
          }
        }
      }
    }
  }
}`

var dialogueSchema = func() *jsonschema.Schema {
	schema := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(dialogueSchemaJSON), schema); err != nil {
		panic(err)
	}
	return schema
}()

// ValidateDialogues checks encoded dialogues against the dialogue schema.
func ValidateDialogues(ctx context.Context, data []byte) (flaws []string, err error) {
	errs, err := dialogueSchema.ValidateBytes(ctx, data)
	if err != nil {
		return nil, err
	}
	for _, verr := range errs {
		flaws = append(flaws, fmt.Sprintf("invalid dialogues: %s", verr))
	}
	return flaws, nil
}

// WriteOutputs writes the records file and the dialogues file of one app
// into dir. Findings of a generic parse are written as the records file and
// no dialogues are built.
func WriteOutputs(ctx context.Context, fs afero.Fs, dir string, result *Result) error {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if result.Findings != nil {
		return timeline.WriteFileAtomic(fs, filepath.Join(dir, RecordsFile), func(w io.Writer) error {
			return WriteFindings(w, result.Findings)
		})
	}

	records := result.Records
	err := timeline.WriteFileAtomic(fs, filepath.Join(dir, RecordsFile), func(w io.Writer) error {
		return WriteRecords(w, records)
	})
	if err != nil {
		return err
	}

	data, err := json.Marshal(BuildDialogues(records))
	if err != nil {
		return err
	}
	flaws, err := ValidateDialogues(ctx, data)
	if err != nil {
		return err
	}
	if len(flaws) > 0 {
		return errors.New(strings.Join(flaws, "; "))
	}
	return timeline.WriteFileAtomic(fs, filepath.Join(dir, DialoguesFile), func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
