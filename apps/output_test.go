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
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicanalysis/droidtimeline/timeline"
)

func exampleRecords() []ChatMessageRecord {
	return []ChatMessageRecord{
		{MessageID: 10, TimestampUnix: 1700000300, Sender: "https://t.me/alice", ChatID: 123, ChatName: "Alice", ChatType: Private, Payload: TextPayload("later")},
		{MessageID: 11, TimestampUnix: 1700000200, Sender: SenderGroupMember, ChatID: 55, ChatName: "Friends; extra", ChatType: Group, Payload: LocationPayload(35.6892, 51.389)},
		{MessageID: 9, TimestampUnix: 1700000100, Sender: SenderMe, ChatID: 123, ChatName: "Alice", ChatType: Private, Payload: MediaPayload("image", "/p/a.jpg")},
		{MessageID: 8, Sender: SenderMe, ChatID: 123, ChatName: "Alice", ChatType: Private},
	}
}

func TestRecordsHeader(t *testing.T) {
	assert.Equal(t, []string{
		"mid", "timestamp", "timestamp_unix", "sender", "sender_phone", "sender_alt_id",
		"chat_id", "chat_name", "chat_type", "peer_phone", "peer_alt_id", "message",
		"file_type", "file_path", "latitude", "longitude",
	}, RecordsHeader())
}

func TestWriteRecords(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteRecords(buf, exampleRecords()))

	rows, err := ReadRows(buf)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "2023-11-14 22:18:20", rows[0]["timestamp"])
	assert.Equal(t, "1700000300", rows[0]["timestamp_unix"])
	assert.Equal(t, "private", rows[0]["chat_type"])

	assert.Equal(t, "Location: 35.6892, 51.389", rows[1]["message"])
	assert.Equal(t, "35.6892", rows[1]["latitude"])
	assert.Equal(t, "51.389", rows[1]["longitude"])

	assert.Equal(t, "image", rows[2]["file_type"])
	assert.Equal(t, "/p/a.jpg", rows[2]["file_path"])
	assert.Equal(t, "Image file: /p/a.jpg", rows[2]["message"])

	assert.Equal(t, "", rows[3]["timestamp"])
	assert.Equal(t, "", rows[3]["timestamp_unix"])
	assert.Equal(t, "", rows[3]["message"])
}

func TestWriteRecordsLineBreaks(t *testing.T) {
	records := []ChatMessageRecord{
		{MessageID: 1, TimestampUnix: 1700000000, Sender: SenderMe, ChatID: 1, ChatName: "Bob\r\nSmith", ChatType: Private, Payload: TextPayload("first\r\nsecond\rthird")},
	}
	buf := &bytes.Buffer{}
	require.NoError(t, WriteRecords(buf, records))

	rows, err := ReadRows(buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "first\nsecond\nthird", rows[0]["message"])
	assert.Equal(t, "Bob\nSmith", rows[0]["chat_name"])
}

func TestCleanChatName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Friends; extra", "Friends"},
		{"  News!! (official) ", "News official"},
		{"کانال خبری", "کانال خبری"},
		{"***", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanChatName(tt.in))
		})
	}
}

func TestBuildDialogues(t *testing.T) {
	dialogues := BuildDialogues(exampleRecords())

	require.Len(t, dialogues["private"], 1)
	alice := dialogues["private"][0]
	assert.Equal(t, "123", alice.ChatID)
	assert.Equal(t, "Alice", alice.ChatName)

	var mids []string
	for _, m := range alice.Messages {
		mids = append(mids, m.MID)
	}
	assert.Equal(t, []string{"8", "9", "10"}, mids)
	assert.Nil(t, alice.Messages[0].TimestampUnix)
	assert.Equal(t, "https://t.me/alice", alice.Messages[2].Sender)

	require.Len(t, dialogues["group"], 1)
	assert.Equal(t, "Friends", dialogues["group"][0].ChatName)
	assert.Equal(t, "Location: 35.6892, 51.389", dialogues["group"][0].Messages[0].Message)
}

func TestValidateDialogues(t *testing.T) {
	data, err := json.Marshal(BuildDialogues(exampleRecords()))
	require.NoError(t, err)
	flaws, err := ValidateDialogues(context.Background(), data)
	require.NoError(t, err)
	assert.Empty(t, flaws)

	flaws, err = ValidateDialogues(context.Background(), []byte(`{"private": [{"chat_id": "", "messages": []}]}`))
	require.NoError(t, err)
	assert.NotEmpty(t, flaws)
}

func TestWriteOutputsAndAggregate(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/project/processed_data/apps"
	require.NoError(t, WriteOutputs(context.Background(), fs, filepath.Join(dir, TelegramID), &Result{Records: exampleRecords()}))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "com.example", RecordsFile),
		[]byte("timestamp,text\n2023-01-01 00:00:00,hi\n,undated\n"), 0644))
	require.NoError(t, fs.MkdirAll(filepath.Join(dir, "org.empty"), 0755))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "org.stale", RecordsFile),
		[]byte("timestamp,text\n2020-01-01 00:00:00,old\n"), 0644))

	data, err := afero.ReadFile(fs, filepath.Join(dir, TelegramID, DialoguesFile))
	require.NoError(t, err)
	var dialogues Dialogues
	require.NoError(t, json.Unmarshal(data, &dialogues))
	assert.Len(t, dialogues["private"], 1)

	events, err := Aggregate(context.Background(), fs, dir, DefaultRegistry, []string{TelegramID, "org.empty", "com.example"})
	require.NoError(t, err)
	require.Len(t, events, 6)
	for _, event := range events {
		assert.NotEqual(t, "org.stale", event.SourceApp)
	}

	assert.Equal(t, timeline.Event{
		Timestamp: timeline.At(1672531200),
		Category:  timeline.AppActivity,
		Label:     "com.example-event",
		SourceApp: "com.example",
	}, events[0])
	assert.False(t, events[1].Timestamp.Valid)

	assert.Equal(t, timeline.Event{
		Timestamp: timeline.At(1700000300),
		Category:  timeline.AppActivity,
		Label:     "org.telegram.messenger-event",
		Details:   "Dialogue: Alice, Sender: https://t.me/alice, Message: later",
		SourceApp: TelegramID,
	}, events[2])
}

func TestAggregateMissingDir(t *testing.T) {
	events, err := Aggregate(context.Background(), afero.NewMemMapFs(), "/nothing", DefaultRegistry, []string{TelegramID})
	assert.NoError(t, err)
	assert.Empty(t, events)
}

func TestAggregateOnlyNamedApps(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/project/processed_data/apps"
	require.NoError(t, WriteOutputs(context.Background(), fs, filepath.Join(dir, TelegramID), &Result{Records: exampleRecords()}))

	tests := []struct {
		name   string
		appIDs []string
		want   int
	}{
		{"none", nil, 0},
		{"other app", []string{"com.example"}, 0},
		{"telegram", []string{TelegramID}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := Aggregate(context.Background(), fs, dir, DefaultRegistry, tt.appIDs)
			require.NoError(t, err)
			assert.Len(t, events, tt.want)
		})
	}
}

func TestParseReport(t *testing.T) {
	var report ParseReport
	report.Add(Parsed(ChatMessageRecord{Payload: TextPayload("x")}))
	report.Add(Parsed(ChatMessageRecord{}))
	report.Add(Skipped(SkipBadPeerID))
	assert.Equal(t, ParseReport{Parsed: 2, Skipped: 1, Empty: 1, Reasons: map[SkipReason]int{SkipBadPeerID: 1}}, report)
}
