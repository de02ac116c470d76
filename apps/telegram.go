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
	"os"
	"path/filepath"
	"strings"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/forensicanalysis/droidtimeline/blob"
	"github.com/forensicanalysis/droidtimeline/dbutil"
)

var (
	// ErrDatabaseNotFound is returned if none of the candidate database paths
	// exists.
	ErrDatabaseNotFound = errors.New("database not found")
	// ErrNoMessageTable is returned if the database lacks the message table.
	ErrNoMessageTable = errors.New("message table not found")
)

// Telegram application ids.
const (
	TelegramID    = "org.telegram.messenger"
	TelegramWebID = "org.telegram.messenger.web"
)

func init() {
	mustRegister(Module{ID: TelegramID, Name: "Telegram", Parser: &Telegram{}, Details: TelegramDetails})
	mustRegister(Module{ID: TelegramWebID, Name: "Telegram (web build)", Parser: &Telegram{}, Details: TelegramDetails})
}

// telegramCandidates are tried in order below the app data directory.
var telegramCandidates = []string{
	filepath.Join("files", "cache4.db"),
	"cache4.db",
	filepath.Join("db", "cache4.db"),
}

var telegramMediaTypes = map[string]string{
	".mp4": "video", ".avi": "video", ".mkv": "video", ".mov": "video",
	".flv": "video", ".wmv": "video", ".webm": "video",
	".mp3": "audio", ".wav": "audio", ".aac": "audio", ".flac": "audio",
	".ogg": "audio", ".oga": "audio", ".opus": "audio", ".m4a": "audio", ".wma": "audio",
	".jpg": "image", ".jpeg": "image", ".png": "image", ".bmp": "image",
	".gif": "image", ".tiff": "image", ".webp": "image", ".svg": "image",
}

// channelNameMarker is the Persian word for channel, used by local channels
// that lack the english markers in their metadata.
const channelNameMarker = "کانال"

var channelMarkers = []string{"channel", "megagroup", "supergroup"}

// MediaType classifies a stored attachment by its file extension.
func MediaType(path string) string {
	if t, ok := telegramMediaTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return "media"
}

type telegramUser struct {
	Name     string
	Identity blob.Identity
}

type telegramChat struct {
	Name string
	Raw  string
}

type mediaKey struct {
	dialog, message int64
}

// Telegram parses the cache4.db database of the Telegram clients.
type Telegram struct{}

// Parse reads the messages of the Telegram database below dataRoot. dataRoot
// may also point directly to the database file.
func (t *Telegram) Parse(ctx context.Context, dataRoot string) (*Result, error) {
	log := zerolog.Ctx(ctx)

	dbPath, err := locate(dataRoot, telegramCandidates)
	if err != nil {
		return nil, err
	}
	conn, err := dbutil.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	users := telegramUsers(conn, log)
	chats := telegramChats(conn, log)
	media := telegramMedia(sidePath(dataRoot, dbPath), log)

	exists, err := dbutil.TableExists(conn, "messages_v2")
	if err != nil {
		return nil, err
	}
	if !exists {
		tables, err := dbutil.Tables(conn)
		if err != nil {
			return nil, err
		}
		return nil, errors.Wrapf(ErrNoMessageTable, "available: %s", strings.Join(tables, ", "))
	}

	columns, err := dbutil.Columns(conn, "messages_v2")
	if err != nil {
		return nil, err
	}
	isChannel := "0"
	if columns["is_channel"] {
		isChannel = "is_channel"
	}
	query := "SELECT mid, uid, date, out, data, " + isChannel + " FROM messages_v2 ORDER BY date DESC"

	result := &Result{}
	result.Report.Format = blob.TelegramGeoV1.Version
	if version, err := dbutil.Pragma(conn, "user_version"); err == nil {
		result.Report.SchemaVersion = version
	} else {
		log.Warn().Err(err).Msg("could not read schema version")
	}
	log.Info().Int64("schema_version", result.Report.SchemaVersion).
		Str("format", result.Report.Format).Msg("decoding messages")

	rows := 0
	err = sqlitex.Exec(conn, query, func(stmt *sqlite.Stmt) error {
		rows++
		if rows%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		res := telegramRow(stmt, users, chats, media)
		result.Report.Add(res)
		if !res.OK() {
			log.Warn().Str("reason", string(res.Skip)).Int("row", rows).Msg("skipping message")
			return nil
		}
		result.Records = append(result.Records, res.Record)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not read messages")
	}
	return result, nil
}

func locate(root string, candidates []string) (string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return "", errors.Wrap(ErrDatabaseNotFound, root)
	}
	if !info.IsDir() {
		return root, nil
	}
	for _, candidate := range candidates {
		p := filepath.Join(root, candidate)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", errors.Wrap(ErrDatabaseNotFound, root)
}

func sidePath(root, dbPath string) string {
	if root == dbPath {
		return filepath.Join(filepath.Dir(dbPath), "file_to_path.db")
	}
	return filepath.Join(root, "files", "file_to_path.db")
}

func telegramUsers(conn *sqlite.Conn, log *zerolog.Logger) map[int64]telegramUser {
	users := map[int64]telegramUser{}
	err := sqlitex.Exec(conn, "SELECT uid, name, data FROM users", func(stmt *sqlite.Stmt) error {
		uid, ok := dbutil.Int64(stmt, 0)
		if !ok {
			return nil
		}
		users[uid] = telegramUser{
			Name:     stmt.ColumnText(1),
			Identity: blob.ParseIdentityFields(dbutil.Bytes(stmt, 2)),
		}
		return nil
	})
	if err != nil {
		log.Info().Err(err).Msg("no user table")
	}
	return users
}

func telegramChats(conn *sqlite.Conn, log *zerolog.Logger) map[int64]telegramChat {
	chats := map[int64]telegramChat{}
	err := sqlitex.Exec(conn, "SELECT uid, name, data FROM chats", func(stmt *sqlite.Stmt) error {
		uid, ok := dbutil.Int64(stmt, 0)
		if !ok {
			return nil
		}
		chats[uid] = telegramChat{
			Name: stmt.ColumnText(1),
			Raw:  blob.Decode(dbutil.Bytes(stmt, 2)),
		}
		return nil
	})
	if err != nil {
		log.Info().Err(err).Msg("no chat table")
	}
	return chats
}

func telegramMedia(path string, log *zerolog.Logger) map[mediaKey]string {
	media := map[mediaKey]string{}
	if _, err := os.Stat(path); err != nil {
		log.Info().Str("path", path).Msg("no media path database")
		return media
	}
	conn, err := dbutil.Open(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not open media path database")
		return media
	}
	defer conn.Close()

	err = sqlitex.Exec(conn, "SELECT path, dialog_id, message_id FROM paths_by_dialog_id", func(stmt *sqlite.Stmt) error {
		dialog, ok1 := dbutil.Int64(stmt, 1)
		message, ok2 := dbutil.Int64(stmt, 2)
		if ok1 && ok2 {
			media[mediaKey{dialog, message}] = stmt.ColumnText(0)
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not read media paths")
	}
	return media
}

// resolveChat applies the sign convention of Telegram peer ids: positive ids
// are users, negative ids are groups or channels.
func resolveChat(peer int64, hasPeer bool, chats map[int64]telegramChat) (int64, ChatType) {
	switch {
	case !hasPeer || peer == 0:
		return 0, Unknown
	case peer > 0:
		return peer, Private
	}
	id := -peer
	if chat, ok := chats[id]; ok && isChannel(chat) {
		return id, Channel
	}
	return id, Group
}

func isChannel(chat telegramChat) bool {
	raw := strings.ToLower(chat.Raw)
	for _, marker := range channelMarkers {
		if strings.Contains(raw, marker) {
			return true
		}
	}
	return strings.Contains(chat.Name, channelNameMarker)
}

func telegramRow(stmt *sqlite.Stmt, users map[int64]telegramUser, chats map[int64]telegramChat, media map[mediaKey]string) RowResult {
	mid, ok := dbutil.Int64(stmt, 0)
	if !ok {
		return Skipped(SkipMissingID)
	}
	peer, hasPeer := dbutil.Int64(stmt, 1)
	if !hasPeer && !dbutil.IsNull(stmt, 1) {
		return Skipped(SkipBadPeerID)
	}
	switch stmt.ColumnType(4) {
	case sqlite.SQLITE_BLOB, sqlite.SQLITE_TEXT, sqlite.SQLITE_NULL:
	default:
		return Skipped(SkipUndecodablePayload)
	}

	record := ChatMessageRecord{MessageID: mid}
	if date, ok := dbutil.Int64(stmt, 2); ok && date > 0 {
		record.TimestampUnix = date
	}

	record.ChatID, record.ChatType = resolveChat(peer, hasPeer, chats)
	switch record.ChatType {
	case Private:
		user, known := users[record.ChatID]
		record.ChatName = formatID(record.ChatID)
		if known {
			if user.Name != "" {
				record.ChatName = user.Name
			}
			record.PeerPhone = user.Identity.Phone
			record.PeerAltID = user.Identity.FirstOtherID()
		}
	case Group, Channel:
		record.ChatName = formatID(record.ChatID)
		if chat, ok := chats[record.ChatID]; ok && chat.Name != "" {
			record.ChatName = chat.Name
		}
	}

	out, _ := dbutil.Int64(stmt, 3)
	channelFlag, _ := dbutil.Int64(stmt, 5)
	switch {
	case out == 1:
		record.Sender = SenderMe
	case channelFlag != 0 || record.ChatType == Channel:
		record.Sender = SenderChannelAdmin
	case record.ChatType == Private:
		record.Sender = formatID(record.ChatID)
		if user, ok := users[record.ChatID]; ok {
			switch {
			case user.Identity.UsernameOrLink != "":
				record.Sender = user.Identity.UsernameOrLink
			case user.Name != "":
				record.Sender = user.Name
			}
			record.SenderPhone = user.Identity.Phone
			record.SenderAltID = user.Identity.FirstOtherID()
		}
	default:
		record.Sender = SenderGroupMember
	}

	record.Payload = telegramPayload(dbutil.Bytes(stmt, 4), peer, record.ChatID, mid, media)
	return Parsed(record)
}

func telegramPayload(data []byte, peer, chatID, mid int64, media map[mediaKey]string) Payload {
	path, ok := media[mediaKey{peer, mid}]
	if !ok && chatID != peer {
		path, ok = media[mediaKey{chatID, mid}]
	}
	if ok {
		return MediaPayload(MediaType(path), path)
	}
	if lat, lon, ok := blob.TelegramGeoV1.Decode(data); ok {
		return LocationPayload(lat, lon)
	}
	text, _ := blob.GuessPrimaryText(data)
	return TextPayload(text)
}

// TelegramDetails condenses a row of the Telegram CSV.
func TelegramDetails(row map[string]string) string {
	return "Dialogue: " + row["chat_name"] + ", Sender: " + row["sender"] + ", Message: " + row["message"]
}
