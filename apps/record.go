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
	"strconv"
	"time"

	"github.com/forensicanalysis/droidtimeline/timeline"
)

// Sender sentinels for messages whose author cannot be resolved.
const (
	SenderMe           = "me"
	SenderChannelAdmin = "channel_admin"
	SenderGroupMember  = "group_member"
)

// ChatType classifies a conversation.
type ChatType int

// Chat types.
const (
	Unknown ChatType = iota
	Private
	Group
	Channel
)

var chatTypeNames = [...]string{"unknown", "private", "group", "channel"}

func (c ChatType) String() string {
	if c < 0 || int(c) >= len(chatTypeNames) {
		return chatTypeNames[Unknown]
	}
	return chatTypeNames[c]
}

// PayloadKind is the variant of a Payload.
type PayloadKind int

// Payload kinds.
const (
	PayloadEmpty PayloadKind = iota
	PayloadText
	PayloadMedia
	PayloadLocation
)

// Payload is the content of a message.
type Payload struct {
	Kind PayloadKind
	Text string
	// MediaType is one of video, image, audio or media.
	MediaType string
	Path      string
	Latitude  float64
	Longitude float64
}

// TextPayload returns a text payload, or the empty payload for "".
func TextPayload(text string) Payload {
	if text == "" {
		return Payload{}
	}
	return Payload{Kind: PayloadText, Text: text}
}

// MediaPayload returns a media payload.
func MediaPayload(mediaType, path string) Payload {
	return Payload{Kind: PayloadMedia, MediaType: mediaType, Path: path}
}

// LocationPayload returns a location payload.
func LocationPayload(lat, lon float64) Payload {
	return Payload{Kind: PayloadLocation, Latitude: lat, Longitude: lon}
}

var mediaLabels = map[string]string{
	"video": "Video file: ",
	"image": "Image file: ",
	"audio": "Audio file: ",
}

// Message renders the payload as the human readable message column.
func (p Payload) Message() string {
	switch p.Kind {
	case PayloadText:
		return p.Text
	case PayloadMedia:
		if label, ok := mediaLabels[p.MediaType]; ok {
			return label + p.Path
		}
		return "Media file: " + p.Path
	case PayloadLocation:
		return "Location: " + formatFloat(p.Latitude) + ", " + formatFloat(p.Longitude)
	default:
		return ""
	}
}

// ChatMessageRecord is one message recovered from an app database. A zero
// ChatID means the conversation is unknown; a zero TimestampUnix means the
// date could not be decoded.
type ChatMessageRecord struct {
	MessageID     int64
	TimestampUnix int64
	Sender        string
	SenderPhone   string
	SenderAltID   string
	ChatID        int64
	ChatName      string
	ChatType      ChatType
	PeerPhone     string
	PeerAltID     string
	Payload       Payload
}

// Timestamp returns the message time as timeline timestamp.
func (r *ChatMessageRecord) Timestamp() timeline.Timestamp {
	return timeline.FromUnix(r.TimestampUnix)
}

// dateTimeLayout is the format of the timestamp column, always UTC.
const dateTimeLayout = "2006-01-02 15:04:05"

func formatUnix(ts int64) string {
	if ts <= 0 {
		return ""
	}
	return time.Unix(ts, 0).UTC().Format(dateTimeLayout)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
