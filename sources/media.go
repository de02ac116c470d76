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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/spf13/afero"

	"github.com/forensicanalysis/droidtimeline/timeline"
)

var mediaKinds = map[string]string{
	".jpg": "image", ".jpeg": "image", ".png": "image", ".gif": "image",
	".webp": "image", ".heic": "image", ".tif": "image", ".tiff": "image", ".dng": "image",
	".mp4": "video", ".mkv": "video", ".3gp": "video", ".webm": "video", ".mov": "video", ".avi": "video",
	".mp3": "audio", ".m4a": "audio", ".ogg": "audio", ".opus": "audio", ".aac": "audio",
	".amr": "audio", ".wav": "audio", ".flac": "audio",
}

// exifCapable lists the extensions goexif can locate an EXIF segment in.
var exifCapable = map[string]bool{
	".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true, ".dng": true,
}

// MediaKind classifies a file by its extension.
func MediaKind(name string) string {
	if kind, ok := mediaKinds[strings.ToLower(filepath.Ext(name))]; ok {
		return kind
	}
	return "other"
}

// Media walks a directory tree of the shared storage and emits one event per
// file. Photos are dated by their EXIF capture time and videos by the creation
// time of their movie header. Other files fall back to the modification time.
type Media struct {
	fs   afero.Fs
	root string
	log  zerolog.Logger
}

// NewMedia creates a media extractor for root on fs.
func NewMedia(fs afero.Fs, root string, log zerolog.Logger) *Media {
	return &Media{fs: fs, root: root, log: log.With().Str("source", "media").Logger()}
}

func (m *Media) Name() string                { return "media" }
func (m *Media) Category() timeline.Category { return timeline.Media }

func (m *Media) Present() bool {
	ok, err := afero.DirExists(m.fs, m.root)
	return err == nil && ok
}

func (m *Media) Extract(ctx context.Context) ([]timeline.Event, error) {
	if !m.Present() {
		m.log.Info().Str("path", m.root).Msg("media directory not found")
		return nil, nil
	}

	var events []timeline.Event
	err := afero.Walk(m.fs, m.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			m.log.Warn().Err(err).Str("path", path).Msg("skipping unreadable entry")
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if info.IsDir() {
			return nil
		}
		events = append(events, m.event(path, MediaKind(path), info))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (m *Media) event(path, kind string, info os.FileInfo) timeline.Event {
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	ts := timeline.FromTime(info.ModTime())
	source := "Filesystem"
	var gps string

	ext := strings.ToLower(filepath.Ext(path))
	if exifCapable[ext] {
		if x := m.readExif(path); x != nil {
			if taken, err := x.DateTime(); err == nil {
				ts = timeline.FromTime(taken)
				source = "EXIF"
			}
			if lat, lon, err := x.LatLong(); err == nil {
				gps = fmt.Sprintf("%g,%g", lat, lon)
			}
		}
	}
	if videoCapable[ext] {
		if meta := m.readVideo(path); meta != nil {
			if !meta.Created.IsZero() {
				ts = timeline.FromTime(meta.Created)
				source = "Metadata"
			}
			if meta.HasLocation {
				gps = fmt.Sprintf("%g,%g", meta.Latitude, meta.Longitude)
			}
		}
	}

	details := fmt.Sprintf("Path: %s, Kind: %s, Source: %s", rel, kind, source)
	if gps != "" {
		details += ", GPS: " + gps
	}
	return timeline.Event{
		Timestamp: ts,
		Category:  timeline.Media,
		Label:     "File created",
		Details:   details,
	}
}

func (m *Media) readExif(path string) *exif.Exif {
	f, err := m.fs.Open(path)
	if err != nil {
		m.log.Debug().Err(err).Str("path", path).Msg("could not open")
		return nil
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		m.log.Debug().Err(err).Str("path", path).Msg("no exif data")
		return nil
	}
	return x
}

func (m *Media) readVideo(path string) *VideoMeta {
	f, err := m.fs.Open(path)
	if err != nil {
		m.log.Debug().Err(err).Str("path", path).Msg("could not open")
		return nil
	}
	defer f.Close()

	meta, err := ReadVideoMeta(f)
	if err != nil {
		m.log.Debug().Err(err).Str("path", path).Msg("no video metadata")
		return nil
	}
	return meta
}
