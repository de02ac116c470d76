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
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/abema/go-mp4"
	"github.com/pkg/errors"
)

// macEpochOffset is the number of seconds from 1904-01-01, the epoch of
// ISO base media file times, to the Unix epoch.
const macEpochOffset = 2082844800

// videoCapable lists the ISO base media containers read for metadata.
var videoCapable = map[string]bool{
	".mp4": true, ".m4v": true, ".mov": true, ".3gp": true,
}

var (
	boxTypeXYZ = mp4.BoxType{0xa9, 'x', 'y', 'z'}
	mvhdPath   = mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeMvhd()}
	xyzPath    = mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeUdta(), boxTypeXYZ}
	iso6709    = regexp.MustCompile(`^([+-]\d{1,2}(?:\.\d+)?)([+-]\d{1,3}(?:\.\d+)?)`)
)

// VideoMeta is the metadata recorded by the camera in a video container.
type VideoMeta struct {
	// Created is zero if the movie header carries no creation time.
	Created     time.Time
	HasLocation bool
	Latitude    float64
	Longitude   float64
}

// ParseISO6709 reads the latitude and longitude of a location string like
// "+35.6892+051.3890/".
func ParseISO6709(s string) (lat, lon float64, ok bool) {
	m := iso6709.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(m[2], 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// ReadVideoMeta reads the creation time of the movie header and the ©xyz
// location of the user data box.
func ReadVideoMeta(r io.ReadSeeker) (*VideoMeta, error) {
	boxes, err := mp4.ExtractBoxes(r, nil, []mp4.BoxPath{mvhdPath, xyzPath})
	if err != nil {
		return nil, errors.Wrap(err, "could not read boxes")
	}
	if len(boxes) == 0 {
		return nil, errors.New("no movie header")
	}

	meta := &VideoMeta{}
	for _, bi := range boxes {
		if _, err := bi.SeekToPayload(r); err != nil {
			return nil, err
		}
		switch bi.Type {
		case mp4.BoxTypeMvhd():
			var mvhd mp4.Mvhd
			if _, err := mp4.Unmarshal(r, bi.Size-bi.HeaderSize, &mvhd, bi.Context); err != nil {
				return nil, errors.Wrap(err, "could not read movie header")
			}
			if created := mvhd.GetCreationTime(); created > macEpochOffset {
				meta.Created = time.Unix(int64(created-macEpochOffset), 0).UTC()
			}
		case boxTypeXYZ:
			payload := make([]byte, bi.Size-bi.HeaderSize)
			if _, err := io.ReadFull(r, payload); err != nil {
				return nil, errors.Wrap(err, "could not read location")
			}
			if lat, lon, ok := parseXYZ(payload); ok {
				meta.HasLocation = true
				meta.Latitude, meta.Longitude = lat, lon
			}
		}
	}
	return meta, nil
}

// parseXYZ decodes a ©xyz payload: a 16 bit string length, a 16 bit language
// code and the ISO 6709 string.
func parseXYZ(payload []byte) (lat, lon float64, ok bool) {
	if len(payload) < 4 {
		return 0, 0, false
	}
	n := int(payload[0])<<8 | int(payload[1])
	text := payload[4:]
	if n < len(text) {
		text = text[:n]
	}
	return ParseISO6709(string(text))
}
