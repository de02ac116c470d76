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

package blob

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
)

// Double is a little endian IEEE-754 value found at Offset.
type Double struct {
	Offset int
	Value  float64
}

// ExtractLittleEndianDoubles slides an 8 byte window over b and keeps every
// value that is a plausible latitude or longitude.
func ExtractLittleEndianDoubles(b []byte) []Double {
	var doubles []Double
	for offset := 0; offset+8 <= len(b); offset++ {
		v := math.Float64frombits(binary.LittleEndian.Uint64(b[offset : offset+8]))
		if v >= -180 && v <= 180 {
			doubles = append(doubles, Double{Offset: offset, Value: v})
		}
	}
	return doubles
}

// LocationFormat describes a fixed size binary location payload. The offsets
// were observed on captured databases and are not documented by the vendor;
// they are only valid for the format version named here.
type LocationFormat struct {
	Version         string
	Size            int
	LongitudeOffset int
	LatitudeOffset  int
	MaxDecimals     int
}

// TelegramGeoV1 is the 88 byte geo point message stored in cache4.db.
var TelegramGeoV1 = LocationFormat{
	Version:         "telegram-cache4-geo-v1",
	Size:            88,
	LongitudeOffset: 60,
	LatitudeOffset:  68,
	MaxDecimals:     8,
}

// Decode returns the coordinates stored in b. It fails for blobs of any other
// size and for values that are out of range or carry more fractional digits
// than a real coordinate would.
func (f LocationFormat) Decode(b []byte) (lat, lon float64, ok bool) {
	if len(b) != f.Size {
		return 0, 0, false
	}

	var haveLat, haveLon bool
	for _, d := range ExtractLittleEndianDoubles(b) {
		switch d.Offset {
		case f.LongitudeOffset:
			lon, haveLon = d.Value, true
		case f.LatitudeOffset:
			lat, haveLat = d.Value, true
		}
	}
	if !haveLat || !haveLon {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	if decimals(lat) > f.MaxDecimals || decimals(lon) > f.MaxDecimals {
		return 0, 0, false
	}
	return lat, lon, true
}

func decimals(v float64) int {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	return len(s) - i - 1
}
