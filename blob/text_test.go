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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTextCandidates(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
		want []string
	}{
		{"Empty", nil, nil},
		{"Binary only", []byte{0x00, 0x01, 0xff, 0xfe}, nil},
		{"Dedup in order", []byte("hello world\x00\x01abc\x00hello world\x02xy"), []string{"hello world", "abc"}},
		{"Invalid utf8 dropped", []byte("sal\xffam\x00"), []string{"salam"}},
		{"Persian", []byte("\x00\x05سلام دنیا\x00"), []string{"سلام دنیا"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTextCandidates(tt.blob))
		})
	}
}

func TestExtractTextCandidatesCap(t *testing.T) {
	long := strings.Repeat("a", 900)
	candidates := ExtractTextCandidates([]byte(long))
	for _, c := range candidates {
		assert.LessOrEqual(t, len(c), 400)
	}
}

func TestPickPrimary(t *testing.T) {
	five := "hello"
	nineHundred := strings.Repeat("x", 900)
	tests := []struct {
		name       string
		candidates []string
		want       string
		wantOK     bool
	}{
		{"None", nil, "", false},
		{"Only one in range", []string{"ab", five, nineHundred}, five, true},
		{"Only oversized", []string{nineHundred}, nineHundred, true},
		{"Longest in range wins", []string{"abc", "abcdef", "abcd"}, "abcdef", true},
		{"First of equal length", []string{"abcd", "wxyz"}, "abcd", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PickPrimary(tt.candidates)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGuessPrimaryText(t *testing.T) {
	got, ok := GuessPrimaryText([]byte("\x00\x01id\x00\x7fMeet me at the station at 5?\x00\x02abc"))
	assert.True(t, ok)
	assert.Equal(t, "Meet me at the station at 5?", got)

	_, ok = GuessPrimaryText([]byte{0x01, 0x02})
	assert.False(t, ok)
}

func TestParseIdentityFields(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
		want Identity
	}{
		{"Empty", nil, Identity{}},
		{"Link", []byte("x https://t.me/joinchat/AbC y"), Identity{UsernameOrLink: "https://t.me/joinchat/AbC"}},
		{"Username overrides link", []byte(`https://t.me/old {"username": "alice"}`), Identity{UsernameOrLink: "https://t.me/alice"}},
		{"Phone and ids", []byte("\x00+989121234567\x001234567890123456\x00"), Identity{Phone: "989121234567", OtherIDs: []string{"1234567890123456"}}},
		{"First phone wins", []byte("1234567 x 7654321"), Identity{Phone: "1234567"}},
		{"Persian digits", []byte("\x00۰۹۱۲۱۲۳۴۵۶۷\x00"), Identity{Phone: "09121234567"}},
		{"Arabic-Indic digits", []byte("tel +٩٨٩١٢١٢٣٤٥٦٧"), Identity{Phone: "989121234567"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIdentityFields(tt.blob))
		})
	}
}

func TestASCIIDigits(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"0123", "0123"},
		{"۰۱۲۳۴۵۶۷۸۹", "0123456789"},
		{"٠١٢٣٤٥٦٧٨٩", "0123456789"},
		{"کد ۴۲ ok", "کد 42 ok"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ASCIIDigits(tt.in))
		})
	}
}

func TestExtractTextCandidatesUnicodeSpaces(t *testing.T) {
	text := "سلام\u200cدنیا\u00a0خوب"
	assert.Equal(t, []string{text}, ExtractTextCandidates([]byte("\x00"+text+"\x00")))
}

func TestIdentityFirstOtherID(t *testing.T) {
	assert.Equal(t, "", Identity{}.FirstOtherID())
	assert.Equal(t, "1", Identity{OtherIDs: []string{"1", "2"}}.FirstOtherID())
}
