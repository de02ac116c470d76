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

// Package blob recovers human readable text and structured fields from opaque
// binary columns whose layout is not published. All functions are best effort:
// a value that cannot be decoded is reported as absent, never as an error.
package blob

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	minCandidate = 3
	maxCandidate = 400

	// MaxPrimaryText is the longest candidate that is still considered to be a
	// complete message. Longer runs usually glue metadata to the payload.
	MaxPrimaryText = 800
)

// LinkPrefix is prepended to bare usernames recovered from user blobs.
const LinkPrefix = "https://t.me/"

var (
	wordRun     = regexp.MustCompile(`[\p{L}\p{N}_\x{0600}-\x{06FF}\-@./:+,'"()?!\s\p{Zs}\x{200C}\x{200D}]{3,400}`)
	inviteLink  = regexp.MustCompile(`https://t\.me/[^\s"']+`)
	usernameKey = regexp.MustCompile(`"username"\s*:\s*"([^"]+)"`)
	digitRun    = regexp.MustCompile(`\+?\d{7,16}`)
)

// ASCIIDigits rewrites Arabic-Indic and Extended Arabic-Indic (Persian) digits
// as ASCII digits. Other runes are kept.
func ASCIIDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '\u0660' && r <= '\u0669':
			return '0' + r - '\u0660'
		case r >= '\u06F0' && r <= '\u06F9':
			return '0' + r - '\u06F0'
		}
		return r
	}, s)
}

// Decode interprets b as UTF-8 and drops every invalid byte sequence.
func Decode(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return strings.ToValidUTF8(string(b), "")
}

// ExtractTextCandidates returns the printable word runs of b in the order they
// were first seen, trimmed and without duplicates.
func ExtractTextCandidates(b []byte) []string {
	text := Decode(b)
	if text == "" {
		return nil
	}

	var candidates []string
	seen := map[string]bool{}
	for _, match := range wordRun.FindAllString(text, -1) {
		s := strings.TrimSpace(match)
		if utf8.RuneCountInString(s) < minCandidate || seen[s] {
			continue
		}
		seen[s] = true
		candidates = append(candidates, s)
	}
	return candidates
}

// PickPrimary selects the longest candidate whose length lies within
// [3, MaxPrimaryText]. If no candidate qualifies the longest one is returned.
// The boolean is false for an empty candidate list.
func PickPrimary(candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	sorted := make([]string, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i]) > utf8.RuneCountInString(sorted[j])
	})
	for _, candidate := range sorted {
		n := utf8.RuneCountInString(candidate)
		if n >= minCandidate && n <= MaxPrimaryText {
			return candidate, true
		}
	}
	return sorted[0], true
}

// GuessPrimaryText returns the most likely message text contained in b.
func GuessPrimaryText(b []byte) (string, bool) {
	return PickPrimary(ExtractTextCandidates(b))
}

// Identity holds the identifying fields found in a user or chat blob.
type Identity struct {
	Phone          string
	OtherIDs       []string
	UsernameOrLink string
}

// FirstOtherID returns the first non phone numeric identifier or "".
func (i Identity) FirstOtherID() string {
	if len(i.OtherIDs) == 0 {
		return ""
	}
	return i.OtherIDs[0]
}

// ParseIdentityFields searches the decoded blob for an invite link, a
// "username" key and numeric sequences. Sequences of 7 to 14 digits are phone
// numbers, the first one wins; all others are kept as candidate ids. Persian
// and Arabic-Indic digits are read as ASCII digits.
func ParseIdentityFields(b []byte) Identity {
	var id Identity
	text := Decode(b)
	if text == "" {
		return id
	}

	if link := inviteLink.FindString(text); link != "" {
		id.UsernameOrLink = link
	}
	if m := usernameKey.FindStringSubmatch(text); m != nil {
		id.UsernameOrLink = LinkPrefix + m[1]
	}

	for _, digits := range digitRun.FindAllString(ASCIIDigits(text), -1) {
		digits = strings.TrimLeft(digits, "+")
		if len(digits) >= 7 && len(digits) <= 14 {
			if id.Phone == "" {
				id.Phone = digits
			}
			continue
		}
		id.OtherIDs = append(id.OtherIDs, digits)
	}
	return id
}
