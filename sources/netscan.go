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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/gopacket"

	"github.com/forensicanalysis/droidtimeline/timeline"
)

// FindingsSuffix is appended to the capture name for its findings file.
const FindingsSuffix = "_findings.json"

type payloadPattern struct {
	name string
	re   *regexp.Regexp
}

// payloadPatterns are applied in order to every transport payload. For
// patterns with a group the group is the value.
var payloadPatterns = []payloadPattern{
	{"url", regexp.MustCompile(`https?://(?:[-\w.]|%[\da-fA-F]{2})+(?:/[-\w%!$&'()*+,;=:@/~]+)*`)},
	{"email", regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{"username", regexp.MustCompile(`(?i)(?:username|user|login|email)=([^&\s]+)`)},
	{"password", regexp.MustCompile(`(?i)(?:password|pass|pwd)=([^&\s]+)`)},
	{"auth_basic", regexp.MustCompile(`(?i)Authorization: Basic ([^\r\n]+)`)},
	{"auth_bearer", regexp.MustCompile(`(?i)Authorization: Bearer ([^\r\n]+)`)},
	{"api_key", regexp.MustCompile(`(?i)(?:api[-_]?key|access[-_]?token|auth[-_]?token)=([^&\s]+)`)},
	{"jwt", regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)},
	{"credit_card", regexp.MustCompile(`\b(?:\d{4}[- ]?){3}\d{4}\b`)},
	{"android_id", regexp.MustCompile(`(?i)\b[a-f0-9]{16}\b`)},
	{"firebase", regexp.MustCompile(`https://[a-z0-9-]+\.firebaseio\.com`)},
	{"cookie", httpCookie},
}

var (
	httpContentType = regexp.MustCompile(`(?im)^Content-Type:[ \t]*([^\r\n]+)`)
	httpCookie      = regexp.MustCompile(`(?im)^Cookie:[ \t]*([^\r\n]+)`)
)

// Finding is a sensitive value seen in a packet payload.
type Finding struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Value     string    `json:"value"`
	Src       string    `json:"src"`
	Dst       string    `json:"dst"`
}

// HTTPRequest is a plain text HTTP request seen in a capture.
type HTTPRequest struct {
	Timestamp   time.Time `json:"timestamp"`
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	UserAgent   string    `json:"user_agent,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Cookie      string    `json:"cookie,omitempty"`
	FormData    string    `json:"form_data,omitempty"`
}

// Connection sums up the packets sent from one endpoint to another.
type Connection struct {
	Src       string    `json:"src"`
	Dst       string    `json:"dst"`
	Protocol  string    `json:"protocol"`
	Packets   int       `json:"packets"`
	Bytes     int       `json:"bytes"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// CaptureFindings is the content of a capture's findings file.
type CaptureFindings struct {
	Capture      string        `json:"capture"`
	Packets      int           `json:"packets"`
	Findings     []Finding     `json:"findings"`
	HTTPRequests []HTTPRequest `json:"http_requests"`
	Connections  []Connection  `json:"connections"`
}

// Encode writes the findings as indented JSON.
func (c *CaptureFindings) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// captureScan collects findings and connections while a capture is read.
type captureScan struct {
	result      CaptureFindings
	connections map[string]int
	seen        map[string]bool
}

func newCaptureScan(capture string) *captureScan {
	return &captureScan{
		result: CaptureFindings{
			Capture:      capture,
			Findings:     []Finding{},
			HTTPRequests: []HTTPRequest{},
			Connections:  []Connection{},
		},
		connections: map[string]int{},
		seen:        map[string]bool{},
	}
}

// add accounts one packet and returns the findings of its payload that were
// not seen before on the same connection.
func (s *captureScan) add(packet gopacket.Packet, ci gopacket.CaptureInfo) []Finding {
	s.result.Packets++
	src, dst, ok := flowEndpoints(packet)
	if !ok {
		return nil
	}
	key := src + "-" + dst
	idx, ok := s.connections[key]
	if !ok {
		protocol := packet.NetworkLayer().LayerType().String()
		if transport := packet.TransportLayer(); transport != nil {
			protocol = transport.LayerType().String()
		}
		idx = len(s.result.Connections)
		s.connections[key] = idx
		s.result.Connections = append(s.result.Connections, Connection{
			Src: src, Dst: dst, Protocol: protocol, FirstSeen: ci.Timestamp.UTC(),
		})
	}
	conn := &s.result.Connections[idx]
	conn.Packets++
	conn.Bytes += ci.Length
	conn.LastSeen = ci.Timestamp.UTC()

	app := packet.ApplicationLayer()
	if app == nil || len(app.Payload()) == 0 {
		return nil
	}
	payload := app.Payload()
	if request, ok := ParseHTTPRequest(payload); ok {
		request.Timestamp = ci.Timestamp.UTC()
		s.result.HTTPRequests = append(s.result.HTTPRequests, *request)
	}

	var found []Finding
	for _, finding := range ScanPayload(payload) {
		dedup := key + "\x00" + finding.Type + "\x00" + finding.Value
		if s.seen[dedup] {
			continue
		}
		s.seen[dedup] = true
		finding.Timestamp = ci.Timestamp.UTC()
		finding.Src, finding.Dst = src, dst
		s.result.Findings = append(s.result.Findings, finding)
		found = append(found, finding)
	}
	return found
}

// ScanPayload applies the sensitive data patterns to a packet payload.
// Timestamp and endpoints of the findings are left empty.
func ScanPayload(payload []byte) []Finding {
	text := string(bytes.ToValidUTF8(payload, nil))
	var findings []Finding
	for _, p := range payloadPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			value := m[0]
			if len(m) > 1 {
				value = m[1]
			}
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			findings = append(findings, Finding{Type: p.name, Value: value})
		}
	}
	return findings
}

// ParseHTTPRequest parses the head of a plain text HTTP request. Form data
// is kept for url encoded POST bodies.
func ParseHTTPRequest(payload []byte) (*HTTPRequest, bool) {
	m := httpRequestLine.FindSubmatch(payload)
	if m == nil {
		return nil, false
	}
	request := &HTTPRequest{Method: string(m[1]), URL: string(m[2])}
	if h := httpHost.FindSubmatch(payload); h != nil && strings.HasPrefix(request.URL, "/") {
		request.URL = "http://" + strings.TrimSpace(string(h[1])) + request.URL
	}
	if ua := httpUserAgent.FindSubmatch(payload); ua != nil {
		request.UserAgent = strings.TrimSpace(string(ua[1]))
	}
	if ct := httpContentType.FindSubmatch(payload); ct != nil {
		request.ContentType = strings.TrimSpace(string(ct[1]))
	}
	if c := httpCookie.FindSubmatch(payload); c != nil {
		request.Cookie = strings.TrimSpace(string(c[1]))
	}
	if request.Method == "POST" && strings.Contains(strings.ToLower(request.ContentType), "application/x-www-form-urlencoded") {
		if i := bytes.Index(payload, []byte("\r\n\r\n")); i >= 0 {
			request.FormData = string(payload[i+4:])
		}
	}
	return request, true
}

// FindingEvent converts a payload finding.
func FindingEvent(f Finding) timeline.Event {
	return timeline.Event{
		Timestamp: timeline.FromTime(f.Timestamp),
		Category:  timeline.Network,
		Label:     "Sensitive data",
		Details:   fmt.Sprintf("%s: %s | %s > %s", f.Type, f.Value, f.Src, f.Dst),
	}
}

// ConnectionEvent converts a connection summary, dated by its first packet.
func ConnectionEvent(c Connection) timeline.Event {
	return timeline.Event{
		Timestamp: timeline.FromTime(c.FirstSeen),
		Category:  timeline.Network,
		Label:     "Connection",
		Details: fmt.Sprintf("%s > %s | Protocol: %s | Packets: %d, Bytes: %d, Last seen: %s",
			c.Src, c.Dst, c.Protocol, c.Packets, c.Bytes, c.LastSeen.Format(time.RFC3339)),
	}
}

// flowEndpoints returns source and destination as address or address:port.
func flowEndpoints(packet gopacket.Packet) (src, dst string, ok bool) {
	net := packet.NetworkLayer()
	if net == nil {
		return "", "", false
	}
	s, d := net.NetworkFlow().Endpoints()
	src, dst = s.String(), d.String()
	if transport := packet.TransportLayer(); transport != nil {
		sp, dp := transport.TransportFlow().Endpoints()
		src += ":" + sp.String()
		dst += ":" + dp.String()
	}
	return src, dst, true
}
