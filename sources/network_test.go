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
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicanalysis/droidtimeline/timeline"
)

var (
	srcMAC = net.HardwareAddr{0x02, 0, 0, 0, 0, 1}
	dstMAC = net.HardwareAddr{0x02, 0, 0, 0, 0, 2}
)

func serialize(t *testing.T, transport gopacket.SerializableLayer, network *layers.IPv4, payload []byte) []byte {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, network, transport, gopacket.Payload(payload)))
	return buf.Bytes()
}

func httpPacket(t *testing.T) []byte {
	ip := &layers.IPv4{
		Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolTCP,
		SrcIP: net.IP{10, 0, 0, 1}, DstIP: net.IP{93, 184, 216, 34},
	}
	tcp := &layers.TCP{SrcPort: 40000, DstPort: 80, PSH: true, ACK: true, Window: 1024}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
	request := "GET /index.html HTTP/1.1\r\nHost: example.com\r\nUser-Agent: test-agent\r\n\r\n"
	return serialize(t, tcp, ip, []byte(request))
}

const loginRequest = "POST /login HTTP/1.1\r\n" +
	"Host: api.example.com\r\n" +
	"Content-Type: application/x-www-form-urlencoded\r\n" +
	"Cookie: session=abc123\r\n" +
	"Authorization: Bearer tok3n\r\n" +
	"\r\n" +
	"username=alice&password=s3cret&email=alice@example.com"

func loginPacket(t *testing.T) []byte {
	ip := &layers.IPv4{
		Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolTCP,
		SrcIP: net.IP{10, 0, 0, 1}, DstIP: net.IP{10, 0, 0, 3},
	}
	tcp := &layers.TCP{SrcPort: 40002, DstPort: 80, PSH: true, ACK: true, Window: 1024}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
	return serialize(t, tcp, ip, []byte(loginRequest))
}

func udpPacket(t *testing.T) []byte {
	ip := &layers.IPv4{
		Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolUDP,
		SrcIP: net.IP{10, 0, 0, 1}, DstIP: net.IP{10, 0, 0, 2},
	}
	udp := &layers.UDP{SrcPort: 40001, DstPort: 9999}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	return serialize(t, udp, ip, []byte("hello"))
}

func writePcap(t *testing.T, fs afero.Fs, name string, packets map[int64][]byte, order []int64) {
	buf := &bytes.Buffer{}
	w := pcapgo.NewWriter(buf)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	for _, sec := range order {
		data := packets[sec]
		ci := gopacket.CaptureInfo{Timestamp: time.Unix(sec, 0), CaptureLength: len(data), Length: len(data)}
		require.NoError(t, w.WritePacket(ci, data))
	}
	require.NoError(t, afero.WriteFile(fs, name, buf.Bytes(), 0644))
}

func TestNetwork(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePcap(t, fs, "/extract/pcap/capture.pcap",
		map[int64][]byte{1700000000: httpPacket(t), 1700000001: udpPacket(t)},
		[]int64{1700000000, 1700000001})
	require.NoError(t, afero.WriteFile(fs, "/extract/pcap/broken.pcap", []byte("garbage"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/extract/pcap/notes.txt", []byte("ignored"), 0644))

	n := NewNetwork(fs, "/extract/pcap", "/processed/network", zerolog.Nop())
	assert.True(t, n.Present())
	events, err := n.Extract(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []timeline.Event{
		{
			Timestamp: timeline.At(1700000000),
			Category:  timeline.Network,
			Label:     "HTTP request",
			Details:   "GET http://example.com/index.html | User-Agent: test-agent | 10.0.0.1:40000 > 93.184.216.34:80",
		},
		{
			Timestamp: timeline.At(1700000001),
			Category:  timeline.Network,
			Label:     "Network activity",
			Details:   "Ethernet / IPv4 / UDP 10.0.0.1:40001 > 10.0.0.2:9999 | Protocol: UDP",
		},
		{
			Timestamp: timeline.At(1700000000),
			Category:  timeline.Network,
			Label:     "Connection",
			Details: fmt.Sprintf("10.0.0.1:40000 > 93.184.216.34:80 | Protocol: TCP | Packets: 1, Bytes: %d, Last seen: 2023-11-14T22:13:20Z",
				len(httpPacket(t))),
		},
		{
			Timestamp: timeline.At(1700000001),
			Category:  timeline.Network,
			Label:     "Connection",
			Details: fmt.Sprintf("10.0.0.1:40001 > 10.0.0.2:9999 | Protocol: UDP | Packets: 1, Bytes: %d, Last seen: 2023-11-14T22:13:21Z",
				len(udpPacket(t))),
		},
	}, events)

	exists, err := afero.Exists(fs, "/processed/network/broken_findings.json")
	require.NoError(t, err)
	assert.False(t, exists)

	data, err := afero.ReadFile(fs, n.FindingsPath("/extract/pcap/capture.pcap"))
	require.NoError(t, err)
	var findings CaptureFindings
	require.NoError(t, json.Unmarshal(data, &findings))
	assert.Equal(t, "capture.pcap", findings.Capture)
	assert.Equal(t, 2, findings.Packets)
	assert.Empty(t, findings.Findings)
	require.Len(t, findings.HTTPRequests, 1)
	assert.Equal(t, "http://example.com/index.html", findings.HTTPRequests[0].URL)
	assert.Len(t, findings.Connections, 2)
}

func TestNetworkFindings(t *testing.T) {
	fs := afero.NewMemMapFs()
	login := loginPacket(t)
	writePcap(t, fs, "/extract/pcap/login.pcap",
		map[int64][]byte{1700000000: login, 1700000005: login},
		[]int64{1700000000, 1700000005})

	n := NewNetwork(fs, "/extract/pcap", "/processed/network", zerolog.Nop())
	events, err := n.Extract(context.Background())
	require.NoError(t, err)

	var labels []string
	var sensitive []string
	for _, event := range events {
		labels = append(labels, event.Label)
		if event.Label == "Sensitive data" {
			sensitive = append(sensitive, event.Details)
		}
	}
	assert.Equal(t, []string{
		"HTTP request",
		"Sensitive data", "Sensitive data", "Sensitive data", "Sensitive data", "Sensitive data", "Sensitive data",
		"HTTP request",
		"Connection",
	}, labels)
	assert.Equal(t, []string{
		"email: alice@example.com | 10.0.0.1:40002 > 10.0.0.3:80",
		"username: alice | 10.0.0.1:40002 > 10.0.0.3:80",
		"username: alice@example.com | 10.0.0.1:40002 > 10.0.0.3:80",
		"password: s3cret | 10.0.0.1:40002 > 10.0.0.3:80",
		"auth_bearer: tok3n | 10.0.0.1:40002 > 10.0.0.3:80",
		"cookie: session=abc123 | 10.0.0.1:40002 > 10.0.0.3:80",
	}, sensitive)

	data, err := afero.ReadFile(fs, "/processed/network/login_findings.json")
	require.NoError(t, err)
	var findings CaptureFindings
	require.NoError(t, json.Unmarshal(data, &findings))
	require.Len(t, findings.Findings, 6)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), findings.Findings[0].Timestamp)

	require.Len(t, findings.HTTPRequests, 2)
	assert.Equal(t, HTTPRequest{
		Timestamp:   time.Unix(1700000000, 0).UTC(),
		Method:      "POST",
		URL:         "http://api.example.com/login",
		ContentType: "application/x-www-form-urlencoded",
		Cookie:      "session=abc123",
		FormData:    "username=alice&password=s3cret&email=alice@example.com",
	}, findings.HTTPRequests[0])

	assert.Equal(t, []Connection{{
		Src:       "10.0.0.1:40002",
		Dst:       "10.0.0.3:80",
		Protocol:  "TCP",
		Packets:   2,
		Bytes:     2 * len(login),
		FirstSeen: time.Unix(1700000000, 0).UTC(),
		LastSeen:  time.Unix(1700000005, 0).UTC(),
	}}, findings.Connections)
}

func TestScanPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []Finding
	}{
		{"Nothing", "hello", nil},
		{"Url", "see https://example.com/a/b now", []Finding{{Type: "url", Value: "https://example.com/a/b"}}},
		{"Basic auth", "Authorization: Basic dXNlcjpwYXNz\r\n", []Finding{{Type: "auth_basic", Value: "dXNlcjpwYXNz"}}},
		{"Api key", "GET /?api_key=K1&x=1", []Finding{{Type: "api_key", Value: "K1"}}},
		{"Jwt", "token eyJhbGci.eyJzdWIi.c2ln", []Finding{{Type: "jwt", Value: "eyJhbGci.eyJzdWIi.c2ln"}}},
		{"Card", "pan 4111-1111-1111-1111", []Finding{{Type: "credit_card", Value: "4111-1111-1111-1111"}}},
		{"Android id", "id 0123456789abcdef", []Finding{{Type: "android_id", Value: "0123456789abcdef"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScanPayload([]byte(tt.payload)))
		})
	}
}

func TestNetworkMissingAndCanceled(t *testing.T) {
	fs := afero.NewMemMapFs()
	n := NewNetwork(fs, "/extract/pcap", "", zerolog.Nop())
	assert.False(t, n.Present())
	events, err := n.Extract(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, events)

	writePcap(t, fs, "/extract/pcap/capture.pcap", map[int64][]byte{1: udpPacket(t)}, []int64{1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = n.Extract(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarize(t *testing.T) {
	packet := gopacket.NewPacket(udpPacket(t), layers.LinkTypeEthernet, gopacket.Default)
	summary, protocol := Summarize(packet)
	assert.Equal(t, "UDP", protocol)
	assert.Equal(t, "Ethernet / IPv4 / UDP 10.0.0.1:40001 > 10.0.0.2:9999", summary)

	packet = gopacket.NewPacket([]byte{}, layers.LinkTypeEthernet, gopacket.Default)
	summary, protocol = Summarize(packet)
	assert.Equal(t, "Unknown", summary)
	assert.Equal(t, "Unknown", protocol)
}
