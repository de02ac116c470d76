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
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/forensicanalysis/droidtimeline/timeline"
)

var (
	httpRequestLine = regexp.MustCompile(`^(GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS|TRACE|CONNECT) (\S+) HTTP/\d(?:\.\d)?\r?\n`)
	httpHost        = regexp.MustCompile(`(?im)^Host:[ \t]*([^\r\n]+)`)
	httpUserAgent   = regexp.MustCompile(`(?im)^User-Agent:[ \t]*([^\r\n]+)`)
)

type packetSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Network reads every .pcap and .pcapng file of a directory. It emits one
// event per packet, one per sensitive value found in a payload and one per
// connection. The findings of each capture are also written to outDir.
type Network struct {
	fs     afero.Fs
	dir    string
	outDir string
	log    zerolog.Logger
}

// NewNetwork creates a network extractor for the captures in dir. With an
// empty outDir no findings files are written.
func NewNetwork(fs afero.Fs, dir, outDir string, log zerolog.Logger) *Network {
	return &Network{fs: fs, dir: dir, outDir: outDir, log: log.With().Str("source", "network").Logger()}
}

func (n *Network) Name() string                { return "network" }
func (n *Network) Category() timeline.Category { return timeline.Network }

func (n *Network) Present() bool {
	ok, err := afero.DirExists(n.fs, n.dir)
	return err == nil && ok
}

func (n *Network) captures() ([]string, error) {
	infos, err := afero.ReadDir(n.fs, n.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(info.Name())) {
		case ".pcap", ".pcapng":
			names = append(names, filepath.Join(n.dir, info.Name()))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (n *Network) Extract(ctx context.Context) ([]timeline.Event, error) {
	if !n.Present() {
		n.log.Info().Str("path", n.dir).Msg("capture directory not found")
		return nil, nil
	}
	names, err := n.captures()
	if err != nil {
		return nil, err
	}

	var events []timeline.Event
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fileEvents, scan, err := n.readCapture(ctx, name)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if err != nil {
			n.log.Warn().Err(err).Str("file", name).Int("events", len(fileEvents)).Msg("capture read incompletely")
		}
		if scan == nil {
			continue
		}
		for _, conn := range scan.result.Connections {
			fileEvents = append(fileEvents, ConnectionEvent(conn))
		}
		events = append(events, fileEvents...)
		if err := n.writeFindings(name, &scan.result); err != nil {
			n.log.Error().Err(err).Str("file", name).Msg("could not write findings")
		}
	}
	return events, nil
}

// FindingsPath returns the findings file of a capture.
func (n *Network) FindingsPath(capture string) string {
	base := strings.TrimSuffix(filepath.Base(capture), filepath.Ext(capture))
	return filepath.Join(n.outDir, base+FindingsSuffix)
}

func (n *Network) writeFindings(capture string, findings *CaptureFindings) error {
	if n.outDir == "" {
		return nil
	}
	return timeline.WriteFileAtomic(n.fs, n.FindingsPath(capture), findings.Encode)
}

// readCapture returns the events of a capture. The scan is nil if the
// capture could not be opened.
func (n *Network) readCapture(ctx context.Context, name string) ([]timeline.Event, *captureScan, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var src packetSource
	if strings.EqualFold(filepath.Ext(name), ".pcapng") {
		src, err = pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
	} else {
		src, err = pcapgo.NewReader(f)
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "unsupported capture")
	}

	scan := newCaptureScan(filepath.Base(name))
	var events []timeline.Event
	for i := 1; ; i++ {
		if i%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		data, ci, err := src.ReadPacketData()
		if err == io.EOF {
			return events, scan, nil
		}
		if err != nil {
			return events, scan, err
		}
		packet := gopacket.NewPacket(data, src.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		events = append(events, PacketEvent(packet, ci))
		for _, finding := range scan.add(packet, ci) {
			events = append(events, FindingEvent(finding))
		}
	}
}

// PacketEvent converts a decoded packet. Plain HTTP requests get their own
// label with method, URL and user agent.
func PacketEvent(packet gopacket.Packet, ci gopacket.CaptureInfo) timeline.Event {
	event := timeline.Event{
		Timestamp: timeline.FromTime(ci.Timestamp),
		Category:  timeline.Network,
		Label:     "Network activity",
	}
	summary, protocol := Summarize(packet)

	if request, ok := httpRequest(packet); ok {
		event.Label = "HTTP request"
		event.Details = request + " | " + endpoints(packet)
		return event
	}
	event.Details = fmt.Sprintf("%s | Protocol: %s", summary, protocol)
	return event
}

// Summarize returns a one line description of the packet's layers and
// endpoints plus the name of its highest decoded protocol.
func Summarize(packet gopacket.Packet) (summary, protocol string) {
	var names []string
	for _, layer := range packet.Layers() {
		t := layer.LayerType()
		if t == gopacket.LayerTypePayload || t == gopacket.LayerTypeDecodeFailure {
			continue
		}
		names = append(names, t.String())
	}
	if len(names) == 0 {
		return "Unknown", "Unknown"
	}
	protocol = names[len(names)-1]
	summary = strings.Join(names, " / ")
	if ep := endpoints(packet); ep != "" {
		summary += " " + ep
	}
	return summary, protocol
}

func endpoints(packet gopacket.Packet) string {
	src, dst, ok := flowEndpoints(packet)
	if !ok {
		return ""
	}
	return src + " > " + dst
}

func httpRequest(packet gopacket.Packet) (string, bool) {
	app := packet.ApplicationLayer()
	if app == nil {
		return "", false
	}
	parsed, ok := ParseHTTPRequest(app.Payload())
	if !ok {
		return "", false
	}
	request := parsed.Method + " " + parsed.URL
	if parsed.UserAgent != "" {
		request += " | User-Agent: " + parsed.UserAgent
	}
	return request, true
}
