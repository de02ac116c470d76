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
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/forensicanalysis/droidtimeline/timeline"
)

// Aggregate turns the records files of appIDs below dir into AppActivity
// events. Only the apps named are read, so directories left behind by earlier
// runs do not leak into the timeline. Apps without a module and no generic
// fallback yield events with empty details. A missing or unreadable records
// file is logged and skipped.
func Aggregate(ctx context.Context, fs afero.Fs, dir string, reg *Registry, appIDs []string) ([]timeline.Event, error) {
	log := zerolog.Ctx(ctx)

	ids := append([]string(nil), appIDs...)
	sort.Strings(ids)

	var events []timeline.Event
	for _, appID := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := filepath.Join(dir, appID, RecordsFile)
		if exists, _ := afero.Exists(fs, name); !exists {
			log.Debug().Str("app", appID).Msg("no app records")
			continue
		}
		appEvents, err := aggregateApp(fs, name, appID, reg)
		if err != nil {
			log.Warn().Err(err).Str("app", appID).Msg("skipping app records")
			continue
		}
		events = append(events, appEvents...)
	}
	return events, nil
}

func aggregateApp(fs afero.Fs, name, appID string, reg *Registry) ([]timeline.Event, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return nil, err
	}

	details := func(map[string]string) string { return "" }
	if m, ok := reg.Resolve(appID); ok && m.Details != nil {
		details = m.Details
	}

	events := make([]timeline.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, timeline.Event{
			Timestamp: rowTimestamp(row),
			Category:  timeline.AppActivity,
			Label:     timeline.AppEventLabel(appID),
			Details:   details(row),
			SourceApp: appID,
		})
	}
	return events, nil
}

func rowTimestamp(row map[string]string) timeline.Timestamp {
	if v, err := strconv.ParseFloat(row["timestamp_unix"], 64); err == nil && v > 0 {
		return timeline.At(v)
	}
	return timeline.ParseDateTime(row["timestamp"], time.UTC)
}
