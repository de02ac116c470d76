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

package timeline

import (
	"math"
	"sort"
)

func sortKey(e Event) float64 {
	if !e.Timestamp.Valid {
		return math.Inf(-1)
	}
	return e.Timestamp.Seconds
}

// SortDescending orders events most recent first. Events without timestamp
// count as the oldest and therefore end up last. Equal keys keep their input
// order.
func SortDescending(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return sortKey(events[i]) > sortKey(events[j])
	})
}

// SortAscending orders events oldest first, events without timestamp first.
func SortAscending(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return sortKey(events[i]) < sortKey(events[j])
	})
}

// Fused is the result of merging all source sequences.
type Fused struct {
	ByCategory map[Category][]Event
	Combined   []Event
}

// Fuse groups the events of all sequences by category and sorts every group
// and the combined timeline in descending order. The combined timeline is the
// concatenation of the categories in canonical order; nothing is deduplicated.
func Fuse(sequences ...[]Event) *Fused {
	fused := &Fused{ByCategory: map[Category][]Event{}}
	for _, sequence := range sequences {
		for _, event := range sequence {
			fused.ByCategory[event.Category] = append(fused.ByCategory[event.Category], event)
		}
	}

	for _, category := range Categories() {
		events, ok := fused.ByCategory[category]
		if !ok {
			continue
		}
		SortDescending(events)
		fused.Combined = append(fused.Combined, events...)
	}
	SortDescending(fused.Combined)
	return fused
}
