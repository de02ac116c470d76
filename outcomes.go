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

package droidtimeline

import (
	"sort"
	"strings"
	"sync"

	"github.com/forensicanalysis/droidtimeline/apps"
	"github.com/forensicanalysis/droidtimeline/timeline"
)

// Status classifies the outcome of one source.
type Status string

// Source statuses.
const (
	StatusOK      Status = "ok"
	StatusEmpty   Status = "empty"
	StatusMissing Status = "missing"
	StatusFailed  Status = "failed"
)

// SourceOutcome records what a single source contributed to a run.
type SourceOutcome struct {
	Source   string            `json:"source"`
	Category string            `json:"category"`
	Status   Status            `json:"status"`
	Events   int               `json:"events"`
	Reason   string            `json:"reason,omitempty"`
	Parse    *apps.ParseReport `json:"parse,omitempty"`
}

// outcomeMap collects outcomes and events of concurrently running sources.
type outcomeMap struct {
	sync.RWMutex
	outcomes map[string]SourceOutcome
	events   map[timeline.Category][]timeline.Event
	failed   map[timeline.Category]bool
	ran      map[timeline.Category]bool
}

func newOutcomeMap() *outcomeMap {
	return &outcomeMap{
		outcomes: map[string]SourceOutcome{},
		events:   map[timeline.Category][]timeline.Event{},
		failed:   map[timeline.Category]bool{},
		ran:      map[timeline.Category]bool{},
	}
}

// add stores the outcome of a source. Events are only kept for sources that
// did not fail.
func (om *outcomeMap) add(category timeline.Category, outcome SourceOutcome, events []timeline.Event) {
	om.Lock()
	defer om.Unlock()
	outcome.Category = category.Token()
	om.outcomes[outcome.Source] = outcome
	om.ran[category] = true
	if outcome.Status == StatusFailed {
		om.failed[category] = true
		return
	}
	om.events[category] = append(om.events[category], events...)
}

// record stores an outcome that contributes no events of its own.
func (om *outcomeMap) record(category timeline.Category, outcome SourceOutcome) {
	om.Lock()
	defer om.Unlock()
	outcome.Category = category.Token()
	om.outcomes[outcome.Source] = outcome
}

// parsedApps returns the ids of the apps whose records were written in this
// run, in sorted order.
func (om *outcomeMap) parsedApps() []string {
	om.RLock()
	defer om.RUnlock()
	var ids []string
	for source, outcome := range om.outcomes {
		if !strings.HasPrefix(source, appSourcePrefix) {
			continue
		}
		if outcome.Status == StatusOK || outcome.Status == StatusEmpty {
			ids = append(ids, strings.TrimPrefix(source, appSourcePrefix))
		}
	}
	sort.Strings(ids)
	return ids
}

// all returns the outcomes ordered by source name.
func (om *outcomeMap) all() []SourceOutcome {
	om.RLock()
	defer om.RUnlock()
	outcomes := make([]SourceOutcome, 0, len(om.outcomes))
	for _, outcome := range om.outcomes {
		outcomes = append(outcomes, outcome)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Source < outcomes[j].Source })
	return outcomes
}

// sequences returns the collected events in category order.
func (om *outcomeMap) sequences() [][]timeline.Event {
	om.RLock()
	defer om.RUnlock()
	var sequences [][]timeline.Event
	for _, category := range timeline.Categories() {
		sequences = append(sequences, om.events[category])
	}
	return sequences
}

// present lists the categories that ran and had no failing source.
func (om *outcomeMap) present() map[timeline.Category]bool {
	om.RLock()
	defer om.RUnlock()
	present := map[timeline.Category]bool{}
	for category := range om.ran {
		if !om.failed[category] {
			present[category] = true
		}
	}
	return present
}

func statusOf(events int) Status {
	if events == 0 {
		return StatusEmpty
	}
	return StatusOK
}
