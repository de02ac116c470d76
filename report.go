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
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/afero"

	"github.com/forensicanalysis/droidtimeline/timeline"
)

// Report summarizes a processing run. It is stored as report.json.
type Report struct {
	RunID           string          `json:"run_id"`
	Project         string          `json:"project"`
	RunHeavySources bool            `json:"run_heavy_sources"`
	Started         time.Time       `json:"started"`
	Finished        time.Time       `json:"finished"`
	Combined        int             `json:"combined_events"`
	Outcomes        []SourceOutcome `json:"outcomes"`
}

// Failed returns the outcomes of failed sources.
func (r *Report) Failed() []SourceOutcome {
	var failed []SourceOutcome
	for _, outcome := range r.Outcomes {
		if outcome.Status == StatusFailed {
			failed = append(failed, outcome)
		}
	}
	return failed
}

// WriteReport stores r as indented JSON.
func WriteReport(fs afero.Fs, name string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return timeline.WriteFileAtomic(fs, name, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// ReadReport loads a report written by WriteReport.
func ReadReport(fs afero.Fs, name string) (*Report, error) {
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil, err
	}
	r := &Report{}
	return r, json.Unmarshal(data, r)
}
