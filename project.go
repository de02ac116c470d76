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
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// ErrProjectNotExists is returned if the project root does not exist.
var ErrProjectNotExists = errors.New("project does not exist")

// Names of the well known system databases.
const (
	ContactsDB = "contacts2.db"
	CallLogDB  = "calllog.db"
	CalendarDB = "calendar.db"
	SMSDB      = "mmssms.db"
)

// ProjectContext carries everything an operation needs to know about the
// project it works on.
type ProjectContext struct {
	Root  string
	Fs    afero.Fs
	Log   zerolog.Logger
	RunID string
}

// NewProjectContext checks that root is a directory on fs and assigns a new
// run id.
func NewProjectContext(root string, fs afero.Fs, log zerolog.Logger) (*ProjectContext, error) {
	info, err := fs.Stat(root)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(ErrProjectNotExists, root)
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", root)
	}
	runID := uuid.New().String()
	return &ProjectContext{
		Root:  root,
		Fs:    fs,
		Log:   log.With().Str("run_id", runID).Logger(),
		RunID: runID,
	}, nil
}

func (pc *ProjectContext) path(elem ...string) string {
	return filepath.Join(append([]string{pc.Root}, elem...)...)
}

// Database returns the path of a system database.
func (pc *ProjectContext) Database(name string) string {
	return pc.path("extract", "other", "important_databases", name)
}

// MediaDir is the root of the copied shared storage.
func (pc *ProjectContext) MediaDir() string { return pc.path("extract", "media", "sdcard") }

// NetworkDir holds the packet captures.
func (pc *ProjectContext) NetworkDir() string { return pc.path("extract", "network") }

// NetworkOutputDir holds the findings files of the packet captures.
func (pc *ProjectContext) NetworkOutputDir() string { return pc.path("processed_data", "network") }

// AppData returns the private data directory of an app.
func (pc *ProjectContext) AppData(appID string) string {
	return pc.path("extract", "apps_data", appID)
}

// AppsDir holds one output directory per parsed app.
func (pc *ProjectContext) AppsDir() string { return pc.path("processed_data", "apps") }

// AppDir is the output directory of an app.
func (pc *ProjectContext) AppDir(appID string) string {
	return pc.path("processed_data", "apps", appID)
}

// TimelineDir holds the category and combined timelines.
func (pc *ProjectContext) TimelineDir() string { return pc.path("processed_data", "timeline") }

// ReportPath is the location of the run report.
func (pc *ProjectContext) ReportPath() string { return pc.path("processed_data", "report.json") }
