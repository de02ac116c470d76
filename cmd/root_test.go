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

package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crawshaw.io/sqlite/sqlitex"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicanalysis/droidtimeline"
	"github.com/forensicanalysis/droidtimeline/dbutil"
)

func setup(t *testing.T) string {
	project := t.TempDir()
	dir := filepath.Join(project, "extract", "other", "important_databases")
	require.NoError(t, os.MkdirAll(dir, 0755))

	conn, err := dbutil.Create(filepath.Join(dir, droidtimeline.SMSDB))
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, sqlitex.ExecScript(conn, `
		CREATE TABLE sms (_id INTEGER PRIMARY KEY, address TEXT, date INTEGER, type INTEGER, body TEXT);
		INSERT INTO sms VALUES (1, '+15550001', 1700000000000, 1, 'hi');
		INSERT INTO sms VALUES (2, '+15550002', 1700000100000, 2, 'yo');
	`))
	return project
}

func execute(args []string, command *cobra.Command) (string, error) {
	buf := &bytes.Buffer{}
	command.SetArgs(args)
	command.SetOut(buf)
	command.SetErr(io.Discard)
	err := command.Execute()
	return buf.String(), err
}

func Test_processAndReport(t *testing.T) {
	project := setup(t)

	output, err := execute([]string{"--log-level", "error", project}, Process())
	require.NoError(t, err)
	assert.Equal(t, "2 events, 0 failed sources\n", output)

	output, err = execute([]string{project}, Report())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(output, "run "))
	assert.Contains(t, output, "sms")
	assert.Contains(t, output, "missing")

	output, err = execute([]string{"--query", "combined_events", project}, Report())
	require.NoError(t, err)
	assert.Equal(t, "2\n", output)
}

func Test_reportUnprocessed(t *testing.T) {
	_, err := execute([]string{t.TempDir()}, Report())
	assert.Error(t, err)
}

func Test_appsCommand(t *testing.T) {
	output, err := execute([]string{}, Apps())
	require.NoError(t, err)
	assert.Equal(t, "org.telegram.messenger\tTelegram\norg.telegram.messenger.web\tTelegram (web build)\n*\tGeneric app data\n", output)
}

func Test_requireProject(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"project", []string{dir}, false},
		{"no args", nil, true},
		{"two args", []string{dir, dir}, true},
		{"missing", []string{filepath.Join(dir, "missing")}, true},
		{"file", []string{file}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := requireProject(nil, tt.args); (err != nil) != tt.wantErr {
				t.Errorf("requireProject() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
