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

// Package droidtimeline implements the droidtimeline command line tool that
// turns an Android extraction into timelines.
//     process   Build the timelines of a project
//     report    Show the report of the last run
//     apps      List the supported app modules
//
// Usage
//
// Process the system databases and media of a project
//     droidtimeline process case01
// Include app data and network captures
//     droidtimeline process --whole --app org.telegram.messenger case01
// Show which sources failed
//     droidtimeline report case01
//     droidtimeline report --query 'outcomes.#(status=="failed")#.source' case01
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forensicanalysis/droidtimeline/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "droidtimeline",
		Short: "Build timelines from Android extractions",
	}
	rootCmd.AddCommand(cmd.Process(), cmd.Report(), cmd.Apps())
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
