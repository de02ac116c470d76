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
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/forensicanalysis/droidtimeline"
	"github.com/forensicanalysis/droidtimeline/apps"
)

// Process is the droidtimeline process commandline subcommand
func Process() *cobra.Command {
	var configPath, logLevel, logFormat string
	var workers int
	var whole bool
	var appIDs []string

	processCommand := &cobra.Command{
		Use:   "process <project>",
		Short: "Build the timelines of a project",
		Args:  requireProject,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := droidtimeline.LoadConfig(configPath)
			if err != nil {
				return err
			}
			flags := droidtimeline.Config{
				Workers:         workers,
				LogLevel:        logLevel,
				LogFormat:       logFormat,
				Apps:            appIDs,
				RunHeavySources: whole,
			}
			if err := droidtimeline.Override(&cfg, flags); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, err := cfg.NewLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			pc, err := droidtimeline.NewProjectContext(args[0], afero.NewOsFs(), log)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			report, err := droidtimeline.Process(ctx, pc, droidtimeline.Options{
				RunHeavySources: cfg.RunHeavySources,
				AppIDs:          cfg.Apps,
				Workers:         cfg.Workers,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d events, %d failed sources\n", report.Combined, len(report.Failed()))
			return nil
		},
	}
	processCommand.Flags().StringVar(&configPath, "config", "", "TOML configuration file")
	processCommand.Flags().BoolVar(&whole, "whole", false, "also process app data and network captures")
	processCommand.Flags().StringArrayVar(&appIDs, "app", nil, "app module to run, can be repeated")
	processCommand.Flags().IntVar(&workers, "workers", 0, "number of sources processed in parallel")
	processCommand.Flags().StringVar(&logLevel, "log-level", "", "log level")
	processCommand.Flags().StringVar(&logFormat, "log-format", "", "log format, json or console")
	return processCommand
}

// Report is the droidtimeline report commandline subcommand
func Report() *cobra.Command {
	var query string
	reportCommand := &cobra.Command{
		Use:   "report <project>",
		Short: "Show the report of the last run",
		Args:  requireProject,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := droidtimeline.NewProjectContext(args[0], afero.NewOsFs(), zerolog.Nop())
			if err != nil {
				return err
			}
			data, err := afero.ReadFile(pc.Fs, pc.ReportPath())
			if err != nil {
				return errors.Wrap(err, "project was not processed yet")
			}
			if !gjson.ValidBytes(data) {
				return errors.New("report is not valid json")
			}

			out := cmd.OutOrStdout()
			if query != "" {
				fmt.Fprintln(out, gjson.GetBytes(data, query).String())
				return nil
			}

			fmt.Fprintf(out, "run %s: %d events\n",
				gjson.GetBytes(data, "run_id").String(),
				gjson.GetBytes(data, "combined_events").Int())
			gjson.GetBytes(data, "outcomes").ForEach(func(_, outcome gjson.Result) bool {
				fmt.Fprintf(out, "%-32s %-8s %6d %s\n",
					outcome.Get("source").String(),
					outcome.Get("status").String(),
					outcome.Get("events").Int(),
					outcome.Get("reason").String())
				return true
			})
			return nil
		},
	}
	reportCommand.Flags().StringVar(&query, "query", "", "print a single gjson path of the report")
	return reportCommand
}

// Apps is the droidtimeline apps commandline subcommand
func Apps() *cobra.Command {
	return &cobra.Command{
		Use:   "apps",
		Short: "List the supported app modules",
		Long:  "List the supported app modules. Apps without a module are scanned for sensitive data by the generic module.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range apps.DefaultRegistry.IDs() {
				module, _ := apps.DefaultRegistry.Lookup(id)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, module.Name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "*\t%s\n", apps.GenericName)
			return nil
		},
	}
}

func requireProject(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.New("requires exactly one project")
	}
	info, err := os.Stat(args[0])
	if os.IsNotExist(err) {
		return errors.Wrap(droidtimeline.ErrProjectNotExists, args[0])
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.Errorf("%s is not a directory", args[0])
	}
	return nil
}
