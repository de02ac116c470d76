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
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/forensicanalysis/droidtimeline/apps"
	"github.com/forensicanalysis/droidtimeline/sources"
	"github.com/forensicanalysis/droidtimeline/timeline"
)

// Options select what a processing run does.
type Options struct {
	// RunHeavySources enables app data and network capture processing.
	RunHeavySources bool
	// AppIDs are the app modules to run, ignored without RunHeavySources.
	AppIDs []string
	// Workers limits the number of sources processed at the same time.
	Workers int
	// Registry defaults to apps.DefaultRegistry.
	Registry *apps.Registry
}

// Extractors returns the generic source extractors of a project.
func Extractors(pc *ProjectContext, runHeavySources bool) []sources.Extractor {
	extractors := []sources.Extractor{
		sources.NewContacts(pc.Database(ContactsDB), pc.Log),
		sources.NewCallLog(pc.Database(CallLogDB), pc.Log),
		sources.NewCalendar(pc.Database(CalendarDB), pc.Log),
		sources.NewSMS(pc.Database(SMSDB), pc.Log),
		sources.NewMedia(pc.Fs, pc.MediaDir(), pc.Log),
	}
	if runHeavySources {
		extractors = append(extractors, sources.NewNetwork(pc.Fs, pc.NetworkDir(), pc.NetworkOutputDir(), pc.Log))
	}
	return extractors
}

// Process runs all sources of the project, writes the timelines and returns
// the run report. Errors of single sources end up in the report; an error is
// only returned if the run was canceled or its outputs could not be written.
func Process(ctx context.Context, pc *ProjectContext, opts Options) (*Report, error) {
	if opts.Registry == nil {
		opts.Registry = apps.DefaultRegistry
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	report := &Report{
		RunID:           pc.RunID,
		Project:         pc.Root,
		RunHeavySources: opts.RunHeavySources,
		Started:         time.Now().UTC(),
	}
	outcomes := newOutcomeMap()

	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for _, extractor := range Extractors(pc, opts.RunHeavySources) {
		extractor := extractor
		g.Go(func() error {
			runExtractor(ctx, pc, extractor, outcomes)
			return nil
		})
	}
	if opts.RunHeavySources {
		for _, appID := range opts.AppIDs {
			appID := appID
			g.Go(func() error {
				runApp(ctx, pc, opts.Registry, appID, outcomes)
				return nil
			})
		}
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	appEvents, err := apps.Aggregate(pc.Log.WithContext(ctx), pc.Fs, pc.AppsDir(), opts.Registry, outcomes.parsedApps())
	outcome := SourceOutcome{Source: "app_activity", Status: statusOf(len(appEvents)), Events: len(appEvents)}
	if err != nil {
		pc.Log.Error().Err(err).Msg("could not aggregate app records")
		outcome = SourceOutcome{Source: "app_activity", Status: StatusFailed, Reason: err.Error()}
	}
	outcomes.add(timeline.AppActivity, outcome, appEvents)

	fused := timeline.Fuse(outcomes.sequences()...)
	if err := timeline.Save(pc.Fs, pc.TimelineDir(), fused, outcomes.present()); err != nil {
		return nil, err
	}

	report.Outcomes = outcomes.all()
	report.Combined = len(fused.Combined)
	report.Finished = time.Now().UTC()
	if err := WriteReport(pc.Fs, pc.ReportPath(), report); err != nil {
		return nil, err
	}
	pc.Log.Info().Int("events", report.Combined).Msg("timeline written")
	return report, nil
}

func runExtractor(ctx context.Context, pc *ProjectContext, extractor sources.Extractor, outcomes *outcomeMap) {
	log := pc.Log.With().Str("source", extractor.Name()).Logger()
	outcome := SourceOutcome{Source: extractor.Name()}

	if !extractor.Present() {
		log.Info().Msg("artifact missing")
		outcome.Status = StatusMissing
		outcomes.add(extractor.Category(), outcome, nil)
		return
	}

	events, err := extractor.Extract(ctx)
	if err != nil {
		log.Error().Err(err).Msg("source failed")
		outcome.Status = StatusFailed
		outcome.Reason = err.Error()
		outcomes.add(extractor.Category(), outcome, nil)
		return
	}
	outcome.Status = statusOf(len(events))
	outcome.Events = len(events)
	log.Info().Int("events", len(events)).Msg("source done")
	outcomes.add(extractor.Category(), outcome, events)
}

const appSourcePrefix = "app:"

// runApp parses one app and writes its records. The app's AppActivity events
// are produced later by the aggregator from the written records, so the
// outcome carries no events. Outputs of an earlier run are removed when the
// app is missing or fails.
func runApp(ctx context.Context, pc *ProjectContext, reg *apps.Registry, appID string, outcomes *outcomeMap) {
	log := pc.Log.With().Str("app", appID).Logger()
	outcome := SourceOutcome{Source: appSourcePrefix + appID}
	record := func() {
		if outcome.Status == StatusMissing || outcome.Status == StatusFailed {
			if err := pc.Fs.RemoveAll(pc.AppDir(appID)); err != nil {
				log.Warn().Err(err).Msg("could not remove stale app records")
			}
		}
		outcomes.record(timeline.AppActivity, outcome)
	}

	module, ok := reg.Resolve(appID)
	if !ok {
		log.Error().Msg("no module for app")
		outcome.Status = StatusFailed
		outcome.Reason = "no module registered"
		record()
		return
	}

	result, err := module.Parser.Parse(log.WithContext(ctx), pc.AppData(appID))
	switch {
	case errors.Is(err, apps.ErrDatabaseNotFound), errors.Is(err, apps.ErrAppDataNotFound):
		log.Info().Err(err).Msg("app data missing")
		outcome.Status = StatusMissing
		outcome.Reason = err.Error()
		record()
		return
	case err != nil:
		log.Error().Err(err).Msg("app parse failed")
		outcome.Status = StatusFailed
		outcome.Reason = err.Error()
		record()
		return
	}

	outcome.Parse = &result.Report
	if err := apps.WriteOutputs(ctx, pc.Fs, pc.AppDir(appID), result); err != nil {
		log.Error().Err(err).Msg("could not write app records")
		outcome.Status = StatusFailed
		outcome.Reason = err.Error()
		record()
		return
	}
	outcome.Status = statusOf(result.Count())
	outcome.Events = result.Count()
	log.Info().Int("parsed", result.Report.Parsed).Int("skipped", result.Report.Skipped).Msg("app done")
	record()
}
