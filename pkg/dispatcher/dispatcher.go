// Package dispatcher runs pending jobs on the host's main loop. It is the one
// place where an import failure is caught, so nothing a job does can stop the
// host's timer from firing again.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"mhurbridge/pkg/bus"
	"mhurbridge/pkg/host"
	"mhurbridge/pkg/pipeline"
	"mhurbridge/pkg/protocol"
)

const notificationTitle = "MHUR Porting"

// Source hands over the pending job, if any, without blocking.
type Source interface {
	TakeIfSignaled() (*protocol.ImportJob, bool)
}

// Importer runs one job to completion on the calling goroutine.
type Importer interface {
	Import(ctx context.Context, job *protocol.ImportJob) (pipeline.Report, error)
}

// PipelineError is an import failure caught at the dispatch boundary.
type PipelineError struct {
	JobID string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("import job %s: %v", e.JobID, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

type Dispatcher struct {
	source   Source
	importer Importer
	notifier host.Notifier
	events   *bus.Bus
	interval time.Duration
	log      *slog.Logger
}

func New(source Source, importer Importer, notifier host.Notifier, events *bus.Bus, interval time.Duration, log *slog.Logger) (*Dispatcher, error) {
	if source == nil {
		return nil, errors.New("job source is required")
	}
	if importer == nil {
		return nil, errors.New("importer is required")
	}
	if interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		source:   source,
		importer: importer,
		notifier: notifier,
		events:   events,
		interval: interval,
		log:      log.With("component", "dispatcher"),
	}, nil
}

// Timer adapts Tick to the host scheduler. Once ctx is done the timer keeps
// firing but no longer takes jobs.
func (d *Dispatcher) Timer(ctx context.Context) host.TimerFunc {
	return func() time.Duration {
		return d.Tick(ctx)
	}
}

// Tick takes the pending job, if any, runs it and returns the delay before
// the next tick. It never panics and never blocks on the receiver.
func (d *Dispatcher) Tick(ctx context.Context) time.Duration {
	if ctx.Err() != nil {
		return d.interval
	}

	job, ok := d.source.TakeIfSignaled()
	if !ok || job == nil {
		return d.interval
	}

	report, err := d.run(ctx, job)
	if err != nil {
		d.fail(job, err)
		return d.interval
	}

	d.complete(job, report)
	return d.interval
}

func (d *Dispatcher) run(ctx context.Context, job *protocol.ImportJob) (report pipeline.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PipelineError{JobID: job.ID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	started := time.Now()
	report, err = d.importer.Import(ctx, job)
	if err != nil {
		return report, &PipelineError{JobID: job.ID, Err: err}
	}

	d.log.Debug("Import finished", "job_id", job.ID, "elapsed", time.Since(started))
	return report, nil
}

func (d *Dispatcher) fail(job *protocol.ImportJob, err error) {
	d.log.Error("Import failed", "job_id", job.ID, "asset", job.Data.Name, "error", err)
	d.notify(err.Error(), host.SeverityError)
	d.events.Publish(bus.Event{Type: bus.EventJobFailed, JobID: job.ID, Asset: job.Data.Name, Error: err.Error()})
}

func (d *Dispatcher) complete(job *protocol.ImportJob, report pipeline.Report) {
	d.log.Info("Import complete",
		"job_id", job.ID,
		"asset", report.Asset,
		"imported", len(report.Imported),
		"skipped", len(report.Skipped),
		"duplicates", report.Duplicates,
		"materials", report.Materials,
		"textures", report.Bindings.Textures,
	)

	if len(report.Skipped) > 0 {
		d.notify(fmt.Sprintf("Imported %s with %d of %d parts skipped", report.Asset, len(report.Skipped), len(report.Skipped)+len(report.Imported)), host.SeverityWarning)
	}

	d.events.Publish(bus.Event{
		Type:  bus.EventJobCompleted,
		JobID: job.ID,
		Asset: report.Asset,
		Payload: map[string]string{
			"imported":   strconv.Itoa(len(report.Imported)),
			"skipped":    strconv.Itoa(len(report.Skipped)),
			"duplicates": strconv.Itoa(report.Duplicates),
			"materials":  strconv.Itoa(report.Materials),
		},
	})
}

func (d *Dispatcher) notify(message string, severity host.Severity) {
	if d.notifier == nil {
		return
	}
	d.notifier.Notify(notificationTitle, message, severity)
}
