package dispatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/mediagrab/mediagrab/internal/fetch"
	"github.com/mediagrab/mediagrab/internal/logctx"
	"github.com/mediagrab/mediagrab/internal/notifier"
	"github.com/mediagrab/mediagrab/internal/storage"
	"github.com/mediagrab/mediagrab/internal/task"
	"github.com/mediagrab/mediagrab/internal/telemetry"
)

// Deliverer hands fetched files back to the requesting chat.
type Deliverer interface {
	Deliver(ctx context.Context, d task.Descriptor, result *fetch.Result) error
	NotifyFailure(ctx context.Context, d task.Descriptor, reason string) error
}

// Cleaner schedules deferred removal of a task's working directory.
type Cleaner interface {
	Schedule(userID, taskID int64)
}

// Job runs a single task through fetch, ledger update and delivery.
type Job struct {
	registry  *fetch.Registry
	tasks     storage.TaskRepository
	deliverer Deliverer
	cleaner   Cleaner
	notifier  notifier.Notifier
	telemetry *telemetry.Telemetry

	downloadRoot string
}

func NewJob(
	registry *fetch.Registry,
	tasks storage.TaskRepository,
	deliverer Deliverer,
	cleaner Cleaner,
	opsNotifier notifier.Notifier,
	downloadRoot string,
	tel *telemetry.Telemetry,
) *Job {
	return &Job{
		registry:     registry,
		tasks:        tasks,
		deliverer:    deliverer,
		cleaner:      cleaner,
		notifier:     opsNotifier,
		telemetry:    tel,
		downloadRoot: downloadRoot,
	}
}

// Run drives the task to a terminal state. Cleanup of the working
// directory is scheduled on every path, success or failure.
func (j *Job) Run(ctx context.Context, d task.Descriptor) {
	ctx = logctx.With(ctx, "task_id", d.TaskID, "user_id", d.UserID, "platform", string(d.Platform))
	logger := logctx.LoggerFromContext(ctx)

	var completed bool

	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", "panic", r)
			j.telemetry.RecordSystemError("job", "panic")

			// Once the ledger says completed the status never moves
			// backwards: a panic in delivery is just a delivery failure.
			if !completed {
				j.fail(ctx, d, fmt.Sprintf("internal error: %v", r))
			}
		}
	}()

	defer j.cleaner.Schedule(d.UserID, d.TaskID)

	_ = j.telemetry.InstrumentTask(ctx, string(d.Platform), func(ctx context.Context) error {
		return j.run(ctx, d, &completed)
	})
}

func (j *Job) run(ctx context.Context, d task.Descriptor, completed *bool) error {
	logger := logctx.LoggerFromContext(ctx)

	fetcher, ok := j.registry.Lookup(d.Platform)
	if !ok {
		routingErr := &fetch.RoutingError{Platform: string(d.Platform)}
		logger.Warn("no fetcher for platform", "err", routingErr)

		j.fail(ctx, d, routingErr.Error())

		return routingErr
	}

	outputDir := filepath.Join(
		j.downloadRoot,
		strconv.FormatInt(d.UserID, 10),
		strconv.FormatInt(d.TaskID, 10),
	)

	logger.Info("task started", "url", d.URL)

	var result *fetch.Result

	fetchErr := j.telemetry.InstrumentFetch(ctx, string(d.Platform), func(ctx context.Context) error {
		var err error
		result, err = fetcher.Fetch(ctx, d.URL, outputDir)

		return err
	})
	if fetchErr != nil {
		logger.Error("fetch failed", "err", fetchErr)
		j.fail(ctx, d, fetchErr.Error())

		return fetchErr
	}

	totalSize := aggregateSize(result.Files)

	if err := j.tasks.CompleteTask(ctx, d.TaskID, outputDir, totalSize); err != nil {
		logger.Error("failed to record task completion", "err", err)
	} else {
		*completed = true
	}

	j.telemetry.RecordDownloadedBytes(string(d.Platform), totalSize)

	logger.Info("task completed",
		"files", len(result.Files),
		"size", humanize.Bytes(uint64(totalSize)),
	)

	// Delivery failure does not fail the task: the files were fetched
	// and the ledger already says completed.
	if err := j.deliverer.Deliver(ctx, d, result); err != nil {
		logger.Error("delivery failed", "err", err)
		j.telemetry.RecordSystemError("delivery", "send_failed")
	}

	return nil
}

func (j *Job) fail(ctx context.Context, d task.Descriptor, reason string) {
	logger := logctx.LoggerFromContext(ctx)

	if err := j.tasks.FailTask(ctx, d.TaskID, reason); err != nil {
		logger.Error("failed to record task failure", "err", err)
	}

	if err := j.deliverer.NotifyFailure(ctx, d, reason); err != nil {
		logger.Error("failed to notify user of failure", "err", err)
	}

	if j.notifier != nil {
		msg := fmt.Sprintf("❌ Task %d (%s) failed: %s", d.TaskID, d.Platform, reason)
		if err := j.notifier.Notify(ctx, msg); err != nil {
			logger.Warn("failed to send ops alert", "err", err)
		}
	}
}

// aggregateSize sums the sizes of files that still exist. A fetcher may
// report files that were cleaned up mid-flight; those count as zero.
func aggregateSize(files []string) int64 {
	var total int64

	for _, f := range files {
		if info, err := os.Stat(f); err == nil {
			total += info.Size()
		}
	}

	return total
}
