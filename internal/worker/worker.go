// Package worker revisits resources that were stored without usable
// metadata and fills it in on a schedule.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/jdholdren/learninghub/internal/hub"
	"github.com/jdholdren/learninghub/internal/ingest"
)

const TaskQueue = "learninghub"

const (
	backfillScheduleID = "backfill_metadata"
	backfillInterval   = 30 * time.Minute
)

// NewWorker sets up the worker with registration of workflows, activities, and schedules.
//
// summarizer may be nil, in which case resources are only filled from their pages.
func NewWorker(ctx context.Context, repo hub.ResourceRepo, fetcher ingest.MetadataFetcher, summarizer Summarizer, cli client.Client) (worker.Worker, error) {
	a := activities{
		repo:       repo,
		fetcher:    fetcher,
		summarizer: summarizer,
	}

	w := worker.New(cli, TaskQueue, worker.Options{})

	if err := registerEverything(ctx, w, a, cli); err != nil {
		return nil, fmt.Errorf("error registering workflows and activities: %T, %v", err, err)
	}

	return w, nil
}

func registerEverything(ctx context.Context, w worker.Worker, a activities, cli client.Client) error {
	// Workflows
	wfs := workflows{}
	w.RegisterWorkflow(wfs.BackfillMetadata)

	// Activities
	w.RegisterActivity(&a)

	// Schedules
	return ensureSchedule(ctx, cli, client.ScheduleOptions{
		ID: backfillScheduleID,
		Spec: client.ScheduleSpec{
			Intervals: []client.ScheduleIntervalSpec{{Every: backfillInterval}},
		},
		Action: &client.ScheduleWorkflowAction{
			ID:        backfillScheduleID,
			Workflow:  wfs.BackfillMetadata,
			TaskQueue: TaskQueue,
		},
		TriggerImmediately: true,
	})
}

// Creates the schedule if it doesn't exist yet, otherwise leaves it as is.
func ensureSchedule(ctx context.Context, cli client.Client, opts client.ScheduleOptions) error {
	handle := cli.ScheduleClient().GetHandle(ctx, opts.ID)
	if _, err := handle.Describe(ctx); err == nil {
		return nil
	}

	if _, err := cli.ScheduleClient().Create(ctx, opts); err != nil {
		return fmt.Errorf("error creating schedule %s: %w", opts.ID, err)
	}

	return nil
}

// Error types
//
// These are error types in the temporal sense, not the general "go" error types sense.
// They are used since between activities error types are marshaled and type information is lost.
const (
	errTypeInternal  = "internal"
	errTypeRateLimit = "rateLimit"
)
