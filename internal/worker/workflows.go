package worker

import (
	"log/slog"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/jdholdren/learninghub/internal/hub"
)

// Most resources looked at per run.
const backfillBatchSize = 20

type workflows struct{}

// BackfillMetadata refreshes the metadata of resources stored with a
// placeholder title or no summary.
//
// Returns how many resources were changed.
func (workflows) BackfillMetadata(ctx workflow.Context) (int, error) {
	listOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	}

	var rscs []hub.Resource
	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, listOpts), acts.ResourcesNeedingMetadata, backfillBatchSize).Get(ctx, &rscs); err != nil {
		slog.Error("failed to list resources needing metadata", "error", err)
		return 0, err
	}

	refreshOpts := workflow.ActivityOptions{
		// Page fetch plus an optional summary
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	}
	refreshCtx := workflow.WithActivityOptions(ctx, refreshOpts)

	var (
		updated int
		wg      = workflow.NewWaitGroup(ctx)
	)
	wg.Add(len(rscs))
	for _, rsc := range rscs {
		rsc := rsc // per-iteration copy (go 1.21 loop semantics)
		workflow.Go(ctx, func(ctx workflow.Context) {
			defer wg.Done()

			var changed bool
			if err := workflow.ExecuteActivity(refreshCtx, acts.RefreshMetadata, rsc.ID).Get(ctx, &changed); err != nil {
				slog.Error("failed to refresh metadata", "resource_id", rsc.ID, "error", err)
				return
			}
			if changed {
				updated++
			}
		})
	}
	wg.Wait(ctx)

	return updated, nil
}
