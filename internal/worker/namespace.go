package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"google.golang.org/protobuf/types/known/durationpb"
)

// Backfill runs are only interesting for a few days.
const namespaceRetention = 72 * time.Hour

// EnsureNamespace registers the namespace the worker runs in, leaving it be
// when it already exists.
func EnsureNamespace(ctx context.Context, cli workflowservice.WorkflowServiceClient, namespace string) error {
	_, err := cli.RegisterNamespace(ctx, &workflowservice.RegisterNamespaceRequest{
		Namespace:                        namespace,
		Description:                      "learninghub metadata backfill",
		WorkflowExecutionRetentionPeriod: durationpb.New(namespaceRetention),
	})
	var existsErr *serviceerror.NamespaceAlreadyExists
	if errors.As(err, &existsErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error registering namespace %q: %w", namespace, err)
	}

	return nil
}
