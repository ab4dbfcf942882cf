package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.temporal.io/sdk/temporal"

	"github.com/jdholdren/learninghub/internal/hub"
	"github.com/jdholdren/learninghub/internal/ingest"
)

type activities struct {
	repo       hub.ResourceRepo
	fetcher    ingest.MetadataFetcher
	summarizer Summarizer
}

// Used for referencing activities by method in workflows.
var acts = activities{}

func (a activities) ResourcesNeedingMetadata(ctx context.Context, limit uint64) ([]hub.Resource, error) {
	rscs, err := a.repo.ResourcesNeedingMetadata(ctx, limit)
	if err != nil {
		return nil, temporal.NewApplicationError("error listing resources", errTypeInternal, err)
	}

	return rscs, nil
}

// RefreshMetadata fetches the page of the resource again and fills in the
// title and summary if they are still missing. Fields someone already set
// are left alone.
//
// Reports whether anything about the resource changed.
func (a activities) RefreshMetadata(ctx context.Context, id string) (bool, error) {
	rsc, err := a.repo.Resource(ctx, id)
	if errors.Is(err, hub.ErrNotFound) {
		// Deleted since it was listed
		return false, nil
	}
	if err != nil {
		return false, temporal.NewApplicationError("error fetching resource", errTypeInternal, err)
	}

	md := a.fetcher.Fetch(ctx, rsc.URL)

	title, summary := rsc.Title, rsc.Summary
	if title == hub.PlaceholderTitle && md.Title != "" {
		title = md.Title
	}
	if summary == "" {
		summary = md.Description
	}
	if summary == "" && md.Text != "" && a.summarizer != nil {
		summary, err = a.summarizer.Summarize(ctx, title, md.Text)
		if err != nil {
			// Still counts as an attempt towards the cap
			if updateErr := a.repo.UpdateResourceMetadata(ctx, rsc.ID, title, ""); updateErr != nil {
				slog.ErrorContext(ctx, "error recording metadata attempt", "resource_id", rsc.ID, "error", updateErr)
			}
			return false, err
		}
	}
	summary = strings.TrimSpace(summary)

	// Recorded even when nothing was found so the attempt counts
	if err := a.repo.UpdateResourceMetadata(ctx, rsc.ID, title, summary); err != nil {
		return false, temporal.NewApplicationError(fmt.Sprintf("error updating resource %s", rsc.ID), errTypeInternal, err)
	}

	changed := title != rsc.Title || summary != rsc.Summary
	slog.InfoContext(ctx, "refreshed metadata", "resource_id", rsc.ID, "changed", changed)

	return changed, nil
}
