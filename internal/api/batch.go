package api

import (
	"errors"
	"fmt"
	"net/http"

	v1 "github.com/jdholdren/learninghub/api/resources/v1"
	huberrs "github.com/jdholdren/learninghub/internal/errors"
	"github.com/jdholdren/learninghub/internal/hub"
	"github.com/jdholdren/learninghub/internal/ingest"
	"github.com/jdholdren/learninghub/internal/serverutil"
)

// Takes many urls at once and reports what happened to each.
func (s Server) postBatch(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	req, err := decode[v1.BatchRequest](r)
	if err != nil {
		return err
	}

	teamID, err := s.checkClassification(r, req.Category, req.Type, req.TeamID)
	if err != nil {
		return err
	}

	urls := req.URLs.List
	if urls == nil {
		urls = ingest.SplitURLs(req.URLs.Text)
	}

	report, err := s.pipeline.Batch(ctx, ingest.BatchInput{
		URLs:     urls,
		Category: hub.Category(req.Category),
		Type:     hub.ResourceType(req.Type),
		TeamID:   teamID,
	})
	if errors.Is(err, ingest.ErrNoValidURLs) {
		return huberrs.Invalid("urls", "No valid URLs provided")
	}
	if err != nil {
		return fmt.Errorf("error processing batch: %w", err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, toBatchResponse(report))
}

func toBatchResponse(report ingest.Report) v1.BatchResponse {
	sum := report.Summary()
	resp := v1.BatchResponse{
		Message: "Batch processing complete",
		Summary: v1.BatchSummary{
			Total:   sum.Total,
			Added:   sum.Added,
			Skipped: sum.Skipped,
			Failed:  sum.Failed,
		},
		Results: v1.BatchResults{
			Successful: []v1.Resource{},
			Skipped:    []v1.SkippedItem{},
			Failed:     []v1.FailedItem{},
		},
	}

	for _, o := range report.Outcomes {
		switch o := o.(type) {
		case ingest.Added:
			resp.Results.Successful = append(resp.Results.Successful, toWireResource(o.Resource))
		case ingest.Skipped:
			resp.Results.Skipped = append(resp.Results.Skipped, v1.SkippedItem{URL: o.URL, Reason: o.Reason})
		case ingest.Failed:
			resp.Results.Failed = append(resp.Results.Failed, v1.FailedItem{URL: o.URL, Error: o.Err.Error()})
		}
	}

	return resp
}
