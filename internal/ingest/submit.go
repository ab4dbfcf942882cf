package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/jdholdren/learninghub/internal/hub"
)

// DuplicateError is returned when a submitted url is already stored.
type DuplicateError struct {
	ExistingID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("resource with this url already exists: %s", e.ExistingID)
}

func (e *DuplicateError) Is(target error) bool {
	return target == hub.ErrConflict
}

// Submission is a single link, with optional hand-written details.
type Submission struct {
	URL         string
	Title       string
	Summary     string
	ContextNote *string
	Category    hub.Category
	Type        hub.ResourceType
	TeamID      *string
}

// Submit stores one link, filling in a missing title or summary from the page.
//
// Returns a *DuplicateError if the url is already stored.
func (p *Pipeline) Submit(ctx context.Context, sub Submission) (hub.Resource, error) {
	canonical := hub.NormalizeURL(sub.URL)

	existing, err := p.store.ResourceByURL(ctx, canonical)
	if err == nil {
		return hub.Resource{}, &DuplicateError{ExistingID: existing.ID}
	}
	if !errors.Is(err, hub.ErrNotFound) {
		return hub.Resource{}, fmt.Errorf("error checking for existing resource: %w", err)
	}

	title, summary := sub.Title, sub.Summary
	if title == "" || summary == "" {
		md := p.fetcher.Fetch(ctx, sub.URL)
		if title == "" {
			title = md.Title
		}
		if summary == "" {
			summary = md.Description
		}
	}
	if title == "" {
		title = hub.PlaceholderTitle
	}

	created, err := p.store.InsertResource(ctx, hub.Resource{
		URL:         canonical,
		Title:       title,
		Summary:     summary,
		ContextNote: sub.ContextNote,
		Category:    sub.Category,
		Type:        sub.Type,
		Status:      hub.StatusActive,
		TeamID:      sub.TeamID,
	})
	if errors.Is(err, hub.ErrConflict) {
		// Lost a race with another submission of the same url
		existing, lookupErr := p.store.ResourceByURL(ctx, canonical)
		if lookupErr != nil {
			return hub.Resource{}, &DuplicateError{}
		}
		return hub.Resource{}, &DuplicateError{ExistingID: existing.ID}
	}
	if err != nil {
		return hub.Resource{}, fmt.Errorf("error inserting resource: %w", err)
	}

	itemsProcessed.WithLabelValues("added").Inc()
	return created, nil
}
