// Package ingest takes submitted links, drops the ones already known and
// stores the rest with whatever page metadata can be found for them.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/jdholdren/learninghub/internal/hub"
	"github.com/jdholdren/learninghub/internal/logger"
	"github.com/jdholdren/learninghub/internal/metadata"
)

// ErrNoValidURLs is returned when a batch has nothing left to process after
// filtering.
var ErrNoValidURLs = errors.New("no valid urls provided")

// Skip reasons
const (
	ReasonExists         = "Already exists"
	ReasonDuplicateBatch = "Duplicate in batch"
)

var itemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "learninghub_ingest_items_total",
	Help: "Submitted links by how they were classified.",
}, []string{"outcome"})

type (
	// Store is the part of storage the pipeline needs.
	Store interface {
		Resource(ctx context.Context, id string) (hub.Resource, error)
		// Returns hub.ErrNotFound if nothing has the url.
		ResourceByURL(ctx context.Context, url string) (hub.Resource, error)
		InsertResource(ctx context.Context, r hub.Resource) (hub.Resource, error)
		// Returns the created resources. Ones that lost a race on the url are
		// left out rather than failing the whole insert.
		InsertResources(ctx context.Context, rs []hub.Resource) ([]hub.Resource, error)
	}

	// MetadataFetcher resolves page metadata. It swallows its own errors and
	// returns an empty result instead.
	MetadataFetcher interface {
		Fetch(ctx context.Context, url string) metadata.Metadata
	}
)

// Pipeline classifies and stores submitted links.
type Pipeline struct {
	store            Store
	fetcher          MetadataFetcher
	fetchConcurrency int
}

func NewPipeline(store Store, fetcher MetadataFetcher, fetchConcurrency int) *Pipeline {
	if fetchConcurrency < 1 {
		fetchConcurrency = 1
	}

	return &Pipeline{
		store:            store,
		fetcher:          fetcher,
		fetchConcurrency: fetchConcurrency,
	}
}

var separators = regexp.MustCompile(`[\n,]+`)

// SplitURLs breaks a block of text into candidate urls on newlines and commas.
func SplitURLs(text string) []string {
	return CleanURLs(separators.Split(text, -1))
}

// CleanURLs trims each entry, dropping blanks and anything that isn't http(s).
func CleanURLs(list []string) []string {
	urls := make([]string, 0, len(list))
	for _, u := range list {
		u = strings.TrimSpace(u)
		if u == "" || !hub.HasHTTPScheme(u) {
			continue
		}
		urls = append(urls, u)
	}

	return urls
}

// BatchInput is a set of urls sharing the same category, type and team.
type BatchInput struct {
	URLs     []string
	Category hub.Category
	Type     hub.ResourceType
	TeamID   *string
}

// A url that made it past the duplicate checks and is waiting to be stored.
type pending struct {
	index     int // Position in the report
	url       string
	canonical string
	md        metadata.Metadata
}

// Batch processes every url in the input in order and stores the new ones
// with a single write.
//
// Duplicates and lookup errors are isolated to their own url in the report.
// An error from the final write fails the whole call and nothing is stored.
func (p *Pipeline) Batch(ctx context.Context, in BatchInput) (Report, error) {
	urls := CleanURLs(in.URLs)
	if len(urls) == 0 {
		return Report{}, ErrNoValidURLs
	}

	ctx = logger.Ctx(ctx, slog.Int("batch_size", len(urls)))

	var (
		outcomes = make([]Outcome, len(urls))
		seen     = make(map[string]struct{}, len(urls))
		buffer   []pending
	)
	for i, u := range urls {
		canonical := hub.NormalizeURL(u)

		// Catches the same link twice in one submission
		if _, ok := seen[canonical]; ok {
			outcomes[i] = Skipped{URL: u, Reason: ReasonDuplicateBatch}
			continue
		}
		seen[canonical] = struct{}{}

		_, err := p.store.ResourceByURL(ctx, canonical)
		if err == nil {
			outcomes[i] = Skipped{URL: u, Reason: ReasonExists}
			continue
		}
		if !errors.Is(err, hub.ErrNotFound) {
			slog.ErrorContext(ctx, "error checking for existing resource", "url", u, "error", err)
			outcomes[i] = Failed{URL: u, Err: err}
			continue
		}

		buffer = append(buffer, pending{index: i, url: u, canonical: canonical})
	}

	p.fetchAll(ctx, buffer)

	if len(buffer) > 0 {
		records := make([]hub.Resource, 0, len(buffer))
		for _, pend := range buffer {
			records = append(records, newResource(pend.canonical, pend.md, in.Category, in.Type, in.TeamID))
		}

		created, err := p.store.InsertResources(ctx, records)
		if err != nil {
			return Report{}, fmt.Errorf("error inserting resources: %w", err)
		}

		byURL := make(map[string]hub.Resource, len(created))
		for _, r := range created {
			byURL[r.URL] = r
		}
		for _, pend := range buffer {
			r, ok := byURL[pend.canonical]
			if !ok {
				// Someone else stored it between our check and the write
				outcomes[pend.index] = Skipped{URL: pend.url, Reason: ReasonExists}
				continue
			}
			outcomes[pend.index] = Added{URL: pend.url, Resource: r}
		}
	}

	report := Report{Outcomes: outcomes}
	sum := report.Summary()
	itemsProcessed.WithLabelValues("added").Add(float64(sum.Added))
	itemsProcessed.WithLabelValues("skipped").Add(float64(sum.Skipped))
	itemsProcessed.WithLabelValues("failed").Add(float64(sum.Failed))
	slog.InfoContext(ctx, "processed batch", "added", sum.Added, "skipped", sum.Skipped, "failed", sum.Failed)

	return report, nil
}

// Fetches metadata for every pending url, a few at a time.
//
// Each goroutine only writes to its own slot, so order is kept.
func (p *Pipeline) fetchAll(ctx context.Context, buffer []pending) {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.fetchConcurrency)
	for i := range buffer {
		i := i // per-iteration copy (go 1.21 loop semantics)
		g.Go(func() error {
			// The submitted url is fetched, not the canonical one
			buffer[i].md = p.fetcher.Fetch(gCtx, buffer[i].url)
			return nil
		})
	}
	_ = g.Wait() // Fetches never fail
}

func newResource(canonical string, md metadata.Metadata, category hub.Category, typ hub.ResourceType, teamID *string) hub.Resource {
	title := md.Title
	if title == "" {
		title = hub.PlaceholderTitle
	}

	return hub.Resource{
		URL:      canonical,
		Title:    title,
		Summary:  md.Description,
		Category: category,
		Type:     typ,
		Status:   hub.StatusActive,
		TeamID:   teamID,
	}
}
