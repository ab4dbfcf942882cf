package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/learninghub/internal/hub"
	"github.com/jdholdren/learninghub/internal/metadata"
)

func TestSubmit_FillsFromMetadata(t *testing.T) {
	store := newFakeStore()
	p, _ := newTestPipeline(store, map[string]metadata.Metadata{
		"https://Blog.dev/post/": {Title: "A Post", Description: "About things"},
	})

	r, err := p.Submit(context.Background(), Submission{
		URL:      "https://Blog.dev/post/",
		Category: "Industry News & Trends",
		Type:     "Article",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://blog.dev/post", r.URL)
	assert.Equal(t, "A Post", r.Title)
	assert.Equal(t, "About things", r.Summary)
	assert.Equal(t, hub.StatusActive, r.Status)
}

func TestSubmit_KeepsGivenFields(t *testing.T) {
	store := newFakeStore()
	p, f := newTestPipeline(store, nil)
	note := "Great for onboarding"

	r, err := p.Submit(context.Background(), Submission{
		URL:         "https://a.com/x",
		Title:       "Mine",
		Summary:     "My summary",
		ContextNote: &note,
		Category:    "Tools & Platforms",
		Type:        "Tool",
	})
	require.NoError(t, err)

	assert.Equal(t, "Mine", r.Title)
	assert.Equal(t, "My summary", r.Summary)
	assert.Equal(t, &note, r.ContextNote)
	assert.Empty(t, f.fetched)
}

func TestSubmit_Placeholder(t *testing.T) {
	store := newFakeStore()
	p, _ := newTestPipeline(store, nil)

	r, err := p.Submit(context.Background(), Submission{URL: "https://a.com/x", Category: "Tools & Platforms", Type: "Tool"})
	require.NoError(t, err)

	assert.Equal(t, hub.PlaceholderTitle, r.Title)
}

func TestSubmit_Duplicate(t *testing.T) {
	store := newFakeStore()
	seeded := store.seed("https://a.com/x")
	p, _ := newTestPipeline(store, nil)

	_, err := p.Submit(context.Background(), Submission{URL: "HTTPS://A.COM/x/", Category: "Tools & Platforms", Type: "Tool"})

	require.ErrorIs(t, err, hub.ErrConflict)
	var dupErr *DuplicateError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, seeded.ID, dupErr.ExistingID)
}
