package worker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/jdholdren/learninghub/internal/hub"
	"github.com/jdholdren/learninghub/internal/metadata"
)

type fakeRepo struct {
	hub.ResourceRepo

	mu      sync.Mutex
	rscs    map[string]hub.Resource
	updates map[string]int
}

func newFakeRepo(rscs ...hub.Resource) *fakeRepo {
	r := &fakeRepo{
		rscs:    map[string]hub.Resource{},
		updates: map[string]int{},
	}
	for _, rsc := range rscs {
		r.rscs[rsc.ID] = rsc
	}
	return r
}

func (r *fakeRepo) Resource(_ context.Context, id string) (hub.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rsc, ok := r.rscs[id]
	if !ok {
		return hub.Resource{}, hub.ErrNotFound
	}
	return rsc, nil
}

func (r *fakeRepo) ResourcesNeedingMetadata(_ context.Context, limit uint64) ([]hub.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []hub.Resource
	for _, rsc := range r.rscs {
		if uint64(len(out)) == limit {
			break
		}
		if rsc.Title == hub.PlaceholderTitle || rsc.Summary == "" {
			out = append(out, rsc)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateResourceMetadata(_ context.Context, id, title, summary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rsc, ok := r.rscs[id]
	if !ok {
		return hub.ErrNotFound
	}
	rsc.Title, rsc.Summary = title, summary
	r.rscs[id] = rsc
	r.updates[id]++
	return nil
}

type fakeFetcher map[string]metadata.Metadata

func (f fakeFetcher) Fetch(_ context.Context, url string) metadata.Metadata {
	return f[url]
}

type fakeSummarizer struct {
	summary string
	err     error
	calls   int
}

func (s *fakeSummarizer) Summarize(_ context.Context, _, _ string) (string, error) {
	s.calls++
	return s.summary, s.err
}

func TestRefreshMetadata_FillsPlaceholder(t *testing.T) {
	repo := newFakeRepo(hub.Resource{ID: "1-rsc", URL: "https://example.com/a", Title: hub.PlaceholderTitle})
	a := activities{
		repo: repo,
		fetcher: fakeFetcher{
			"https://example.com/a": {Title: "A page", Description: "About things."},
		},
	}

	changed, err := a.RefreshMetadata(context.Background(), "1-rsc")
	require.NoError(t, err)
	assert.True(t, changed)

	rsc, _ := repo.Resource(context.Background(), "1-rsc")
	assert.Equal(t, "A page", rsc.Title)
	assert.Equal(t, "About things.", rsc.Summary)
}

func TestRefreshMetadata_KeepsExistingFields(t *testing.T) {
	repo := newFakeRepo(hub.Resource{ID: "1-rsc", URL: "https://example.com/a", Title: "Mine"})
	a := activities{
		repo: repo,
		fetcher: fakeFetcher{
			"https://example.com/a": {Title: "Theirs", Description: "Found it."},
		},
	}

	changed, err := a.RefreshMetadata(context.Background(), "1-rsc")
	require.NoError(t, err)
	assert.True(t, changed)

	rsc, _ := repo.Resource(context.Background(), "1-rsc")
	assert.Equal(t, "Mine", rsc.Title)
	assert.Equal(t, "Found it.", rsc.Summary)
}

func TestRefreshMetadata_NothingFound(t *testing.T) {
	repo := newFakeRepo(hub.Resource{ID: "1-rsc", URL: "https://example.com/a", Title: hub.PlaceholderTitle})
	a := activities{repo: repo, fetcher: fakeFetcher{}}

	changed, err := a.RefreshMetadata(context.Background(), "1-rsc")
	require.NoError(t, err)
	assert.False(t, changed)
	// The attempt is still recorded
	assert.Equal(t, 1, repo.updates["1-rsc"])
}

func TestRefreshMetadata_Summarizes(t *testing.T) {
	repo := newFakeRepo(hub.Resource{ID: "1-rsc", URL: "https://example.com/a", Title: "A page"})
	summarizer := &fakeSummarizer{summary: " Teaches you things. "}
	a := activities{
		repo: repo,
		fetcher: fakeFetcher{
			"https://example.com/a": {Text: "lots of words"},
		},
		summarizer: summarizer,
	}

	changed, err := a.RefreshMetadata(context.Background(), "1-rsc")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, summarizer.calls)

	rsc, _ := repo.Resource(context.Background(), "1-rsc")
	assert.Equal(t, "Teaches you things.", rsc.Summary)
}

func TestRefreshMetadata_SummarizerError(t *testing.T) {
	repo := newFakeRepo(hub.Resource{ID: "1-rsc", URL: "https://example.com/a", Title: hub.PlaceholderTitle})
	a := activities{
		repo: repo,
		fetcher: fakeFetcher{
			"https://example.com/a": {Title: "A page", Text: "lots of words"},
		},
		summarizer: &fakeSummarizer{err: errors.New("boom")},
	}

	_, err := a.RefreshMetadata(context.Background(), "1-rsc")
	require.Error(t, err)
	// The attempt still counts towards the retry cap
	assert.Equal(t, 1, repo.updates["1-rsc"])

	rsc, _ := repo.Resource(context.Background(), "1-rsc")
	assert.Equal(t, "A page", rsc.Title)
}

func TestRefreshMetadata_Deleted(t *testing.T) {
	a := activities{repo: newFakeRepo(), fetcher: fakeFetcher{}}

	changed, err := a.RefreshMetadata(context.Background(), "gone-rsc")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestBackfillMetadata(t *testing.T) {
	repo := newFakeRepo(
		hub.Resource{ID: "1-rsc", URL: "https://example.com/1", Title: hub.PlaceholderTitle},
		hub.Resource{ID: "2-rsc", URL: "https://example.com/2", Title: "Known", Summary: ""},
		hub.Resource{ID: "3-rsc", URL: "https://example.com/3", Title: hub.PlaceholderTitle},
		hub.Resource{ID: "4-rsc", URL: "https://example.com/4", Title: "Done", Summary: "Already summarized."},
	)
	a := activities{
		repo: repo,
		fetcher: fakeFetcher{
			"https://example.com/1": {Title: "One"},
			"https://example.com/2": {Description: "Two."},
		},
	}

	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows{}.BackfillMetadata)
	env.RegisterActivity(&a)

	env.ExecuteWorkflow(workflows{}.BackfillMetadata)
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var updated int
	require.NoError(t, env.GetWorkflowResult(&updated))
	assert.Equal(t, 2, updated)

	assert.Equal(t, 1, repo.updates["1-rsc"])
	assert.Equal(t, 1, repo.updates["2-rsc"])
	assert.Equal(t, 1, repo.updates["3-rsc"])
	assert.Zero(t, repo.updates["4-rsc"])
}

func newTestClaude(t *testing.T, h http.HandlerFunc) ClaudeSummarizer {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cli := anthropic.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
	return NewClaudeSummarizer(&cli)
}

func TestClaudeSummarizer(t *testing.T) {
	summarizer := newTestClaude(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-haiku-4-5",
			"content": [{"type": "text", "text": " A short summary. "}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	})

	summary, err := summarizer.Summarize(context.Background(), "A page", "some text")
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", summary)
}

func TestClaudeSummarizer_RateLimited(t *testing.T) {
	summarizer := newTestClaude(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`))
	})

	_, err := summarizer.Summarize(context.Background(), "A page", "some text")
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errTypeRateLimit, appErr.Type())
}
