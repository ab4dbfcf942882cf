package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/learninghub/api"
	v1 "github.com/jdholdren/learninghub/api/resources/v1"
)

func run(t *testing.T, in io.Reader, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	if in != nil {
		cmd.SetIn(in)
	}
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestNormalize(t *testing.T) {
	out, err := run(t, nil, "normalize", "HTTPS://Example.com/Docs/", "http://example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/Docs\nhttp://example.com/\n", out)
}

func TestNormalize_NoArgs(t *testing.T) {
	_, err := run(t, nil, "normalize")
	require.Error(t, err)
}

func TestImport(t *testing.T) {
	var got v1.BatchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/resources/batch", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(v1.BatchResponse{
			Message: "Batch processing complete",
			Summary: v1.BatchSummary{Total: 3, Added: 1, Skipped: 1, Failed: 1},
			Results: v1.BatchResults{
				Successful: []v1.Resource{{ID: "1-rsc", URL: "https://a.example/"}},
				Skipped:    []v1.SkippedItem{{URL: "https://b.example/", Reason: "Already exists"}},
				Failed:     []v1.FailedItem{{URL: "https://c.example/", Error: "boom"}},
			},
		})
	}))
	defer srv.Close()

	file := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(file, []byte("https://a.example\nhttps://b.example,https://c.example\n"), 0o600))

	out, err := run(t, nil, "import",
		"--file", file,
		"--category", "Research & Papers",
		"--type", "Article",
		"--team", "t-team",
		"--server", srv.URL,
	)
	require.NoError(t, err)

	assert.Equal(t, "https://a.example\nhttps://b.example,https://c.example\n", got.URLs.Text)
	assert.Equal(t, "Research & Papers", got.Category)
	assert.Equal(t, "Article", got.Type)
	require.NotNil(t, got.TeamID)
	assert.Equal(t, "t-team", *got.TeamID)

	assert.Contains(t, out, "3 urls: 1 added, 1 skipped, 1 failed")
	assert.Contains(t, out, "added   https://a.example/ (1-rsc)")
	assert.Contains(t, out, "skipped https://b.example/: Already exists")
	assert.Contains(t, out, "failed  https://c.example/: boom")
}

func TestImport_Stdin(t *testing.T) {
	var got v1.BatchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(v1.BatchResponse{Summary: v1.BatchSummary{Total: 1, Added: 1}})
	}))
	defer srv.Close()

	out, err := run(t, strings.NewReader("https://a.example"), "import",
		"--category", "Research & Papers",
		"--type", "Article",
		"--server", srv.URL,
	)
	require.NoError(t, err)
	assert.Equal(t, "https://a.example", got.URLs.Text)
	assert.Nil(t, got.TeamID)
	assert.Contains(t, out, "1 urls: 1 added, 0 skipped, 0 failed")
}

func TestImport_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(api.Error{
			Message: "request was invalid",
			Status:  http.StatusBadRequest,
			Details: []api.ErrorDetail{{Field: "urls", Error: "No valid URLs provided"}},
		})
	}))
	defer srv.Close()

	_, err := run(t, strings.NewReader("not a url"), "import",
		"--category", "Research & Papers",
		"--type", "Article",
		"--server", srv.URL,
	)
	require.Error(t, err)

	var apiErr api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "urls", apiErr.Details[0].Field)
}

func TestImport_RequiresClassification(t *testing.T) {
	_, err := run(t, strings.NewReader("https://a.example"), "import", "--server", "http://127.0.0.1:1")
	require.Error(t, err)
}
