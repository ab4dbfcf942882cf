package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jdholdren/learninghub/api"
	v1 "github.com/jdholdren/learninghub/api/resources/v1"
)

const defaultServer = "http://localhost:5000"

type importOpts struct {
	file     string
	category string
	typ      string
	team     string
	server   string
}

func newImportCmd() *cobra.Command {
	var opts importOpts

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Submit a list of urls as one batch",
		Long: `Reads urls separated by newlines or commas from a file, or stdin when no
file is given, and submits them to the server as a single batch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if opts.file != "" && opts.file != "-" {
				f, err := os.Open(opts.file)
				if err != nil {
					return fmt.Errorf("error opening %s: %w", opts.file, err)
				}
				defer f.Close()
				in = f
			}

			text, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("error reading urls: %w", err)
			}

			resp, err := postBatch(cmd.Context(), opts, string(text))
			if err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), resp)
			return nil
		},
	}

	server := os.Getenv("HUB_SERVER")
	if server == "" {
		server = defaultServer
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "file holding the urls, stdin when empty")
	flags.StringVar(&opts.category, "category", "", "category of every url")
	flags.StringVar(&opts.typ, "type", "", "resource type of every url")
	flags.StringVar(&opts.team, "team", "", "team id to file the urls under")
	flags.StringVar(&opts.server, "server", server, "learninghub server address (HUB_SERVER)")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func postBatch(ctx context.Context, opts importOpts, text string) (v1.BatchResponse, error) {
	req := v1.BatchRequest{
		URLs:     v1.URLList{Text: text},
		Category: opts.category,
		Type:     opts.typ,
	}
	if opts.team != "" {
		req.TeamID = &opts.team
	}

	body, err := json.Marshal(req)
	if err != nil {
		return v1.BatchResponse{}, fmt.Errorf("error encoding request: %w", err)
	}

	endpoint := strings.TrimSuffix(opts.server, "/") + "/api/resources/batch"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return v1.BatchResponse{}, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	// Pages are fetched server side, so batches can take a while
	client := &http.Client{Timeout: 2 * time.Minute}
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return v1.BatchResponse{}, fmt.Errorf("error calling %s: %w", endpoint, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode/100 != 2 {
		var apiErr api.Error
		if err := json.NewDecoder(httpResp.Body).Decode(&apiErr); err != nil || apiErr.Message == "" {
			return v1.BatchResponse{}, fmt.Errorf("server responded %s", httpResp.Status)
		}
		return v1.BatchResponse{}, apiErr
	}

	var resp v1.BatchResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return v1.BatchResponse{}, fmt.Errorf("error decoding response: %w", err)
	}

	return resp, nil
}

func printReport(w io.Writer, resp v1.BatchResponse) {
	sum := resp.Summary
	fmt.Fprintf(w, "%d urls: %d added, %d skipped, %d failed\n", sum.Total, sum.Added, sum.Skipped, sum.Failed)

	for _, rsc := range resp.Results.Successful {
		fmt.Fprintf(w, "added   %s (%s)\n", rsc.URL, rsc.ID)
	}
	for _, s := range resp.Results.Skipped {
		fmt.Fprintf(w, "skipped %s: %s\n", s.URL, s.Reason)
	}
	for _, f := range resp.Results.Failed {
		fmt.Fprintf(w, "failed  %s: %s\n", f.URL, f.Error)
	}
}
