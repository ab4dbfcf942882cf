// Package v1 is the wire format of the resource endpoints.
package v1

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jdholdren/learninghub/api"
	"github.com/jdholdren/learninghub/internal/hub"
)

type Resource struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	ContextNote *string   `json:"context_note"`
	Category    string    `json:"category"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	TeamID      *string   `json:"team_id"`
	Upvotes     int       `json:"upvotes"`
	Downvotes   int       `json:"downvotes"`
	CreatedAt   time.Time `json:"created_at"`
}

type ListResourcesResponse struct {
	Data       []Resource `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

type CreateResourceRequest struct {
	URL             string  `json:"url"`
	Title           string  `json:"title"`
	Summary         string  `json:"summary"`
	Category        string  `json:"category"`
	Type            string  `json:"type"`
	PersonalContext *string `json:"personal_context"`
	TeamID          *string `json:"team_id"`
}

// Validate checks that the body (minus logic checks) is valid.
//
// Returns an api.Error if the request is invalid.
func (r CreateResourceRequest) Validate() error {
	errs := required(map[string]string{
		"url":      r.URL,
		"category": r.Category,
		"type":     r.Type,
	})
	if r.URL != "" && !hub.HasHTTPScheme(r.URL) {
		errs = append(errs, api.ErrorDetail{Field: "url", Error: "url must start with http:// or https://"})
	}

	return api.Invalid(errs)
}

// ResourceResponse wraps a single resource.
type ResourceResponse struct {
	Message string   `json:"message,omitempty"`
	Data    Resource `json:"data"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (r UpdateStatusRequest) Validate() error {
	if r.Status != "active" && r.Status != "archived" {
		return api.Invalid([]api.ErrorDetail{{Field: "status", Error: "status must be active or archived"}})
	}
	return nil
}

type VoteRequest struct {
	Direction string `json:"direction"`
}

func (r VoteRequest) Validate() error {
	if r.Direction != "up" && r.Direction != "down" {
		return api.Invalid([]api.ErrorDetail{{Field: "direction", Error: "direction must be up or down"}})
	}
	return nil
}

// URLList accepts either a JSON array of urls or a single string holding
// urls separated by newlines or commas.
type URLList struct {
	List []string
	Text string
}

func (l *URLList) UnmarshalJSON(byts []byte) error {
	var text string
	if err := json.Unmarshal(byts, &text); err == nil {
		l.Text = text
		return nil
	}

	var list []string
	if err := json.Unmarshal(byts, &list); err != nil {
		return fmt.Errorf("urls must be a string or a list of strings")
	}
	l.List = list
	return nil
}

func (l URLList) MarshalJSON() ([]byte, error) {
	if l.List != nil {
		return json.Marshal(l.List)
	}
	return json.Marshal(l.Text)
}

// Empty reports if nothing at all was sent.
func (l URLList) Empty() bool {
	return len(l.List) == 0 && strings.TrimSpace(l.Text) == ""
}

type BatchRequest struct {
	URLs     URLList `json:"urls"`
	Category string  `json:"category"`
	Type     string  `json:"type"`
	TeamID   *string `json:"team_id"`
}

func (r BatchRequest) Validate() error {
	errs := required(map[string]string{
		"category": r.Category,
		"type":     r.Type,
	})
	if r.URLs.Empty() {
		errs = append(errs, api.ErrorDetail{Field: "urls", Error: "urls is required"})
	}

	return api.Invalid(errs)
}

type BatchResponse struct {
	Message string       `json:"message"`
	Summary BatchSummary `json:"summary"`
	Results BatchResults `json:"results"`
}

type BatchSummary struct {
	Total   int `json:"total"`
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type BatchResults struct {
	Successful []Resource    `json:"successful"`
	Skipped    []SkippedItem `json:"skipped"`
	Failed     []FailedItem  `json:"failed"`
}

type SkippedItem struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

type FailedItem struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
}

type MetadataResponse struct {
	Data Metadata `json:"data"`
}

// Details for each field that is empty, in a stable order.
func required(fields map[string]string) []api.ErrorDetail {
	var errs []api.ErrorDetail
	for _, name := range []string{"url", "category", "type"} {
		value, ok := fields[name]
		if ok && strings.TrimSpace(value) == "" {
			errs = append(errs, api.ErrorDetail{Field: name, Error: name + " is required"})
		}
	}

	return errs
}

