package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goaway "github.com/TwiN/go-away"
	"github.com/gorilla/mux"
	"github.com/sym01/htmlsanitizer"

	"github.com/jdholdren/learninghub/api"
	v1 "github.com/jdholdren/learninghub/api/resources/v1"
	huberrs "github.com/jdholdren/learninghub/internal/errors"
	"github.com/jdholdren/learninghub/internal/hub"
	"github.com/jdholdren/learninghub/internal/ingest"
	"github.com/jdholdren/learninghub/internal/serverutil"
)

const maxContextNoteLength = 5024

// Listing filters use this to mean "don't filter".
const filterAll = "All"

func (s Server) getResources(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()
	pg, err := parsePage(r)
	if err != nil {
		return err
	}

	args := hub.ResourcesArgs{
		TeamID: query.Get("team_id"),
		Search: query.Get("search"),
		Limit:  pg.fetchLimit(),
		Offset: uint64(pg.offset),
	}
	if c := query.Get("category"); c != "" && c != filterAll {
		args.Category = hub.Category(c)
	}
	if t := query.Get("type"); t != "" && t != filterAll {
		args.Type = hub.ResourceType(t)
	}
	if st := query.Get("status"); st != "" {
		args.Status = hub.Status(st)
		if !args.Status.Valid() {
			return huberrs.Invalid("status", "status must be active or archived")
		}
	}

	rscs, err := s.repo.Resources(r.Context(), args)
	if err != nil {
		return err
	}

	rscs, meta := pageOf(pg, rscs)
	data := make([]v1.Resource, 0, len(rscs))
	for _, rsc := range rscs {
		data = append(data, toWireResource(rsc))
	}
	return serverutil.WriteJSON(w, http.StatusOK, v1.ListResourcesResponse{
		Data:       data,
		Pagination: meta,
	})
}

func (s Server) postResource(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	req, err := decode[v1.CreateResourceRequest](r)
	if err != nil {
		return err
	}

	teamID, err := s.checkClassification(r, req.Category, req.Type, req.TeamID)
	if err != nil {
		return err
	}
	note, err := cleanContextNote(req.PersonalContext)
	if err != nil {
		return err
	}

	rsc, err := s.pipeline.Submit(ctx, ingest.Submission{
		URL:         req.URL,
		Title:       strings.TrimSpace(req.Title),
		Summary:     strings.TrimSpace(req.Summary),
		ContextNote: note,
		Category:    hub.Category(req.Category),
		Type:        hub.ResourceType(req.Type),
		TeamID:      teamID,
	})
	var dupErr *ingest.DuplicateError
	if errors.As(err, &dupErr) {
		// Carries the existing id so the client can link to it
		return serverutil.WriteJSON(w, http.StatusConflict, api.Error{
			Message: "Resource with this URL already exists",
			Status:  http.StatusConflict,
			ID:      dupErr.ExistingID,
		})
	}
	if err != nil {
		return fmt.Errorf("error submitting resource: %w", err)
	}

	return serverutil.WriteJSON(w, http.StatusCreated, v1.ResourceResponse{
		Message: "Resource created successfully",
		Data:    toWireResource(rsc),
	})
}

// Previews the metadata of a page before it gets submitted.
func (s Server) getMetadata(w http.ResponseWriter, r *http.Request) error {
	u := strings.TrimSpace(r.URL.Query().Get("url"))
	if u == "" {
		return huberrs.Invalid("url", "URL is required")
	}
	if !hub.HasHTTPScheme(u) {
		return huberrs.Invalid("url", "url must start with http:// or https://")
	}

	md := s.fetcher.Fetch(r.Context(), u)
	if md.Empty() {
		return huberrs.E(http.StatusNotFound, "Could not fetch metadata")
	}

	return serverutil.WriteJSON(w, http.StatusOK, v1.MetadataResponse{
		Data: v1.Metadata{
			Title:       md.Title,
			Description: md.Description,
			ImageURL:    md.ImageURL,
			SiteName:    md.SiteName,
		},
	})
}

func (s Server) getResource(w http.ResponseWriter, r *http.Request) error {
	rsc, err := s.repo.Resource(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return repoErr(err, "resource")
	}

	return serverutil.WriteJSON(w, http.StatusOK, v1.ResourceResponse{Data: toWireResource(rsc)})
}

func (s Server) deleteResource(w http.ResponseWriter, r *http.Request) error {
	if err := s.repo.DeleteResource(r.Context(), mux.Vars(r)["id"]); err != nil {
		return repoErr(err, "resource")
	}

	return serverutil.WriteJSON(w, http.StatusOK, v1.MessageResponse{Message: "Resource deleted successfully"})
}

// Archives or restores a resource.
func (s Server) patchResourceStatus(w http.ResponseWriter, r *http.Request) error {
	req, err := decode[v1.UpdateStatusRequest](r)
	if err != nil {
		return err
	}

	rsc, err := s.repo.UpdateResourceStatus(r.Context(), mux.Vars(r)["id"], hub.Status(req.Status))
	if err != nil {
		return repoErr(err, "resource")
	}

	return serverutil.WriteJSON(w, http.StatusOK, v1.ResourceResponse{Data: toWireResource(rsc)})
}

func (s Server) postVote(w http.ResponseWriter, r *http.Request) error {
	req, err := decode[v1.VoteRequest](r)
	if err != nil {
		return err
	}

	rsc, err := s.repo.Vote(r.Context(), mux.Vars(r)["id"], hub.VoteDirection(req.Direction))
	if err != nil {
		return repoErr(err, "resource")
	}

	return serverutil.WriteJSON(w, http.StatusOK, v1.ResourceResponse{Data: toWireResource(rsc)})
}

// Checks the category and type against the known ones and that the team, if
// any, exists. Returns the team id to store, nil when none was given.
func (s Server) checkClassification(r *http.Request, category, typ string, teamID *string) (*string, error) {
	var details []huberrs.Detail
	if !hub.Category(category).Valid() {
		details = append(details, huberrs.Detail{Field: "category", Error: fmt.Sprintf("unknown category %q", category)})
	}
	if !hub.ResourceType(typ).Valid() {
		details = append(details, huberrs.Detail{Field: "type", Error: fmt.Sprintf("unknown type %q", typ)})
	}
	if len(details) > 0 {
		return nil, huberrs.E(http.StatusBadRequest, "request was invalid", details)
	}

	if teamID == nil || strings.TrimSpace(*teamID) == "" {
		return nil, nil
	}
	id := strings.TrimSpace(*teamID)
	_, err := s.repo.Team(r.Context(), id)
	if errors.Is(err, hub.ErrNotFound) {
		return nil, huberrs.Invalid("team_id", "team does not exist")
	}
	if err != nil {
		return nil, err
	}

	return &id, nil
}

// Sanitizes the submitter's note, keeping safe markup. Blank notes are nil.
func cleanContextNote(note *string) (*string, error) {
	if note == nil || strings.TrimSpace(*note) == "" {
		return nil, nil
	}

	if len(*note) > maxContextNoteLength {
		return nil, huberrs.E("context note too long", http.StatusUnprocessableEntity)
	}
	if goaway.IsProfane(*note) {
		return nil, huberrs.E("profanity detected in context note", http.StatusUnprocessableEntity)
	}

	sanitizer := htmlsanitizer.NewHTMLSanitizer()
	cleaned, err := sanitizer.SanitizeString(strings.TrimSpace(*note))
	if err != nil {
		return nil, fmt.Errorf("error sanitizing context note: %s", err)
	}

	return &cleaned, nil
}

func toWireResource(rsc hub.Resource) v1.Resource {
	return v1.Resource{
		ID:          rsc.ID,
		URL:         rsc.URL,
		Title:       rsc.Title,
		Summary:     rsc.Summary,
		ContextNote: rsc.ContextNote,
		Category:    string(rsc.Category),
		Type:        string(rsc.Type),
		Status:      string(rsc.Status),
		TeamID:      rsc.TeamID,
		Upvotes:     rsc.Upvotes,
		Downvotes:   rsc.Downvotes,
		CreatedAt:   rsc.CreatedAt,
	}
}
