package api

import (
	"net/http"
	"strings"

	goaway "github.com/TwiN/go-away"
	"github.com/gorilla/mux"

	v1 "github.com/jdholdren/learninghub/api/teams/v1"
	huberrs "github.com/jdholdren/learninghub/internal/errors"
	"github.com/jdholdren/learninghub/internal/hub"
	"github.com/jdholdren/learninghub/internal/serverutil"
)

func (s Server) getTeams(w http.ResponseWriter, r *http.Request) error {
	teams, err := s.repo.Teams(r.Context())
	if err != nil {
		return err
	}

	data := make([]v1.Team, 0, len(teams))
	for _, t := range teams {
		data = append(data, toWireTeam(t))
	}
	return serverutil.WriteJSON(w, http.StatusOK, v1.ListTeamsResponse{Data: data})
}

func (s Server) postTeam(w http.ResponseWriter, r *http.Request) error {
	req, err := decode[v1.CreateTeamRequest](r)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(req.Name)
	if goaway.IsProfane(name) {
		return huberrs.E("profanity detected in team name", http.StatusUnprocessableEntity)
	}

	var desc *string
	if req.Description != nil && strings.TrimSpace(*req.Description) != "" {
		trimmed := strings.TrimSpace(*req.Description)
		desc = &trimmed
	}

	team, err := s.repo.InsertTeam(r.Context(), hub.Team{Name: name, Description: desc})
	if err != nil {
		return repoErr(err, "team with this name")
	}

	return serverutil.WriteJSON(w, http.StatusCreated, v1.TeamResponse{
		Message: "Team created successfully",
		Data:    toWireTeam(team),
	})
}

func (s Server) getTeam(w http.ResponseWriter, r *http.Request) error {
	team, err := s.repo.Team(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return repoErr(err, "team")
	}

	return serverutil.WriteJSON(w, http.StatusOK, v1.TeamResponse{Data: toWireTeam(team)})
}

// Deletes the team, leaving its resources in place without a team.
func (s Server) deleteTeam(w http.ResponseWriter, r *http.Request) error {
	if err := s.repo.DeleteTeam(r.Context(), mux.Vars(r)["id"]); err != nil {
		return repoErr(err, "team")
	}

	return serverutil.WriteJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
	}{Message: "Team deleted successfully"})
}

func toWireTeam(t hub.Team) v1.Team {
	return v1.Team{
		ID:            t.ID,
		Name:          t.Name,
		Description:   t.Description,
		CreatedAt:     t.CreatedAt,
		ResourceCount: t.ResourceCount,
	}
}
