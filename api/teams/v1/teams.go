// Package v1 is the wire format of the team endpoints.
package v1

import (
	"strings"
	"time"

	"github.com/jdholdren/learninghub/api"
)

type Team struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
	ResourceCount int       `json:"resource_count"`
}

type ListTeamsResponse struct {
	Data []Team `json:"data"`
}

type TeamResponse struct {
	Message string `json:"message,omitempty"`
	Data    Team   `json:"data"`
}

type CreateTeamRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (r CreateTeamRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return api.Invalid([]api.ErrorDetail{{Field: "name", Error: "Team name is required"}})
	}
	return nil
}
