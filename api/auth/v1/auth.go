// Package v1 is the wire format of the login endpoints.
package v1

import (
	"net/mail"
	"strings"
	"time"

	"github.com/jdholdren/learninghub/api"
)

type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

type LoginRequest struct {
	Email string `json:"email"`
}

func (r LoginRequest) Validate() error {
	email := strings.TrimSpace(r.Email)
	if email == "" {
		return api.Invalid([]api.ErrorDetail{{Field: "email", Error: "Email is required"}})
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return api.Invalid([]api.ErrorDetail{{Field: "email", Error: "Email is invalid"}})
	}

	return nil
}

type LoginResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

// Viewer is the structured data about the current user in the frontend.
type Viewer struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}
