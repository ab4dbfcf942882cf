package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/securecookie"

	v1 "github.com/jdholdren/learninghub/api/auth/v1"
	"github.com/jdholdren/learninghub/internal/hub"
	"github.com/jdholdren/learninghub/internal/serverutil"
)

const sessionCookieName = "learninghub_session"

// What the session cookie carries.
type sessionState struct {
	UserID string
}

// sessions reads and writes the signed session cookie.
type sessions struct {
	codec *securecookie.SecureCookie
	https bool
}

func newSessions(hashKey, blockKey []byte, https bool) sessions {
	return sessions{
		codec: securecookie.New(hashKey, blockKey),
		https: https,
	}
}

// Returns the session on the request, empty when there is none or it can't
// be read.
func (s sessions) get(r *http.Request) sessionState {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return sessionState{}
	}

	var state sessionState
	if err := s.codec.Decode(sessionCookieName, cookie.Value, &state); err != nil {
		slog.WarnContext(r.Context(), "dropping unreadable session cookie", "err", err)
		return sessionState{}
	}

	return state
}

func (s sessions) set(w http.ResponseWriter, state sessionState) error {
	encoded, err := s.codec.Encode(sessionCookieName, state)
	if err != nil {
		return fmt.Errorf("error encoding session: %w", err)
	}

	http.SetCookie(w, s.cookie(encoded, 0))
	return nil
}

func (s sessions) clear(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie("", -1))
}

func (s sessions) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   s.https,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Logs in by email alone, creating the user the first time they show up.
func (s Server) postLogin(w http.ResponseWriter, r *http.Request) error {
	req, err := decode[v1.LoginRequest](r)
	if err != nil {
		return err
	}

	usr, created, err := s.repo.EnsureUser(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		return err
	}

	if err := s.sessions.set(w, sessionState{UserID: usr.ID}); err != nil {
		return err
	}

	status, msg := http.StatusOK, "Login successful"
	if created {
		status, msg = http.StatusCreated, "User created and logged in"
	}
	return serverutil.WriteJSON(w, status, v1.LoginResponse{
		Message: msg,
		User:    toWireUser(usr),
	})
}

func (s Server) postLogout(w http.ResponseWriter, r *http.Request) error {
	s.sessions.clear(w)

	return serverutil.WriteJSON(w, http.StatusOK, struct{}{})
}

func (s Server) getViewer(w http.ResponseWriter, r *http.Request) error {
	sess := s.sessions.get(r)
	if sess.UserID == "" {
		return serverutil.WriteJSON(w, http.StatusOK, struct{}{})
	}
	usr, err := s.repo.User(r.Context(), sess.UserID)
	if errors.Is(err, hub.ErrNotFound) {
		return serverutil.WriteJSON(w, http.StatusOK, struct{}{})
	}
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, v1.Viewer{
		UserID:   usr.ID,
		Email:    usr.Email,
		Username: usr.Username,
	})
}

func toWireUser(usr hub.User) v1.User {
	return v1.User{
		ID:          usr.ID,
		Email:       usr.Email,
		Username:    usr.Username,
		CreatedAt:   usr.CreatedAt,
		LastLoginAt: usr.LastLoginAt,
	}
}
