package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jdholdren/learninghub/internal/hub"
)

const userNamespace = "-usr"

// EnsureUser looks up the user with the email, creating them on first login.
// Existing users get their last login bumped.
func (r Repo) EnsureUser(ctx context.Context, email string) (hub.User, bool, error) {
	const q = `INSERT INTO users (id, email, username, last_login_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (email) DO UPDATE SET last_login_at = excluded.last_login_at;`

	email = strings.ToLower(strings.TrimSpace(email))
	username, _, _ := strings.Cut(email, "@")
	now := time.Now().UTC()

	// The id only sticks if this is a new user
	id := uuid.NewString() + userNamespace
	if _, err := r.db.ExecContext(ctx, q, id, email, username, now); err != nil {
		return hub.User{}, false, fmt.Errorf("error upserting user: %s", err)
	}

	usr, err := r.userByEmail(ctx, email)
	if err != nil {
		return hub.User{}, false, err
	}

	return usr, usr.ID == id, nil
}

func (r Repo) User(ctx context.Context, id string) (hub.User, error) {
	const q = `SELECT * FROM users WHERE id = ?;`

	var usr hub.User
	err := r.db.GetContext(ctx, &usr, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return hub.User{}, hub.ErrNotFound
	}
	if err != nil {
		return hub.User{}, fmt.Errorf("error fetching user: %s", err)
	}

	return usr, nil
}

func (r Repo) userByEmail(ctx context.Context, email string) (hub.User, error) {
	const q = `SELECT * FROM users WHERE email = ?;`

	var usr hub.User
	if err := r.db.GetContext(ctx, &usr, q, email); err != nil {
		return hub.User{}, fmt.Errorf("error fetching user by email: %s", err)
	}

	return usr, nil
}
