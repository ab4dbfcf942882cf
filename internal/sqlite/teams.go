package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jdholdren/learninghub/internal/hub"
)

const teamNamespace = "-team"

const selectTeams = `
	SELECT
		t.id,
		t.name,
		t.description,
		t.created_at,
		COUNT(r.id) AS resource_count
	FROM
		teams t
		LEFT JOIN resources r ON r.team_id = t.id
`

func (r Repo) Team(ctx context.Context, id string) (hub.Team, error) {
	const q = selectTeams + `WHERE t.id = ? GROUP BY t.id;`

	var team hub.Team
	err := r.db.GetContext(ctx, &team, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return hub.Team{}, hub.ErrNotFound
	}
	if err != nil {
		return hub.Team{}, fmt.Errorf("error fetching team: %s", err)
	}

	return team, nil
}

// Teams returns every team ordered by name.
func (r Repo) Teams(ctx context.Context) ([]hub.Team, error) {
	const q = selectTeams + `GROUP BY t.id ORDER BY t.name;`

	teams := []hub.Team{}
	if err := r.db.SelectContext(ctx, &teams, q); err != nil {
		return nil, fmt.Errorf("error selecting teams: %s", err)
	}

	return teams, nil
}

func (r Repo) InsertTeam(ctx context.Context, team hub.Team) (hub.Team, error) {
	const q = `INSERT INTO teams (id, name, description) VALUES (:id, :name, :description);`

	team.ID = uuid.NewString() + teamNamespace
	_, err := r.db.NamedExecContext(ctx, q, team)
	if isUniqueViolation(err) {
		return hub.Team{}, fmt.Errorf("team name already exists: %w", hub.ErrConflict)
	}
	if err != nil {
		return hub.Team{}, fmt.Errorf("error inserting team: %s", err)
	}

	return r.Team(ctx, team.ID)
}

// DeleteTeam unlinks the team's resources and then deletes it. The resources
// themselves are kept.
func (r Repo) DeleteTeam(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE resources SET team_id = NULL WHERE team_id = ?;`, id); err != nil {
			return fmt.Errorf("error unlinking team resources: %s", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM teams WHERE id = ?;`, id)
		if err != nil {
			return fmt.Errorf("error deleting team: %s", err)
		}

		return expectRow(res)
	})
}
