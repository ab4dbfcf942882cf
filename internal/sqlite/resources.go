package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jdholdren/learninghub/internal/hub"
)

const resourceNamespace = "-rsc"

// Rows per INSERT statement, well under sqlite's bound parameter limit.
const insertChunkSize = 500

// Times the backfill gets to find metadata for a resource before giving up.
const maxMetadataAttempts = 3

var resourceColumns = []string{
	"id",
	"url",
	"title",
	"summary",
	"context_note",
	"category",
	"type",
	"status",
	"team_id",
	"upvotes",
	"downvotes",
	"created_at",
}

func selectResources() sq.SelectBuilder {
	return sq.Select(resourceColumns...).From("resources")
}

func (r Repo) Resource(ctx context.Context, id string) (hub.Resource, error) {
	return r.getResource(ctx, r.db, sq.Eq{"id": id})
}

func (r Repo) ResourceByURL(ctx context.Context, url string) (hub.Resource, error) {
	return r.getResource(ctx, r.db, sq.Eq{"url": url})
}

func (r Repo) getResource(ctx context.Context, q sqlx.QueryerContext, where sq.Sqlizer) (hub.Resource, error) {
	query, args, err := selectResources().Where(where).ToSql()
	if err != nil {
		return hub.Resource{}, fmt.Errorf("error constructing sql: %s", err)
	}

	var rsc hub.Resource
	err = sqlx.GetContext(ctx, q, &rsc, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return hub.Resource{}, hub.ErrNotFound
	}
	if err != nil {
		return hub.Resource{}, fmt.Errorf("error fetching resource: %s", err)
	}

	return rsc, nil
}

// Resources lists resources matching the filters, newest first.
func (r Repo) Resources(ctx context.Context, args hub.ResourcesArgs) ([]hub.Resource, error) {
	status := args.Status
	if status == "" {
		status = hub.StatusActive
	}

	where := sq.And{sq.Eq{"status": status}}
	if args.TeamID != "" {
		where = append(where, sq.Eq{"team_id": args.TeamID})
	}
	if args.Category != "" {
		where = append(where, sq.Eq{"category": args.Category})
	}
	if args.Type != "" {
		where = append(where, sq.Eq{"type": args.Type})
	}
	if search := strings.TrimSpace(args.Search); search != "" {
		// LIKE is case-insensitive for ascii in sqlite
		pattern := "%" + search + "%"
		where = append(where, sq.Or{
			sq.Like{"title": pattern},
			sq.Like{"summary": pattern},
			sq.Like{"context_note": pattern},
		})
	}

	q := selectResources().Where(where).OrderBy("created_at DESC", "rowid DESC")
	if args.Limit > 0 {
		q = q.Limit(args.Limit).Offset(args.Offset)
	}

	query, qArgs, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	rscs := []hub.Resource{}
	if err := r.db.SelectContext(ctx, &rscs, query, qArgs...); err != nil {
		return nil, fmt.Errorf("error selecting resources: %s", err)
	}

	return rscs, nil
}

func (r Repo) InsertResource(ctx context.Context, rsc hub.Resource) (hub.Resource, error) {
	const q = `INSERT INTO resources (id, url, title, summary, context_note, category, type, status, team_id)
	VALUES (:id, :url, :title, :summary, :context_note, :category, :type, :status, :team_id);`

	rsc.ID = uuid.NewString() + resourceNamespace
	if rsc.Status == "" {
		rsc.Status = hub.StatusActive
	}
	_, err := r.db.NamedExecContext(ctx, q, rsc)
	if isUniqueViolation(err) {
		return hub.Resource{}, fmt.Errorf("resource url already exists: %w", hub.ErrConflict)
	}
	if err != nil {
		return hub.Resource{}, fmt.Errorf("error inserting resource: %s", err)
	}

	return r.Resource(ctx, rsc.ID)
}

// InsertResources writes every resource in one transaction. Urls that are
// already stored are left alone and missing from the result; the rest come
// back in input order.
func (r Repo) InsertResources(ctx context.Context, rscs []hub.Resource) ([]hub.Resource, error) {
	if len(rscs) == 0 {
		return []hub.Resource{}, nil
	}

	ids := make([]string, len(rscs))
	for i := range rscs {
		ids[i] = uuid.NewString() + resourceNamespace
	}

	created := make([]hub.Resource, 0, len(rscs))
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(rscs); start += insertChunkSize {
			end := min(start+insertChunkSize, len(rscs))

			ins := sq.Insert("resources").
				Columns("id", "url", "title", "summary", "context_note", "category", "type", "status", "team_id").
				Suffix("ON CONFLICT(url) DO NOTHING")
			for i := start; i < end; i++ {
				rsc := rscs[i]
				status := rsc.Status
				if status == "" {
					status = hub.StatusActive
				}
				ins = ins.Values(ids[i], rsc.URL, rsc.Title, rsc.Summary, rsc.ContextNote, rsc.Category, rsc.Type, status, rsc.TeamID)
			}

			query, args, err := ins.ToSql()
			if err != nil {
				return fmt.Errorf("error constructing sql: %s", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("error inserting resources: %s", err)
			}
		}

		// Read back whatever made it in
		byID := make(map[string]hub.Resource, len(rscs))
		for start := 0; start < len(ids); start += insertChunkSize {
			end := min(start+insertChunkSize, len(ids))

			query, args, err := selectResources().Where(sq.Eq{"id": ids[start:end]}).ToSql()
			if err != nil {
				return fmt.Errorf("error constructing sql: %s", err)
			}
			var rows []hub.Resource
			if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
				return fmt.Errorf("error selecting inserted resources: %s", err)
			}
			for _, row := range rows {
				byID[row.ID] = row
			}
		}
		for _, id := range ids {
			if row, ok := byID[id]; ok {
				created = append(created, row)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r Repo) UpdateResourceStatus(ctx context.Context, id string, status hub.Status) (hub.Resource, error) {
	const q = `UPDATE resources SET status = ? WHERE id = ?;`

	res, err := r.db.ExecContext(ctx, q, status, id)
	if err != nil {
		return hub.Resource{}, fmt.Errorf("error updating resource status: %s", err)
	}
	if err := expectRow(res); err != nil {
		return hub.Resource{}, err
	}

	return r.Resource(ctx, id)
}

// UpdateResourceMetadata sets the title and summary and counts it as an
// attempt at finding metadata, whether or not anything changed.
func (r Repo) UpdateResourceMetadata(ctx context.Context, id string, title, summary string) error {
	const q = `UPDATE resources
	SET title = ?, summary = ?, metadata_attempts = metadata_attempts + 1
	WHERE id = ?;`

	res, err := r.db.ExecContext(ctx, q, title, summary, id)
	if err != nil {
		return fmt.Errorf("error updating resource metadata: %s", err)
	}

	return expectRow(res)
}

// ResourcesNeedingMetadata returns the oldest active resources still carrying
// the placeholder title or an empty summary.
func (r Repo) ResourcesNeedingMetadata(ctx context.Context, limit uint64) ([]hub.Resource, error) {
	query, args, err := selectResources().
		Where(sq.Eq{"status": hub.StatusActive}).
		Where(sq.Or{sq.Eq{"title": hub.PlaceholderTitle}, sq.Eq{"summary": ""}}).
		Where(sq.Lt{"metadata_attempts": maxMetadataAttempts}).
		OrderBy("created_at", "rowid").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	rscs := []hub.Resource{}
	if err := r.db.SelectContext(ctx, &rscs, query, args...); err != nil {
		return nil, fmt.Errorf("error selecting resources needing metadata: %s", err)
	}

	return rscs, nil
}

func (r Repo) Vote(ctx context.Context, id string, dir hub.VoteDirection) (hub.Resource, error) {
	column := "upvotes"
	if dir == hub.VoteDown {
		column = "downvotes"
	}

	query, args, err := sq.Update("resources").
		Set(column, sq.Expr(column+" + 1")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return hub.Resource{}, fmt.Errorf("error constructing sql: %s", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return hub.Resource{}, fmt.Errorf("error recording vote: %s", err)
	}
	if err := expectRow(res); err != nil {
		return hub.Resource{}, err
	}

	return r.Resource(ctx, id)
}

func (r Repo) DeleteResource(ctx context.Context, id string) error {
	const q = `DELETE FROM resources WHERE id = ?;`

	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("error deleting resource: %s", err)
	}

	return expectRow(res)
}

// Turns an update or delete that touched nothing into hub.ErrNotFound.
func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %s", err)
	}
	if n == 0 {
		return hub.ErrNotFound
	}

	return nil
}
