package api

import (
	"net/http"
	"strconv"

	v1 "github.com/jdholdren/learninghub/api/resources/v1"
	huberrs "github.com/jdholdren/learninghub/internal/errors"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// A window into a listing, from ?limit= and ?offset=.
type page struct {
	limit  int
	offset int
}

func parsePage(r *http.Request) (page, error) {
	query := r.URL.Query()
	p := page{limit: defaultPageSize}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return page{}, huberrs.Invalid("limit", "limit must be a positive number")
		}
		p.limit = min(limit, maxPageSize)
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return page{}, huberrs.Invalid("offset", "offset must be zero or more")
		}
		p.offset = offset
	}

	return p, nil
}

// One more row than shown is asked for to tell if another page follows.
func (p page) fetchLimit() uint64 {
	return uint64(p.limit) + 1
}

// Cuts the extra row off and describes the page.
func pageOf[T any](p page, rows []T) ([]T, v1.Pagination) {
	meta := v1.Pagination{Limit: p.limit, Offset: p.offset}
	if len(rows) > p.limit {
		rows = rows[:p.limit]
		meta.HasMore = true
	}

	return rows, meta
}
