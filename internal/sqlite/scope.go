package sqlite

import (
	"context"
	"strings"
	"time"
)

// filter accumulates WHERE conditions and their arguments. Tables that soft
// delete are added through live, so every read skips deleted rows the same way.
type filter struct {
	conds []string
	args  []any
}

// live starts a filter restricted to non-deleted rows of the given aliases.
func live(aliases ...string) *filter {
	f := &filter{}
	for _, a := range aliases {
		f.conds = append(f.conds, liveCond(a))
	}
	return f
}

func liveCond(alias string) string {
	if alias == "" {
		return "is_deleted = 0"
	}
	return alias + ".is_deleted = 0"
}

func (f *filter) add(cond string, args ...any) *filter {
	f.conds = append(f.conds, cond)
	f.args = append(f.args, args...)
	return f
}

// in adds "col IN (?, ?, ...)". An empty list matches nothing.
func (f *filter) in(col string, values []string) *filter {
	if len(values) == 0 {
		return f.add("1 = 0")
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return f.add(col+" IN ("+placeholders(len(values))+")", args...)
}

func (f *filter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// page appends LIMIT and OFFSET clauses.
func page(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
		if offset > 0 {
			query += " OFFSET ?"
			args = append(args, offset)
		}
	}
	return query, args
}

// softDelete marks a live row deleted, or returns ErrNotFound.
func softDelete(ctx context.Context, q querier, table, id string, at time.Time) error {
	res, err := q.ExecContext(ctx,
		"UPDATE "+table+" SET is_deleted = 1, deleted_at = ? WHERE id = ? AND is_deleted = 0",
		at.UTC(), id)
	return expectOne(res, err, "delete from "+table)
}
