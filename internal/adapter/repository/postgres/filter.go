package postgres

import (
	"strconv"
	"strings"
	"time"

	"github.com/iho/casinowallet/internal/domain"
)

// whereBuilder accumulates filter clauses with positional arguments.
type whereBuilder struct {
	clauses []string
	args    []any
}

// arg registers v and returns its placeholder.
func (w *whereBuilder) arg(v any) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

func (w *whereBuilder) where(clause string) {
	w.clauses = append(w.clauses, clause)
}

// involving matches rows where ref is on either side.
func (w *whereBuilder) involving(ref *domain.PrincipalRef) {
	typ, id := w.arg(string(ref.Type)), w.arg(ref.ID)
	w.where("((from_type = " + typ + " AND from_id = " + id + ") OR (to_type = " + typ + " AND to_id = " + id + "))")
}

func (w *whereBuilder) between(column string, start, end *time.Time) {
	if start != nil {
		w.where(column + " >= " + w.arg(*start))
	}
	if end != nil {
		w.where(column + " <= " + w.arg(*end))
	}
}

func (w *whereBuilder) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// page appends ordering and pagination. A non-positive limit falls back to def.
func (w *whereBuilder) page(orderBy string, limit, offset, def int) string {
	if limit <= 0 {
		limit = def
	}
	q := " ORDER BY " + orderBy + " LIMIT " + w.arg(limit)
	if offset > 0 {
		q += " OFFSET " + w.arg(offset)
	}
	return q
}
