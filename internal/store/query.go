package store

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/pulse/internal/wellbeing"
)

// Query is a column-filtered SELECT against a single relation.
// Table and column names come from code, never from request input.
type Query struct {
	table   string
	columns []string
	where   []string
	args    []any
	order   []string
	limit   int
	offset  int
}

// From starts a query selecting cols from table.
func From(table string, cols ...string) *Query {
	return &Query{table: table, columns: cols}
}

func (q *Query) add(col, op string, v any) *Query {
	q.args = append(q.args, v)
	q.where = append(q.where, fmt.Sprintf("%s %s $%d", col, op, len(q.args)))
	return q
}

// Eq adds col = v.
func (q *Query) Eq(col string, v any) *Query { return q.add(col, "=", v) }

// Gte adds col >= v.
func (q *Query) Gte(col string, v any) *Query { return q.add(col, ">=", v) }

// Lt adds col < v.
func (q *Query) Lt(col string, v any) *Query { return q.add(col, "<", v) }

// In adds col = ANY(values). values should be a slice.
func (q *Query) In(col string, values any) *Query {
	q.args = append(q.args, values)
	q.where = append(q.where, fmt.Sprintf("%s = ANY($%d)", col, len(q.args)))
	return q
}

// Visible restricts the query to the visibility's company unless it is global.
func (q *Query) Visible(v wellbeing.Visibility) *Query {
	if v.Global {
		return q
	}
	return q.Eq("company_id", v.CompanyID)
}

// Within applies a half-open range on col. Zero bounds are left open.
func (q *Query) Within(col string, r wellbeing.Range) *Query {
	if !r.From.IsZero() {
		q.Gte(col, r.From)
	}
	if !r.To.IsZero() {
		q.Lt(col, r.To)
	}
	return q
}

// OrderBy appends an ordering term.
func (q *Query) OrderBy(col string, desc bool) *Query {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	q.order = append(q.order, col+" "+dir)
	return q
}

// Limit caps the number of rows. Zero means no limit.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Offset skips n rows.
func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

// SQL renders the SELECT and its positional arguments.
func (q *Query) SQL() (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(q.columns) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(q.columns, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(q.table)
	q.writeWhere(&sb)
	if len(q.order) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(q.order, ", "))
	}
	if q.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.limit)
	}
	if q.offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", q.offset)
	}
	return sb.String(), q.args
}

// CountSQL renders a count(*) over the same filters, ignoring order and paging.
func (q *Query) CountSQL() (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT count(*) FROM ")
	sb.WriteString(q.table)
	q.writeWhere(&sb)
	return sb.String(), q.args
}

// DeleteSQL renders a DELETE over the same filters.
func (q *Query) DeleteSQL() (string, []any) {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(q.table)
	q.writeWhere(&sb)
	return sb.String(), q.args
}

func (q *Query) writeWhere(sb *strings.Builder) {
	if len(q.where) == 0 {
		return
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(q.where, " AND "))
}
