// Package querybuilder renders the small set of Postgres statements the
// repositories need, numbering placeholders ($1, $2, ...) in argument order.
package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// statement accumulates SQL text and its bound arguments.
type statement struct {
	sql  strings.Builder
	args []any
}

func (s *statement) write(parts ...string) {
	for _, p := range parts {
		s.sql.WriteString(p)
	}
}

// bind appends value and writes its placeholder.
func (s *statement) bind(value any) {
	s.args = append(s.args, value)
	s.sql.WriteString("$")
	s.sql.WriteString(strconv.Itoa(len(s.args)))
}

// expr writes raw SQL, binding each '?' to the next value in order. Extra '?'
// without a value are kept literally.
func (s *statement) expr(raw string, values []any) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == '?' && len(values) > 0 {
			s.bind(values[0])
			values = values[1:]
			continue
		}
		s.sql.WriteByte(raw[i])
	}
}

func (s *statement) where(conditions []Condition) {
	for i, c := range conditions {
		if i == 0 {
			s.write(" WHERE ")
		} else {
			s.write(" AND ")
		}
		c.render(s)
	}
}

func (s *statement) suffix(raw string) {
	if raw != "" {
		s.write(" ")
		s.expr(raw, nil)
	}
}

func (s *statement) result() (string, []any, error) {
	return s.sql.String(), s.args, nil
}

type Condition interface {
	render(s *statement)
}

type comparison struct {
	column string
	op     string
	value  any
}

func (c comparison) render(s *statement) {
	s.write(c.column, " ", c.op, " ")
	s.bind(c.value)
}

func Eq(column string, value any) Condition  { return comparison{column, "=", value} }
func Lt(column string, value any) Condition  { return comparison{column, "<", value} }
func Lte(column string, value any) Condition { return comparison{column, "<=", value} }
func Gt(column string, value any) Condition  { return comparison{column, ">", value} }
func Gte(column string, value any) Condition { return comparison{column, ">=", value} }

type membership struct {
	column string
	values []any
}

// In matches nothing when values is empty.
func In(column string, values []any) Condition {
	return membership{column: column, values: values}
}

func (c membership) render(s *statement) {
	if len(c.values) == 0 {
		s.write("1=0")
		return
	}
	s.write(c.column, " IN (")
	for i, v := range c.values {
		if i > 0 {
			s.write(", ")
		}
		s.bind(v)
	}
	s.write(")")
}

type nullCheck string

func IsNull(column string) Condition {
	return nullCheck(column)
}

func (c nullCheck) render(s *statement) {
	s.write(string(c), " IS NULL")
}

type rawExpr struct {
	sql  string
	args []any
}

// Expr is a free-form condition whose '?' markers bind args in order.
func Expr(sql string, args ...any) Condition {
	return rawExpr{sql: sql, args: args}
}

func (c rawExpr) render(s *statement) {
	s.expr(c.sql, c.args)
}

// LockMode is a row-level lock clause appended after LIMIT.
type LockMode string

const (
	LockNone      LockMode = ""
	LockForUpdate LockMode = "FOR UPDATE"
	LockForShare  LockMode = "FOR SHARE"
	LockSkipped   LockMode = "FOR UPDATE SKIP LOCKED"
)

type SelectBuilder struct {
	columns []string
	table   string
	where   []Condition
	orderBy []string
	limit   int
	lock    LockMode
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, parts...)
	return b
}

func (b *SelectBuilder) Limit(limit int) *SelectBuilder {
	b.limit = limit
	return b
}

func (b *SelectBuilder) Lock(mode LockMode) *SelectBuilder {
	b.lock = mode
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	switch {
	case len(b.columns) == 0:
		return "", nil, fmt.Errorf("select columns are required")
	case strings.TrimSpace(b.table) == "":
		return "", nil, fmt.Errorf("select table is required")
	}

	var s statement
	s.write("SELECT ", strings.Join(b.columns, ", "), " FROM ", b.table)
	s.where(b.where)
	if len(b.orderBy) > 0 {
		s.write(" ORDER BY ", strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		s.write(" LIMIT ", strconv.Itoa(b.limit))
	}
	if b.lock != LockNone {
		s.write(" ", string(b.lock))
	}
	return s.result()
}

type InsertBuilder struct {
	table   string
	columns []string
	rows    [][]any
	suffix  string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = append(b.columns, columns...)
	return b
}

// Values adds one row; call it again for multi-row inserts.
func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	b.rows = append(b.rows, append([]any(nil), values...))
	return b
}

func (b *InsertBuilder) Suffix(sql string) *InsertBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	switch {
	case strings.TrimSpace(b.table) == "":
		return "", nil, fmt.Errorf("insert table is required")
	case len(b.columns) == 0:
		return "", nil, fmt.Errorf("insert columns are required")
	case len(b.rows) == 0:
		return "", nil, fmt.Errorf("insert values are required")
	}

	var s statement
	s.write("INSERT INTO ", b.table, " (", strings.Join(b.columns, ", "), ") VALUES ")
	for i, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("insert row %d has %d values, expected %d", i, len(row), len(b.columns))
		}
		if i > 0 {
			s.write(", ")
		}
		s.write("(")
		for j, v := range row {
			if j > 0 {
				s.write(", ")
			}
			s.bind(v)
		}
		s.write(")")
	}
	s.suffix(b.suffix)
	return s.result()
}

type assignment struct {
	column string
	value  any
	raw    *rawExpr
}

type UpdateBuilder struct {
	table  string
	sets   []assignment
	where  []Condition
	suffix string
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.sets = append(b.sets, assignment{column: column, value: value})
	return b
}

// SetExpr assigns a SQL expression, e.g. SetExpr("n", "n + ?", 1).
func (b *UpdateBuilder) SetExpr(column, expr string, args ...any) *UpdateBuilder {
	b.sets = append(b.sets, assignment{column: column, raw: &rawExpr{sql: expr, args: args}})
	return b
}

func (b *UpdateBuilder) Where(conditions ...Condition) *UpdateBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *UpdateBuilder) Suffix(sql string) *UpdateBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *UpdateBuilder) ToSQL() (string, []any, error) {
	switch {
	case strings.TrimSpace(b.table) == "":
		return "", nil, fmt.Errorf("update table is required")
	case len(b.sets) == 0:
		return "", nil, fmt.Errorf("update sets are required")
	}

	var s statement
	s.write("UPDATE ", b.table, " SET ")
	for i, a := range b.sets {
		if i > 0 {
			s.write(", ")
		}
		s.write(a.column, " = ")
		if a.raw != nil {
			a.raw.render(&s)
			continue
		}
		s.bind(a.value)
	}
	s.where(b.where)
	s.suffix(b.suffix)
	return s.result()
}
