package querybuilder

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// InsertModel builds an INSERT from the exported, db-tagged fields of model.
// suffix is appended verbatim (ON CONFLICT, RETURNING).
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	cols, vals, err := modelColumns(model)
	if err != nil {
		return "", nil, err
	}
	return InsertInto(table).
		Columns(cols...).
		Values(vals...).
		Suffix(suffix).
		ToSQL()
}

// UpsertModel builds an INSERT ... ON CONFLICT (conflict) DO UPDATE that
// overwrites every model column outside conflict and keep with its EXCLUDED
// value. returning is appended after the update clause when non-empty.
func UpsertModel(table string, model any, conflict []string, returning string, keep ...string) (string, []any, error) {
	if len(conflict) == 0 {
		return "", nil, fmt.Errorf("upsert into %s: conflict columns are required", table)
	}
	cols, vals, err := modelColumns(model)
	if err != nil {
		return "", nil, err
	}

	var suffix strings.Builder
	suffix.WriteString("ON CONFLICT (")
	suffix.WriteString(strings.Join(conflict, ", "))
	suffix.WriteString(") DO UPDATE SET ")
	updated := 0
	for _, col := range cols {
		if slices.Contains(conflict, col) || slices.Contains(keep, col) {
			continue
		}
		if updated > 0 {
			suffix.WriteString(", ")
		}
		suffix.WriteString(col + " = EXCLUDED." + col)
		updated++
	}
	if updated == 0 {
		return "", nil, fmt.Errorf("upsert into %s: no columns left to update", table)
	}
	if returning = strings.TrimSpace(returning); returning != "" {
		suffix.WriteString(" RETURNING " + returning)
	}

	return InsertInto(table).
		Columns(cols...).
		Values(vals...).
		Suffix(suffix.String()).
		ToSQL()
}

func modelColumns(model any) ([]string, []any, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, nil, fmt.Errorf("model cannot be nil")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("model must be a struct, got %s", value.Kind())
	}

	typ := value.Type()
	var (
		cols []string
		vals []any
	)
	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		col, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		col = strings.TrimSpace(col)
		if col == "" || col == "-" {
			continue
		}
		cols = append(cols, col)
		vals = append(vals, value.Field(i).Interface())
	}

	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("model %s has no db columns", typ.Name())
	}
	return cols, vals, nil
}
