package querybuilder

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jmoiron/sqlx/reflectx"
)

var mapper = reflectx.NewMapperFunc("db", strings.ToLower)

// InsertModel builds a single-row INSERT from the db-tagged top-level fields
// of model. Untagged fields are skipped.
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	return insertModel(table, model, nil, suffix)
}

// InsertModelWhere inserts the row only when every condition holds, as
// INSERT ... SELECT ... WHERE. No row is inserted (and RETURNING yields
// nothing) otherwise.
func InsertModelWhere(table string, model any, where []Condition, suffix string) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, fmt.Errorf("insert conditions are required")
	}
	return insertModel(table, model, where, suffix)
}

func insertModel(table string, model any, where []Condition, suffix string) (string, []any, error) {
	if strings.TrimSpace(table) == "" {
		return "", nil, fmt.Errorf("insert table is required")
	}

	cols, vals, err := modelColumns(model)
	if err != nil {
		return "", nil, err
	}

	var w sqlWriter
	w.str("INSERT INTO ", table, " (", strings.Join(cols, ", "), ")")
	if len(where) == 0 {
		w.str(" VALUES (")
	} else {
		w.str(" SELECT ")
	}
	for i, v := range vals {
		if i > 0 {
			w.str(", ")
		}
		w.bind(v)
	}
	if len(where) == 0 {
		w.str(")")
	} else {
		w.where(where)
	}
	if suffix = strings.TrimSpace(suffix); suffix != "" {
		w.str(" ", suffix)
	}
	return w.result()
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
		return nil, nil, fmt.Errorf("model must be struct, got %s", value.Kind())
	}

	var (
		cols []string
		vals []any
	)
	for _, fi := range mapper.TypeMap(value.Type()).Index {
		if len(fi.Index) != 1 || fi.Embedded || fi.Field.Tag.Get("db") == "" {
			continue
		}
		cols = append(cols, fi.Name)
		vals = append(vals, value.Field(fi.Index[0]).Interface())
	}
	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("model has no db columns")
	}
	return cols, vals, nil
}
