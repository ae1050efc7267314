package persistence

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/reflectx"

	"github.com/talgya/site-awareness/internal/engine"
)

var mapper = reflectx.NewMapper("db")

// Column lists follow struct field order so tables, inserts and CSV
// headers stay in step with the row types.
var (
	runColumns   = columnsOf(RunRecord{})
	stepColumns  = columnsOf(engine.StepMetrics{})
	agentColumns = columnsOf(engine.AgentMetrics{})
)

func columnsOf(v any) []string {
	tm := mapper.TypeMap(reflect.TypeOf(v))
	cols := make([]string, 0, len(tm.Index))
	for _, fi := range tm.Index {
		if fi.Parent != tm.Tree {
			continue
		}
		cols = append(cols, fi.Name)
	}
	return cols
}

func insertQuery(table string, columns []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(") VALUES (:")
	b.WriteString(strings.Join(columns, ", :"))
	b.WriteString(")")
	return b.String()
}

// record formats a row's columns as CSV cells.
func record(row any, columns []string) []string {
	v := reflect.ValueOf(row)
	fields := mapper.FieldMap(v)
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = cell(fields[c])
	}
	return out
}

func cell(v reflect.Value) string {
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	}
	if t, ok := v.Interface().(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return ""
}
