package warehouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// TableRef is a fully qualified <database>.<schema>.<table> name.
type TableRef struct {
	Database string
	Schema   string
	Table    string
}

// ParseTableRef parses and validates a three-part table name.
func ParseTableRef(s string) (TableRef, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return TableRef{}, fmt.Errorf("%w: %q must have three dot-separated parts", ErrInvalidTableRef, s)
	}
	for _, part := range parts {
		if !identifierRe.MatchString(part) {
			return TableRef{}, fmt.Errorf("%w: %q is not a plain identifier", ErrInvalidTableRef, part)
		}
	}
	return TableRef{Database: parts[0], Schema: parts[1], Table: parts[2]}, nil
}

// ValidTableRef reports whether s parses as a TableRef.
func ValidTableRef(s string) bool {
	_, err := ParseTableRef(s)
	return err == nil
}

func (t TableRef) String() string {
	return t.Database + "." + t.Schema + "." + t.Table
}

// SelectAll returns the query reading every row of the table. The parts are
// validated identifiers, so plain interpolation is safe.
func (t TableRef) SelectAll() string {
	return "SELECT * FROM " + t.String()
}

// Columns is a column-oriented result set: column name to values in row order.
type Columns map[string][]any

// ReadTable reads every row of ref through h and returns it column-oriented.
func ReadTable(ctx context.Context, h Handle, ref TableRef) (Columns, error) {
	const op = "warehouse.ReadTable"

	rows, err := h.QueryContext(ctx, ref.SelectAll())
	if err != nil {
		return nil, queryError(op, fmt.Errorf("query %s: %w", ref, err))
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, queryError(op, fmt.Errorf("columns of %s: %w", ref, err))
	}

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, queryError(op, fmt.Errorf("column types of %s: %w", ref, err))
	}
	convs := make([]converter, len(names))
	for i := range names {
		if i < len(types) {
			convs[i] = converterFor(types[i])
		} else {
			convs[i] = normalize
		}
	}

	out := make(Columns, len(names))
	for _, name := range names {
		out[name] = []any{}
	}

	values := make([]any, len(names))
	dest := make([]any, len(names))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, queryError(op, fmt.Errorf("scan %s: %w", ref, err))
		}
		for i, name := range names {
			out[name] = append(out[name], convs[i](values[i]))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(op, fmt.Errorf("read %s: %w", ref, err))
	}
	return out, nil
}

type converter func(v any) any

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// converterFor picks the value conversion for a column. The Snowflake driver
// hands NUMBER and FLOAT values back as strings unless higher precision is
// requested, so those are turned back into numbers here.
func converterFor(ct *sql.ColumnType) converter {
	switch ct.DatabaseTypeName() {
	case "FIXED":
		_, scale, ok := ct.DecimalSize()
		if !ok || scale == 0 {
			return fixedInt
		}
		return fixedDecimal
	case "REAL":
		return realFloat
	default:
		return normalize
	}
}

func fixedInt(v any) any {
	s, ok := normalize(v).(string)
	if !ok {
		return normalize(v)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	// NUMBER(38,0) can exceed int64.
	return fixedDecimal(s)
}

func fixedDecimal(v any) any {
	s, ok := normalize(v).(string)
	if !ok {
		return normalize(v)
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return json.Number(s)
	}
	return s
}

// realFloat keeps NaN and infinities as strings; JSON has no encoding for them.
func realFloat(v any) any {
	s, ok := normalize(v).(string)
	if !ok {
		return normalize(v)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}

// Len returns the number of rows, taken from the longest column.
func (c Columns) Len() int {
	n := 0
	for _, vs := range c {
		if len(vs) > n {
			n = len(vs)
		}
	}
	return n
}
