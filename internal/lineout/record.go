// Package lineout holds the immutable lineout record store together with the
// filter pipeline and the aggregations the dashboard derives from it.
package lineout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Column is a canonical column name. Source headers are mapped onto these by
// the loaders; display labels never reach this package.
type Column string

const (
	ColMatch       Column = "match"
	ColType        Column = "lineout_type"
	ColTower       Column = "tower"
	ColJumper      Column = "jumper"
	ColPlayerCount Column = "player_count"
	ColZone        Column = "zone"
	ColDescription Column = "description"
)

// AllColumns lists the canonical columns in detail-table order.
var AllColumns = []Column{ColTower, ColJumper, ColZone, ColPlayerCount, ColDescription, ColType, ColMatch}

// RequiredColumns must be present in every source.
var RequiredColumns = []Column{ColMatch, ColTower, ColJumper, ColPlayerCount, ColZone}

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrMissingColumn  = errors.New("missing required column")
	ErrNotNumeric     = errors.New("column is not numeric")
)

// ColumnError reports a request for a column the store does not carry.
type ColumnError struct {
	Column Column
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column not found: %q", string(e.Column))
}

func (e *ColumnError) Is(target error) bool { return target == ErrColumnNotFound }

// MissingColumnsError is returned when a source lacks required columns.
type MissingColumnsError struct {
	Columns []Column
}

func (e *MissingColumnsError) Error() string {
	names := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		names[i] = string(c)
	}
	return "missing required columns: " + strings.Join(names, ", ")
}

func (e *MissingColumnsError) Is(target error) bool { return target == ErrMissingColumn }

// Value is a nullable cell.
type Value struct {
	Str   string
	Valid bool
}

// Null is the missing cell.
var Null = Value{}

// V builds a cell from raw text; blank text is null.
func V(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Null
	}
	return Value{Str: s, Valid: true}
}

// Record is one recorded lineout attempt.
type Record struct {
	Match       Value
	Type        Value
	Tower       Value
	Jumper      Value
	PlayerCount Value
	Zone        Value
	Description Value
}

// Get returns the cell for a canonical column.
func (r Record) Get(c Column) (Value, bool) {
	switch c {
	case ColMatch:
		return r.Match, true
	case ColType:
		return r.Type, true
	case ColTower:
		return r.Tower, true
	case ColJumper:
		return r.Jumper, true
	case ColPlayerCount:
		return r.PlayerCount, true
	case ColZone:
		return r.Zone, true
	case ColDescription:
		return r.Description, true
	}
	return Null, false
}

// Set returns a copy of r with column c replaced.
func (r Record) Set(c Column, v Value) Record {
	switch c {
	case ColMatch:
		r.Match = v
	case ColType:
		r.Type = v
	case ColTower:
		r.Tower = v
	case ColJumper:
		r.Jumper = v
	case ColPlayerCount:
		r.PlayerCount = v
	case ColZone:
		r.Zone = v
	case ColDescription:
		r.Description = v
	}
	return r
}

// Table is an immutable set of records sharing a schema. The root table is the
// record store; every filter produces a new Table over the same schema.
type Table struct {
	schema map[Column]bool
	rows   []Record
}

// NewStore builds the record store. It fails when a required column is not
// part of the schema.
func NewStore(columns []Column, rows []Record) (Table, error) {
	schema := make(map[Column]bool, len(columns))
	for _, c := range columns {
		schema[c] = true
	}
	var missing []Column
	for _, c := range RequiredColumns {
		if !schema[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return Table{}, &MissingColumnsError{Columns: missing}
	}
	// Columns outside the schema are forced to null so projections agree
	// with Has.
	out := make([]Record, len(rows))
	for i, r := range rows {
		for _, c := range AllColumns {
			if !schema[c] {
				r = r.Set(c, Null)
			}
		}
		out[i] = r
	}
	return Table{schema: schema, rows: out}, nil
}

// Has reports whether the column is part of the schema.
func (t Table) Has(c Column) bool { return t.schema[c] }

// Columns returns the schema in canonical order.
func (t Table) Columns() []Column {
	var cols []Column
	for _, c := range AllColumns {
		if t.schema[c] {
			cols = append(cols, c)
		}
	}
	return cols
}

// Len is the number of rows.
func (t Table) Len() int { return len(t.rows) }

// Rows returns a copy of the rows.
func (t Table) Rows() []Record {
	out := make([]Record, len(t.rows))
	copy(out, t.rows)
	return out
}

func (t Table) check(c Column) error {
	if !t.schema[c] {
		return &ColumnError{Column: c}
	}
	return nil
}

// Project returns the cells of column c in row order.
func (t Table) Project(c Column) ([]Value, error) {
	if err := t.check(c); err != nil {
		return nil, err
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i], _ = r.Get(c)
	}
	return out, nil
}

// Distinct returns the sorted distinct non-null values of column c.
func (t Table) Distinct(c Column) ([]string, error) {
	vals, err := t.Project(c)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, v := range vals {
		if v.Valid && !seen[v.Str] {
			seen[v.Str] = true
			out = append(out, v.Str)
		}
	}
	sort.Strings(out)
	return out, nil
}
