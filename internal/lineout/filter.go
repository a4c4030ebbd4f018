package lineout

// All is the filter value that matches every row.
const All = "all"

// Constraint narrows a table to rows whose column equals Value.
type Constraint struct {
	Column Column
	Value  string
}

// Eq builds a constraint.
func Eq(c Column, v string) Constraint { return Constraint{Column: c, Value: v} }

// Active reports whether the constraint filters anything.
func (c Constraint) Active() bool { return c.Value != All }

func (c Constraint) match(r Record) bool {
	v, _ := r.Get(c.Column)
	return v.Valid && v.Str == c.Value
}

// Filter returns the rows satisfying every active constraint. Comparison is
// exact and case-sensitive on the stored value; null cells never match. All
// columns are checked before any row is visited, so an unknown column fails
// even when the table is empty.
func (t Table) Filter(constraints ...Constraint) (Table, error) {
	var active []Constraint
	for _, c := range constraints {
		if err := t.check(c.Column); err != nil {
			return Table{}, err
		}
		if c.Active() {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return t, nil
	}
	var rows []Record
	for _, r := range t.rows {
		keep := true
		for _, c := range active {
			if !c.match(r) {
				keep = false
				break
			}
		}
		if keep {
			rows = append(rows, r)
		}
	}
	return Table{schema: t.schema, rows: rows}, nil
}

// Pipeline is an ordered list of constraints applied as one conjunctive filter.
type Pipeline []Constraint

// Apply runs the pipeline over t.
func (p Pipeline) Apply(t Table) (Table, error) {
	return t.Filter(p...)
}
