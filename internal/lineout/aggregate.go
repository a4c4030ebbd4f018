package lineout

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Count is one value-counts entry.
type Count struct {
	Value string `json:"value"`
	N     int    `json:"count"`
}

// Counts is the value-counts mapping of a column, ordered by count
// descending and then by value ascending.
type Counts struct {
	Entries []Count `json:"entries"`
	Total   int     `json:"total"`
}

// Map returns the counts as a plain mapping.
func (c Counts) Map() map[string]int {
	m := make(map[string]int, len(c.Entries))
	for _, e := range c.Entries {
		m[e.Value] = e.N
	}
	return m
}

// ValueCounts counts each distinct non-null value of column c.
func ValueCounts(t Table, c Column) (Counts, error) {
	vals, err := t.Project(c)
	if err != nil {
		return Counts{}, err
	}
	idx := make(map[string]int)
	var out Counts
	for _, v := range vals {
		if !v.Valid {
			continue
		}
		i, ok := idx[v.Str]
		if !ok {
			i = len(out.Entries)
			idx[v.Str] = i
			out.Entries = append(out.Entries, Count{Value: v.Str})
		}
		out.Entries[i].N++
		out.Total++
	}
	sort.Slice(out.Entries, func(i, j int) bool {
		a, b := out.Entries[i], out.Entries[j]
		if a.N != b.N {
			return a.N > b.N
		}
		return a.Value < b.Value
	})
	return out, nil
}

// NoData is what a Mode without a value renders as.
const NoData = "—"

// Mode is the most frequent value of a column, or no value at all.
type Mode struct {
	Value string
	Valid bool
}

func (m Mode) String() string {
	if !m.Valid {
		return NoData
	}
	return m.Value
}

// MostFrequent returns the mode of column c. Ties go to the lexically
// smallest value.
func MostFrequent(t Table, c Column) (Mode, error) {
	counts, err := ValueCounts(t, c)
	if err != nil {
		return Mode{}, err
	}
	if len(counts.Entries) == 0 {
		return Mode{}, nil
	}
	return Mode{Value: counts.Entries[0].Value, Valid: true}, nil
}

// Mean is an arithmetic mean that is undefined over zero values.
type Mean struct {
	Value   float64
	N       int
	Defined bool
}

// Format renders the mean with prec decimals, or NoData.
func (m Mean) Format(prec int) string {
	if !m.Defined {
		return NoData
	}
	return strconv.FormatFloat(m.Value, 'f', prec, 64)
}

// Average returns the mean of the non-null values of column c. A non-null
// value that is not a finite number is an error.
func Average(t Table, c Column) (Mean, error) {
	vals, err := t.Project(c)
	if err != nil {
		return Mean{}, err
	}
	var sum float64
	var n int
	for _, v := range vals {
		if !v.Valid {
			continue
		}
		f, err := strconv.ParseFloat(v.Str, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Mean{}, fmt.Errorf("%w: %s has value %q", ErrNotNumeric, c, v.Str)
		}
		sum += f
		n++
	}
	if n == 0 {
		return Mean{}, nil
	}
	return Mean{Value: sum / float64(n), N: n, Defined: true}, nil
}

// NonNull counts the rows where column c is present.
func NonNull(t Table, c Column) (int, error) {
	vals, err := t.Project(c)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, v := range vals {
		if v.Valid {
			n++
		}
	}
	return n, nil
}

// Pair is one co-occurrence entry.
type Pair struct {
	A string `json:"a"`
	B string `json:"b"`
	N int    `json:"count"`
}

// Pairs is the co-occurrence mapping of two columns, ordered by count
// descending, then A, then B.
type Pairs struct {
	Entries []Pair `json:"entries"`
	Total   int    `json:"total"`
}

type pairKey struct{ a, b string }

// CoOccurrence counts how often each (a, b) combination appears in a row.
// Rows with a null in either column are skipped.
func CoOccurrence(t Table, a, b Column) (Pairs, error) {
	av, err := t.Project(a)
	if err != nil {
		return Pairs{}, err
	}
	bv, err := t.Project(b)
	if err != nil {
		return Pairs{}, err
	}
	idx := make(map[pairKey]int)
	var out Pairs
	for i := range av {
		if !av[i].Valid || !bv[i].Valid {
			continue
		}
		k := pairKey{av[i].Str, bv[i].Str}
		j, ok := idx[k]
		if !ok {
			j = len(out.Entries)
			idx[k] = j
			out.Entries = append(out.Entries, Pair{A: k.a, B: k.b})
		}
		out.Entries[j].N++
		out.Total++
	}
	sort.Slice(out.Entries, func(i, j int) bool {
		x, y := out.Entries[i], out.Entries[j]
		if x.N != y.N {
			return x.N > y.N
		}
		if x.A != y.A {
			return x.A < y.A
		}
		return x.B < y.B
	})
	return out, nil
}

// MarshalJSON encodes a missing mode as null.
func (m Mode) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// MarshalJSON encodes an undefined mean as null.
func (m Mean) MarshalJSON() ([]byte, error) {
	if !m.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}
