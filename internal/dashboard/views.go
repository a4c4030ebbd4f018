package dashboard

import (
	"sort"
	"strconv"

	"lineout-dashboard/internal/display"
	"lineout-dashboard/internal/lineout"
	"lineout-dashboard/templates"
)

// KPIs builds the summary cards over the chart-scoped rows.
func KPIs(t lineout.Table, m *display.Mapper) ([]templates.KPI, error) {
	jumper, err := lineout.MostFrequent(t, lineout.ColJumper)
	if err != nil {
		return nil, err
	}
	tower, err := lineout.MostFrequent(t, lineout.ColTower)
	if err != nil {
		return nil, err
	}
	total, err := lineout.NonNull(t, lineout.ColPlayerCount)
	if err != nil {
		return nil, err
	}
	mean, err := lineout.Average(t, lineout.ColPlayerCount)
	if err != nil {
		return nil, err
	}
	return []templates.KPI{
		{Title: "Saltador más usado", Value: modeLabel(jumper, m)},
		{Title: "Posición más usada", Value: modeLabel(tower, m)},
		{Title: "Total Lineouts", Value: strconv.Itoa(total)},
		{Title: "Promedio jugadores por line", Value: mean.Format(1)},
	}, nil
}

func modeLabel(mode lineout.Mode, m *display.Mapper) string {
	if !mode.Valid {
		return lineout.NoData
	}
	return m.Value(mode.Value)
}

// Bars is the value-counts chart of one column.
func Bars(t lineout.Table, c lineout.Column, title string, m *display.Mapper) (templates.ChartData, error) {
	counts, err := lineout.ValueCounts(t, c)
	if err != nil {
		return templates.ChartData{}, err
	}
	out := templates.ChartData{Title: title, XLabel: m.Column(c), YLabel: m.Label("count")}
	for _, e := range counts.Entries {
		out.Bars = append(out.Bars, templates.Bar{Label: m.Value(e.Value), Count: e.N})
	}
	return out, nil
}

// Histogram counts rows per player count, ordered by the numeric value.
// Values that are not numbers sort after the numbers.
func Histogram(t lineout.Table, title string, m *display.Mapper) (templates.ChartData, error) {
	counts, err := lineout.ValueCounts(t, lineout.ColPlayerCount)
	if err != nil {
		return templates.ChartData{}, err
	}
	entries := append([]lineout.Count(nil), counts.Entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		a, aErr := strconv.ParseFloat(entries[i].Value, 64)
		b, bErr := strconv.ParseFloat(entries[j].Value, 64)
		switch {
		case aErr == nil && bErr == nil:
			if a != b {
				return a < b
			}
			return entries[i].Value < entries[j].Value
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		}
		return entries[i].Value < entries[j].Value
	})
	out := templates.ChartData{Title: title, XLabel: m.Column(lineout.ColPlayerCount), YLabel: m.Label("count")}
	for _, e := range entries {
		out.Bars = append(out.Bars, templates.Bar{Label: e.Value, Count: e.N})
	}
	return out, nil
}

// Flow cross-tabulates two columns from their co-occurrence counts. Rows
// and columns are listed in ascending raw-value order.
func Flow(t lineout.Table, a, b lineout.Column, title string, m *display.Mapper) (templates.FlowData, error) {
	pairs, err := lineout.CoOccurrence(t, a, b)
	if err != nil {
		return templates.FlowData{}, err
	}
	rowIdx := map[string]int{}
	colIdx := map[string]int{}
	var rows, cols []string
	for _, p := range pairs.Entries {
		if _, ok := rowIdx[p.A]; !ok {
			rowIdx[p.A] = 0
			rows = append(rows, p.A)
		}
		if _, ok := colIdx[p.B]; !ok {
			colIdx[p.B] = 0
			cols = append(cols, p.B)
		}
	}
	sort.Strings(rows)
	sort.Strings(cols)
	for i, r := range rows {
		rowIdx[r] = i
	}
	for j, c := range cols {
		colIdx[c] = j
	}

	out := templates.FlowData{
		Title:    title,
		RowLabel: m.Column(a),
		ColLabel: m.Column(b),
		Cells:    make([][]int, len(rows)),
	}
	for i := range out.Cells {
		out.Cells[i] = make([]int, len(cols))
	}
	for _, p := range pairs.Entries {
		out.Cells[rowIdx[p.A]][colIdx[p.B]] = p.N
	}
	for _, r := range rows {
		out.Rows = append(out.Rows, m.Value(r))
	}
	for _, c := range cols {
		out.Cols = append(out.Cols, m.Value(c))
	}
	return out, nil
}

// detailColumns is the detail-table column order.
var detailColumns = []lineout.Column{
	lineout.ColTower,
	lineout.ColJumper,
	lineout.ColZone,
	lineout.ColPlayerCount,
	lineout.ColDescription,
	lineout.ColType,
}

// Detail lists the table-scoped rows. Columns missing from the store are
// left out.
func Detail(t lineout.Table, m *display.Mapper) templates.DetailTable {
	var cols []lineout.Column
	for _, c := range detailColumns {
		if t.Has(c) {
			cols = append(cols, c)
		}
	}
	out := templates.DetailTable{}
	for _, c := range cols {
		out.Headers = append(out.Headers, m.Column(c))
	}
	for _, r := range t.Rows() {
		row := make([]string, len(cols))
		for i, c := range cols {
			v, _ := r.Get(c)
			if c == lineout.ColPlayerCount || c == lineout.ColDescription {
				// Numbers and free text are shown as recorded.
				if v.Valid {
					row[i] = v.Str
				}
				continue
			}
			row[i] = m.Cell(v)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// allLabel is the display text of the lineout.All option.
const allLabel = "Todos"

// SelectFor builds a select whose first option is lineout.All.
func SelectFor(name, label string, values []string, selected string, m *display.Mapper) templates.Select {
	s := templates.Select{Name: name, Label: label}
	s.Options = append(s.Options, templates.Option{Value: lineout.All, Label: allLabel, Selected: selected == lineout.All})
	for _, v := range values {
		s.Options = append(s.Options, templates.Option{Value: v, Label: m.Value(v), Selected: v == selected})
	}
	return s
}
