// Package selection holds the per-session dashboard choices as an immutable
// value. Every user action produces a new State; nothing is stored globally.
package selection

import (
	"net/url"
	"strings"

	"lineout-dashboard/internal/lineout"
)

// TableFilters are the four cascading selects above the detail table.
type TableFilters struct {
	Type   string `json:"type"`
	Tower  string `json:"tower"`
	Jumper string `json:"jumper"`
	Zone   string `json:"zone"`
}

// State is one session's selection.
type State struct {
	Match string       `json:"match"`
	Type  string       `json:"type"`
	Zone  string       `json:"zone"`
	Table TableFilters `json:"table"`
}

// Defaults returns the initial selection: the first match, every optional
// filter on lineout.All and the given zone.
func Defaults(matches []string, zone string) State {
	s := State{
		Type:  lineout.All,
		Zone:  zone,
		Table: TableFilters{Type: lineout.All, Tower: lineout.All, Jumper: lineout.All, Zone: lineout.All},
	}
	if len(matches) > 0 {
		s.Match = matches[0]
	}
	return s
}

// WithMatch selects a match.
func (s State) WithMatch(m string) State {
	s.Match = m
	return s
}

// WithType sets the chart-scoped lineout type filter.
func (s State) WithType(t string) State {
	s.Type = orAll(t)
	return s
}

// WithZone selects the zone shown in the tower-by-zone chart.
func (s State) WithZone(z string) State {
	s.Zone = z
	return s
}

func (s State) WithTableType(v string) State {
	s.Table.Type = orAll(v)
	return s
}

func (s State) WithTower(v string) State {
	s.Table.Tower = orAll(v)
	return s
}

func (s State) WithJumper(v string) State {
	s.Table.Jumper = orAll(v)
	return s
}

func (s State) WithTableZone(v string) State {
	s.Table.Zone = orAll(v)
	return s
}

func orAll(v string) string {
	if v == "" {
		return lineout.All
	}
	return v
}

// Query parameter names.
const (
	ParamMatch       = "match"
	ParamType        = "type"
	ParamZone        = "zone"
	ParamTableType   = "t_type"
	ParamTableTower  = "t_tower"
	ParamTableJumper = "t_jumper"
	ParamTableZone   = "t_zone"
)

// FromQuery overlays query parameters on base. Absent parameters keep the
// base value.
func FromQuery(base State, q url.Values) State {
	s := base
	if v, ok := lookup(q, ParamMatch); ok {
		s = s.WithMatch(v)
	}
	if v, ok := lookup(q, ParamType); ok {
		s = s.WithType(v)
	}
	if v, ok := lookup(q, ParamZone); ok {
		s = s.WithZone(v)
	}
	if v, ok := lookup(q, ParamTableType); ok {
		s = s.WithTableType(v)
	}
	if v, ok := lookup(q, ParamTableTower); ok {
		s = s.WithTower(v)
	}
	if v, ok := lookup(q, ParamTableJumper); ok {
		s = s.WithJumper(v)
	}
	if v, ok := lookup(q, ParamTableZone); ok {
		s = s.WithTableZone(v)
	}
	return s
}

func lookup(q url.Values, key string) (string, bool) {
	if _, ok := q[key]; !ok {
		return "", false
	}
	return strings.TrimSpace(q.Get(key)), true
}

// Query encodes the state. url.Values.Encode sorts keys, so equal states give
// equal strings.
func (s State) Query() url.Values {
	q := url.Values{}
	q.Set(ParamMatch, s.Match)
	q.Set(ParamType, s.Type)
	q.Set(ParamZone, s.Zone)
	q.Set(ParamTableType, s.Table.Type)
	q.Set(ParamTableTower, s.Table.Tower)
	q.Set(ParamTableJumper, s.Table.Jumper)
	q.Set(ParamTableZone, s.Table.Zone)
	return q
}

// Key is the canonical string form of the state.
func (s State) Key() string { return s.Query().Encode() }

// Href is the dashboard link for the state.
func (s State) Href() string { return "/?" + s.Key() }

// Options are the choices currently valid for each select.
type Options struct {
	Matches      []string
	Types        []string
	Zones        []string
	TableTypes   []string
	TableTowers  []string
	TableJumpers []string
	TableZones   []string
}

// Normalize replaces choices that are not offered with their defaults: an
// unknown match becomes the first match, unknown filters become All. The zone
// is left alone; an unrecognized zone just selects no rows.
func (s State) Normalize(o Options) State {
	if !contains(o.Matches, s.Match) && len(o.Matches) > 0 {
		s.Match = o.Matches[0]
	}
	s.Type = keep(o.Types, s.Type)
	s.Table.Type = keep(o.TableTypes, s.Table.Type)
	s.Table.Tower = keep(o.TableTowers, s.Table.Tower)
	s.Table.Jumper = keep(o.TableJumpers, s.Table.Jumper)
	s.Table.Zone = keep(o.TableZones, s.Table.Zone)
	return s
}

func keep(opts []string, v string) string {
	if v == lineout.All || contains(opts, v) {
		return v
	}
	return lineout.All
}

func contains(opts []string, v string) bool {
	for _, o := range opts {
		if o == v {
			return true
		}
	}
	return false
}
