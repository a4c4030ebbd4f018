// Package dashboard resolves a selection against the store and turns the
// resulting subsets into page data and JSON summaries.
package dashboard

import (
	"net/url"

	"lineout-dashboard/internal/display"
	"lineout-dashboard/internal/lineout"
	"lineout-dashboard/internal/selection"
	"lineout-dashboard/templates"
)

// Config is the presentation configuration shared by every request.
type Config struct {
	Title       string
	LogoB64     string
	Zones       []string
	DefaultZone string
	Mapper      *display.Mapper
}

// View is a normalized selection and the subsets it selects.
type View struct {
	State   selection.State
	Options selection.Options

	// Match holds the selected match, Charts adds the type filter, Zone
	// adds the zone and Table applies the detail-table filters to Match.
	Match  lineout.Table
	Charts lineout.Table
	Zone   lineout.Table
	Table  lineout.Table
}

// Resolve reads the selection from q and computes every subset. Choices
// that are not offered fall back to their defaults.
func Resolve(store lineout.Table, cfg Config, q url.Values) (*View, error) {
	matches, err := store.Distinct(lineout.ColMatch)
	if err != nil {
		return nil, err
	}
	state := selection.FromQuery(selection.Defaults(matches, cfg.DefaultZone), q)
	state = state.Normalize(selection.Options{Matches: matches})

	match, err := store.Filter(lineout.Eq(lineout.ColMatch, state.Match))
	if err != nil {
		return nil, err
	}

	opts, err := options(match, matches, cfg.Zones)
	if err != nil {
		return nil, err
	}
	state = state.Normalize(opts)

	v := &View{State: state, Options: opts, Match: match}

	charts := lineout.Pipeline{}
	table := lineout.Pipeline{}
	if store.Has(lineout.ColType) {
		charts = append(charts, lineout.Eq(lineout.ColType, state.Type))
		table = append(table, lineout.Eq(lineout.ColType, state.Table.Type))
	}
	table = append(table,
		lineout.Eq(lineout.ColTower, state.Table.Tower),
		lineout.Eq(lineout.ColJumper, state.Table.Jumper),
		lineout.Eq(lineout.ColZone, state.Table.Zone),
	)

	if v.Charts, err = charts.Apply(match); err != nil {
		return nil, err
	}
	if v.Zone, err = v.Charts.Filter(lineout.Eq(lineout.ColZone, state.Zone)); err != nil {
		return nil, err
	}
	if v.Table, err = table.Apply(match); err != nil {
		return nil, err
	}
	return v, nil
}

// options lists the choices offered for the selected match.
func options(match lineout.Table, matches, zones []string) (selection.Options, error) {
	o := selection.Options{Matches: matches, Zones: zones}
	var err error
	if match.Has(lineout.ColType) {
		if o.Types, err = match.Distinct(lineout.ColType); err != nil {
			return o, err
		}
		o.TableTypes = o.Types
	}
	if o.TableTowers, err = match.Distinct(lineout.ColTower); err != nil {
		return o, err
	}
	if o.TableJumpers, err = match.Distinct(lineout.ColJumper); err != nil {
		return o, err
	}
	if o.TableZones, err = match.Distinct(lineout.ColZone); err != nil {
		return o, err
	}
	return o, nil
}

// Page builds the dashboard page data for the view.
func (v *View) Page(cfg Config) (templates.DashboardPageData, error) {
	m := cfg.Mapper
	d := templates.DashboardPageData{
		Title:   cfg.Title,
		LogoB64: cfg.LogoB64,
		Zone:    v.State.Zone,
		MatchSelect: templates.Select{
			Name:  selection.ParamMatch,
			Label: "Selecciona un partido",
		},
	}
	for _, match := range v.Options.Matches {
		d.MatchSelect.Options = append(d.MatchSelect.Options, templates.Option{
			Value:    match,
			Label:    match,
			Selected: match == v.State.Match,
		})
	}
	if v.Match.Has(lineout.ColType) {
		s := SelectFor(selection.ParamType, "Tipo de Line", v.Options.Types, v.State.Type, m)
		d.TypeSelect = &s
	}

	var err error
	if d.KPIs, err = KPIs(v.Charts, m); err != nil {
		return d, err
	}
	if d.TowerChart, err = Bars(v.Charts, lineout.ColTower, "Lines por Torre", m); err != nil {
		return d, err
	}
	if d.JumperChart, err = Bars(v.Charts, lineout.ColJumper, "Lines por Saltador", m); err != nil {
		return d, err
	}
	if d.ZoneChart, err = Bars(v.Zone, lineout.ColTower, "Elección de torre por zona", m); err != nil {
		return d, err
	}
	if d.CountChart, err = Histogram(v.Charts, "Lines por cantidad de jugadores", m); err != nil {
		return d, err
	}
	if d.Flow, err = Flow(v.Charts, lineout.ColTower, lineout.ColJumper, "Torre → Saltador", m); err != nil {
		return d, err
	}
	for _, z := range cfg.Zones {
		d.Zones = append(d.Zones, templates.ZoneLink{
			Zone:   z,
			Href:   v.State.WithZone(z).Href(),
			Active: z == v.State.Zone,
		})
	}

	d.Detail = Detail(v.Table, m)
	if v.Match.Has(lineout.ColType) {
		d.Detail.Filters = append(d.Detail.Filters,
			SelectFor(selection.ParamTableType, m.Column(lineout.ColType), v.Options.TableTypes, v.State.Table.Type, m))
	}
	d.Detail.Filters = append(d.Detail.Filters,
		SelectFor(selection.ParamTableTower, m.Column(lineout.ColTower), v.Options.TableTowers, v.State.Table.Tower, m),
		SelectFor(selection.ParamTableJumper, m.Column(lineout.ColJumper), v.Options.TableJumpers, v.State.Table.Jumper, m),
		SelectFor(selection.ParamTableZone, m.Column(lineout.ColZone), v.Options.TableZones, v.State.Table.Zone, m),
	)
	return d, nil
}

// Summary is the JSON form of a view. Keys are canonical column names.
type Summary struct {
	Selection   selection.State `json:"selection"`
	Rows        int             `json:"rows"`
	TopJumper   lineout.Mode    `json:"top_jumper"`
	TopTower    lineout.Mode    `json:"top_tower"`
	Lineouts    int             `json:"lineouts"`
	MeanPlayers lineout.Mean    `json:"mean_player_count"`
	Towers      lineout.Counts  `json:"tower"`
	Jumpers     lineout.Counts  `json:"jumper"`
	PlayerCount lineout.Counts  `json:"player_count"`
	ZoneTowers  lineout.Counts  `json:"zone_tower"`
	Flow        lineout.Pairs   `json:"tower_jumper"`
	DetailRows  int             `json:"detail_rows"`
}

// Summary computes the same derivations as Page without any display mapping.
func (v *View) Summary() (Summary, error) {
	s := Summary{
		Selection:  v.State,
		Rows:       v.Charts.Len(),
		DetailRows: v.Table.Len(),
	}
	var err error
	if s.TopJumper, err = lineout.MostFrequent(v.Charts, lineout.ColJumper); err != nil {
		return s, err
	}
	if s.TopTower, err = lineout.MostFrequent(v.Charts, lineout.ColTower); err != nil {
		return s, err
	}
	if s.Lineouts, err = lineout.NonNull(v.Charts, lineout.ColPlayerCount); err != nil {
		return s, err
	}
	if s.MeanPlayers, err = lineout.Average(v.Charts, lineout.ColPlayerCount); err != nil {
		return s, err
	}
	if s.Towers, err = lineout.ValueCounts(v.Charts, lineout.ColTower); err != nil {
		return s, err
	}
	if s.Jumpers, err = lineout.ValueCounts(v.Charts, lineout.ColJumper); err != nil {
		return s, err
	}
	if s.PlayerCount, err = lineout.ValueCounts(v.Charts, lineout.ColPlayerCount); err != nil {
		return s, err
	}
	if s.ZoneTowers, err = lineout.ValueCounts(v.Zone, lineout.ColTower); err != nil {
		return s, err
	}
	if s.Flow, err = lineout.CoOccurrence(v.Charts, lineout.ColTower, lineout.ColJumper); err != nil {
		return s, err
	}
	return s, nil
}
