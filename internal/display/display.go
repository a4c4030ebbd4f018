// Package display maps canonical columns and raw values to the labels shown
// on screen. Nothing produced here is ever fed back into a filter.
package display

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"lineout-dashboard/internal/lineout"
)

// DefaultLabels are the Spanish column headings used by the club.
var DefaultLabels = map[string]string{
	string(lineout.ColMatch):       "Partido",
	string(lineout.ColType):        "Tipo",
	string(lineout.ColTower):       "Torre",
	string(lineout.ColJumper):      "Saltador",
	string(lineout.ColPlayerCount): "Cant Lines",
	string(lineout.ColZone):        "Zona",
	string(lineout.ColDescription): "Descripción",
	"count":                        "Cantidad",
}

// Mapper renders labels and values for one language.
type Mapper struct {
	labels map[string]string
	tag    language.Tag
}

// New returns a Mapper. Labels missing from overrides fall back to
// DefaultLabels, then to the canonical name.
func New(lang string, overrides map[string]string) *Mapper {
	labels := make(map[string]string, len(DefaultLabels)+len(overrides))
	for k, v := range DefaultLabels {
		labels[k] = v
	}
	for k, v := range overrides {
		labels[k] = v
	}
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Spanish
	}
	return &Mapper{labels: labels, tag: tag}
}

// Label returns the heading for a canonical column or a named measure.
func (m *Mapper) Label(name string) string {
	if l, ok := m.labels[name]; ok {
		return l
	}
	return name
}

// Column is Label for a canonical column.
func (m *Mapper) Column(c lineout.Column) string { return m.Label(string(c)) }

// Value capitalizes a raw value for display. Casers keep state, so each call
// gets its own.
func (m *Mapper) Value(raw string) string {
	if raw == "" {
		return raw
	}
	return cases.Title(m.tag, cases.NoLower).String(raw)
}

// Cell renders a nullable cell, blank when null.
func (m *Mapper) Cell(v lineout.Value) string {
	if !v.Valid {
		return ""
	}
	return m.Value(v.Str)
}
