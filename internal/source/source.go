// Package source reads lineout records from a spreadsheet, CSV file, SQLite
// database or a URL serving one of those, and builds the record store.
package source

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"lineout-dashboard/internal/lineout"
)

// Format is a supported input format.
type Format string

const (
	FormatXLSX   Format = "xlsx"
	FormatCSV    Format = "csv"
	FormatSQLite Format = "sqlite"
)

// Options tune how a source is read.
type Options struct {
	// Sheet is the XLSX sheet name; empty reads the first sheet.
	Sheet string
	// Table is the SQLite table name.
	Table string
	// Aliases adds header → canonical column mappings on top of the
	// built-in ones.
	Aliases map[string]string
	// Timeout bounds a remote fetch.
	Timeout time.Duration
	// Client is used for remote sources; http.DefaultClient when nil.
	Client *http.Client
}

// LoadError reports a source that could not be read or is malformed.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string { return fmt.Sprintf("loading %s: %v", e.Source, e.Err) }

func (e *LoadError) Unwrap() error { return e.Err }

// Dataset is a loaded record store plus what is known about where it came
// from.
type Dataset struct {
	Store  lineout.Table
	Origin string
	Format Format
	// Fingerprint is the xxh3 hash of the header and cell text.
	Fingerprint uint64
}

// grid is a header row plus data rows, as read from any format. SQL NULLs
// arrive as empty strings.
type grid struct {
	header []string
	rows   [][]string
}

// Load reads location and builds the record store. Every failure is a
// *LoadError.
func Load(ctx context.Context, location string, opts Options) (*Dataset, error) {
	if location == "" {
		return nil, &LoadError{Source: location, Err: fmt.Errorf("no source configured")}
	}

	var (
		g      grid
		format Format
		err    error
	)
	if isRemote(location) {
		g, format, err = loadRemote(ctx, location, opts)
	} else {
		format, err = detect(location)
		if err == nil {
			g, err = loadLocal(location, format, opts)
		}
	}
	if err != nil {
		return nil, &LoadError{Source: location, Err: err}
	}

	store, err := build(g, opts.Aliases)
	if err != nil {
		return nil, &LoadError{Source: location, Err: err}
	}
	return &Dataset{
		Store:       store,
		Origin:      location,
		Format:      format,
		Fingerprint: fingerprint(g),
	}, nil
}

func loadLocal(path string, format Format, opts Options) (grid, error) {
	switch format {
	case FormatXLSX:
		return readXLSXFile(path, opts.Sheet)
	case FormatCSV:
		return readCSVFile(path)
	case FormatSQLite:
		return readSQLite(path, opts.Table)
	}
	return grid{}, fmt.Errorf("unsupported format %q", format)
}

func detect(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	}
	return "", fmt.Errorf("unrecognized file extension %q", filepath.Ext(name))
}

// defaultAliases covers the English canonical names and the Spanish headers
// used in the club workbooks.
var defaultAliases = map[string]lineout.Column{
	"match":        lineout.ColMatch,
	"partido":      lineout.ColMatch,
	"lineout_type": lineout.ColType,
	"tipo_line":    lineout.ColType,
	"tipo":         lineout.ColType,
	"type":         lineout.ColType,
	"tower":        lineout.ColTower,
	"posicion":     lineout.ColTower,
	"posición":     lineout.ColTower,
	"torre":        lineout.ColTower,
	"jumper":       lineout.ColJumper,
	"saltador":     lineout.ColJumper,
	"player_count": lineout.ColPlayerCount,
	"cant_line":    lineout.ColPlayerCount,
	"zone":         lineout.ColZone,
	"ubicacion":    lineout.ColZone,
	"ubicación":    lineout.ColZone,
	"zona":         lineout.ColZone,
	"description":  lineout.ColDescription,
	"desc":         lineout.ColDescription,
	"descripcion":  lineout.ColDescription,
	"descripción":  lineout.ColDescription,
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(h))
}

// resolveHeader maps each header position to a canonical column. Unknown
// headers are ignored; when two headers map to the same column the first
// one wins.
func resolveHeader(header []string, extra map[string]string) (map[int]lineout.Column, []lineout.Column) {
	aliases := make(map[string]lineout.Column, len(defaultAliases)+len(extra))
	for k, v := range defaultAliases {
		aliases[k] = v
	}
	for k, v := range extra {
		aliases[normalizeHeader(k)] = lineout.Column(normalizeHeader(v))
	}

	byPos := make(map[int]lineout.Column)
	seen := make(map[lineout.Column]bool)
	var cols []lineout.Column
	for i, h := range header {
		c, ok := aliases[normalizeHeader(h)]
		if !ok || seen[c] {
			continue
		}
		if _, known := (lineout.Record{}).Get(c); !known {
			continue
		}
		seen[c] = true
		byPos[i] = c
		cols = append(cols, c)
	}
	return byPos, cols
}

func build(g grid, aliases map[string]string) (lineout.Table, error) {
	byPos, cols := resolveHeader(g.header, aliases)
	records := make([]lineout.Record, 0, len(g.rows))
	for _, row := range g.rows {
		var r lineout.Record
		empty := true
		for i, c := range byPos {
			if i >= len(row) {
				continue
			}
			v := lineout.V(row[i])
			if v.Valid {
				empty = false
			}
			r = r.Set(c, v)
		}
		if empty {
			continue
		}
		records = append(records, r)
	}
	return lineout.NewStore(cols, records)
}

func fingerprint(g grid) uint64 {
	h := xxh3.New()
	write := func(cells []string) {
		for _, c := range cells {
			h.WriteString(c)
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	write(g.header)
	for _, r := range g.rows {
		write(r)
	}
	return h.Sum64()
}
