package source

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"lineout-dashboard/internal/lineout"
)

var workbookHeader = []string{"partido", "tipo_line", "posicion", "saltador", "cant_line", "ubicacion", "desc"}

var workbookRows = [][]string{
	{"A", "lanzamiento", "1", "Juan", "5", "50-22", "limpio"},
	{"A", "maul", "2", "Pedro", "7", "50-22", ""},
	{"A", "lanzamiento", "1", "Juan", "5", "5", "robado"},
	{"B", "maul", "3", "Luis", "4", "22-5", ""},
	{"", "", "", "", "", "", ""},
	{"B", "", "", "Luis", "", "22-5", ""},
}

func writeCSV(t *testing.T, header []string, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lines.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, f.Close())
	return path
}

func writeXLSX(t *testing.T, sheet string, header []string, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Lines_IPR.xlsx")
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	put := func(i int, cells []string) {
		row := make([]interface{}, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	put(0, header)
	for i, r := range rows {
		put(i+1, r)
	}
	require.NoError(t, f.SaveAs(path))
	return path
}

func writeSQLite(t *testing.T, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lines.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE lineouts (
		partido TEXT, tipo_line TEXT, posicion TEXT, saltador TEXT,
		cant_line INTEGER, ubicacion TEXT, "desc" TEXT)`)
	require.NoError(t, err)
	for _, r := range rows {
		args := make([]any, len(r))
		for i, c := range r {
			if c == "" {
				args[i] = nil
			} else {
				args[i] = c
			}
		}
		_, err := db.Exec(`INSERT INTO lineouts VALUES (?, ?, ?, ?, ?, ?, ?)`, args...)
		require.NoError(t, err)
	}
	return path
}

func assertWorkbook(t *testing.T, ds *Dataset) {
	t.Helper()
	store := ds.Store
	// The all-blank row is dropped.
	assert.Equal(t, 5, store.Len())
	assert.True(t, store.Has(lineout.ColType))
	assert.True(t, store.Has(lineout.ColDescription))

	matches, err := store.Distinct(lineout.ColMatch)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, matches)

	mean, err := lineout.Average(store, lineout.ColPlayerCount)
	require.NoError(t, err)
	assert.InDelta(t, 5.25, mean.Value, 1e-9)

	last := store.Rows()[4]
	assert.False(t, last.Tower.Valid)
	assert.Equal(t, lineout.V("Luis"), last.Jumper)
	assert.NotZero(t, ds.Fingerprint)
}

func TestLoadFormats(t *testing.T) {
	ctx := context.Background()

	t.Run("csv", func(t *testing.T) {
		ds, err := Load(ctx, writeCSV(t, workbookHeader, workbookRows), Options{})
		require.NoError(t, err)
		assert.Equal(t, FormatCSV, ds.Format)
		assertWorkbook(t, ds)
	})

	t.Run("xlsx", func(t *testing.T) {
		ds, err := Load(ctx, writeXLSX(t, "Sheet1", workbookHeader, workbookRows), Options{})
		require.NoError(t, err)
		assert.Equal(t, FormatXLSX, ds.Format)
		assertWorkbook(t, ds)
	})

	t.Run("xlsx named sheet", func(t *testing.T) {
		path := writeXLSX(t, "Lines", workbookHeader, workbookRows)
		ds, err := Load(ctx, path, Options{Sheet: "Lines"})
		require.NoError(t, err)
		assertWorkbook(t, ds)

		_, err = Load(ctx, path, Options{Sheet: "Nope"})
		assert.Error(t, err)
	})

	t.Run("sqlite", func(t *testing.T) {
		ds, err := Load(ctx, writeSQLite(t, workbookRows), Options{Table: "lineouts"})
		require.NoError(t, err)
		assert.Equal(t, FormatSQLite, ds.Format)
		assertWorkbook(t, ds)
	})
}

func TestLoadXLSXIgnoresNumberFormats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formatted.xlsx")
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"partido", "posicion", "saltador", "cant_line", "ubicacion"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"A", "1", "Juan", 5, "50-22"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"A", "1", "Juan", 5.5, "5"}))
	style, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "D2", "D3", style))
	require.NoError(t, f.SaveAs(path))

	ds, err := Load(context.Background(), path, Options{})
	require.NoError(t, err)
	counts, err := lineout.ValueCounts(ds.Store, lineout.ColPlayerCount)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"5": 1, "5.5": 1}, counts.Map())
	zones, err := ds.Store.Distinct(lineout.ColZone)
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "50-22"}, zones)
}

func TestFingerprintFollowsContent(t *testing.T) {
	ctx := context.Background()
	a, err := Load(ctx, writeCSV(t, workbookHeader, workbookRows), Options{})
	require.NoError(t, err)
	b, err := Load(ctx, writeCSV(t, workbookHeader, workbookRows), Options{})
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)

	changed := append([][]string{{"C", "maul", "1", "Ana", "6", "5", ""}}, workbookRows...)
	c, err := Load(ctx, writeCSV(t, workbookHeader, changed), Options{})
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
}

func TestLoadOptionalColumnsAbsent(t *testing.T) {
	header := []string{"Match", "Tower", "Jumper", "Player_Count", "Zone"}
	rows := [][]string{{"A", "1", "Juan", "5", "50-22"}}
	ds, err := Load(context.Background(), writeCSV(t, header, rows), Options{})
	require.NoError(t, err)
	assert.False(t, ds.Store.Has(lineout.ColType))
	assert.Equal(t, []lineout.Column{lineout.ColTower, lineout.ColJumper, lineout.ColZone, lineout.ColPlayerCount, lineout.ColMatch}, ds.Store.Columns())
}

func TestLoadHeaderAliases(t *testing.T) {
	header := []string{"\ufeffPartido", "Lanzador", "Torre", "cant_line", "zona"}
	rows := [][]string{{"A", "Juan", "1", "5", "5"}}
	_, err := Load(context.Background(), writeCSV(t, header, rows), Options{})
	require.ErrorIs(t, err, lineout.ErrMissingColumn)

	ds, err := Load(context.Background(), writeCSV(t, header, rows), Options{Aliases: map[string]string{"Lanzador": "jumper"}})
	require.NoError(t, err)
	assert.Equal(t, lineout.V("Juan"), ds.Store.Rows()[0].Jumper)
}

func TestLoadMissingMatchColumn(t *testing.T) {
	header := []string{"tipo_line", "posicion", "saltador", "cant_line", "ubicacion"}
	_, err := Load(context.Background(), writeCSV(t, header, nil), Options{})
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.True(t, errors.Is(err, lineout.ErrMissingColumn))

	var mce *lineout.MissingColumnsError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, []lineout.Column{lineout.ColMatch}, mce.Columns)
}

func TestLoadFailures(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "broken.xlsx")
	require.NoError(t, os.WriteFile(garbage, []byte("not a zip"), 0o644))
	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	tests := []struct {
		name     string
		location string
		opts     Options
	}{
		{"no source", "", Options{}},
		{"missing file", filepath.Join(dir, "nope.xlsx"), Options{}},
		{"missing sqlite file", filepath.Join(dir, "nope.db"), Options{}},
		{"unknown extension", filepath.Join(dir, "lines.ods"), Options{}},
		{"unreadable workbook", garbage, Options{}},
		{"empty csv", empty, Options{}},
		{"bad table name", writeSQLite(t, nil), Options{Table: "x; DROP TABLE lineouts"}},
		{"missing table", writeSQLite(t, nil), Options{Table: "other"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), tt.location, tt.opts)
			require.Error(t, err)
			var le *LoadError
			assert.True(t, errors.As(err, &le))
			assert.False(t, errors.Is(err, lineout.ErrColumnNotFound))
		})
	}

	_, err := os.Stat(filepath.Join(dir, "nope.db"))
	assert.True(t, os.IsNotExist(err), "loading must not create the database")
}

func TestLoadRemote(t *testing.T) {
	csvPath := writeCSV(t, workbookHeader, workbookRows)
	body, err := os.ReadFile(csvPath)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lines.csv":
			w.Write(body)
		case "/export":
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Write(body)
		case "/mystery":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(body)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	for _, p := range []string{"/lines.csv", "/export"} {
		ds, err := Load(ctx, srv.URL+p, Options{Client: srv.Client()})
		require.NoError(t, err, p)
		assert.Equal(t, FormatCSV, ds.Format)
		assertWorkbook(t, ds)
	}

	for _, p := range []string{"/mystery", "/missing.csv"} {
		_, err := Load(ctx, srv.URL+p, Options{Client: srv.Client()})
		var le *LoadError
		assert.True(t, errors.As(err, &le), p)
	}
}

func TestLoadRemoteSQLite(t *testing.T) {
	body, err := os.ReadFile(writeSQLite(t, workbookRows))
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	ds, err := Load(context.Background(), srv.URL+"/lines.sqlite", Options{Client: srv.Client()})
	require.NoError(t, err)
	assert.Equal(t, FormatSQLite, ds.Format)
	assertWorkbook(t, ds)
}
