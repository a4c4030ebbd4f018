package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lineout-dashboard/internal/dashboard"
	"lineout-dashboard/internal/display"
	"lineout-dashboard/internal/lineout"
	"lineout-dashboard/internal/source"
)

func rec(match, typ, tower, jumper, count, zone string) lineout.Record {
	return lineout.Record{
		Match:       lineout.V(match),
		Type:        lineout.V(typ),
		Tower:       lineout.V(tower),
		Jumper:      lineout.V(jumper),
		PlayerCount: lineout.V(count),
		Zone:        lineout.V(zone),
	}
}

func testServer(t *testing.T, cacheEntries int, rows ...lineout.Record) *server {
	t.Helper()
	if rows == nil {
		rows = []lineout.Record{
			rec("A", "lanzamiento", "1", "Juan", "5", "50-22"),
			rec("A", "maul", "2", "Pedro", "7", "50-22"),
			rec("A", "lanzamiento", "1", "Juan", "5", "5"),
			rec("B", "maul", "3", "Luis", "4", "22-5"),
			rec("B", "", "", "Luis", "", "22-5"),
		}
	}
	store, err := lineout.NewStore(lineout.AllColumns, rows)
	require.NoError(t, err)
	ds := &source.Dataset{Store: store, Origin: "test.csv", Format: source.FormatCSV, Fingerprint: 42}
	cfg := dashboard.Config{
		Title:       "Análisis Lines",
		Zones:       []string{"50-22", "22-5", "5"},
		DefaultZone: "50-22",
		Mapper:      display.New("es", nil),
	}
	return newServer(ds, cfg, cacheEntries, log.NewNopLogger())
}

func get(t *testing.T, h http.Handler, target string, header http.Header) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Result()
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestDashboardHandler(t *testing.T) {
	s := testServer(t, 8)
	h := s.routes()

	resp := get(t, h, "/?match=A&zone=50-22", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
	out := body(t, resp)
	assert.Contains(t, out, "Análisis Lines")
	assert.Contains(t, out, "Saltador más usado")
	assert.Contains(t, out, "<svg")
	assert.Equal(t, 1, s.cache.len())

	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)
	resp = get(t, h, "/?match=A&zone=50-22", http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)

	// A different selection has a different tag.
	resp = get(t, h, "/?match=B", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, etag, resp.Header.Get("ETag"))
	assert.Equal(t, 2, s.cache.len())
}

func TestDashboardEmptyZone(t *testing.T) {
	resp := get(t, testServer(t, 0).routes(), "/?match=A&zone=22-5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), "Sin datos para esta selección.")
}

func TestDashboardNotFoundAndMethod(t *testing.T) {
	h := testServer(t, 0).routes()
	assert.Equal(t, http.StatusNotFound, get(t, h, "/favicon.ico", nil).StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/?match=%zz", nil).StatusCode)
}

func TestDashboardNonNumericCountIsServerError(t *testing.T) {
	s := testServer(t, 0, rec("A", "", "1", "Juan", "five", "5"))
	resp := get(t, s.routes(), "/", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body(t, resp), "player_count")
}

func TestNonFiniteCountIsServerError(t *testing.T) {
	for _, count := range []string{"NaN", "Inf"} {
		t.Run(count, func(t *testing.T) {
			h := testServer(t, 0, rec("A", "", "1", "Juan", count, "5")).routes()

			resp := get(t, h, "/api/summary", nil)
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.Contains(t, body(t, resp), "player_count")

			resp = get(t, h, "/", nil)
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.NotContains(t, body(t, resp), "NaN</div>")
		})
	}
}

func TestSummaryHandler(t *testing.T) {
	resp := get(t, testServer(t, 0).routes(), "/api/summary?match=A&zone=22-5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "Juan", got["top_jumper"])
	assert.Equal(t, "1", got["top_tower"])
	assert.Equal(t, 3.0, got["lineouts"])
	assert.Equal(t, 3.0, got["rows"])
	assert.Equal(t, 0.0, got["zone_tower"].(map[string]any)["total"])
}

func TestViewCacheEvictsOldest(t *testing.T) {
	c := newViewCache(2)
	c.put("a", []byte("1"))
	c.put("b", []byte("2"))
	c.put("c", []byte("3"))
	_, ok := c.get("a")
	assert.False(t, ok)
	b, ok := c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "3", string(b))
	assert.Equal(t, 2, c.len())

	off := newViewCache(0)
	off.put("a", []byte("1"))
	assert.Equal(t, 0, off.len())
}

// clearEnv keeps the host environment out of config.Load.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "LINEOUT_CONFIG", "LINEOUT_ADDR", "LINEOUT_SOURCE", "LINEOUT_SHEET",
		"LINEOUT_TABLE", "LINEOUT_TITLE", "LINEOUT_LOGO", "LINEOUT_LANGUAGE",
		"LINEOUT_ZONES", "LINEOUT_DEFAULT_ZONE", "LINEOUT_CACHE_ENTRIES", "LINEOUT_FETCH_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
}

func writeLineouts(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lines.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"partido,tipo_line,posicion,saltador,cant_line,ubicacion\n"+
			"A,maul,1,Juan,5,50-22\n"+
			"A,lanzamiento,2,Pedro,7,5\n"+
			"B,maul,3,Luis,4,22-5\n"), 0o644))
	return path
}

func TestRunCommands(t *testing.T) {
	clearEnv(t)
	path := writeLineouts(t)

	cmd, err := app.Parse([]string{"summary", "--source", path, "--match", "A", "--zone", "5", "--type", "all"})
	require.NoError(t, err)
	require.Equal(t, "summary", cmd)
	var out bytes.Buffer
	require.NoError(t, run(cmd, &out, log.NewNopLogger()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 2.0, got["rows"])
	assert.Equal(t, 6.0, got["mean_player_count"])
	assert.Equal(t, "2", got["zone_tower"].(map[string]any)["entries"].([]any)[0].(map[string]any)["value"])
	assert.Equal(t, "A", got["selection"].(map[string]any)["match"])

	cmd, err = app.Parse([]string{"matches", "--source", path})
	require.NoError(t, err)
	out.Reset()
	require.NoError(t, run(cmd, &out, log.NewNopLogger()))
	assert.Equal(t, "A\nB\n", out.String())
}

func TestRunFailsOnLoadError(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "missing.csv")

	for _, name := range []string{"summary", "matches"} {
		cmd, err := app.Parse([]string{name, "--source", missing})
		require.NoError(t, err)
		var out bytes.Buffer
		err = run(cmd, &out, log.NewNopLogger())
		var le *source.LoadError
		require.ErrorAs(t, err, &le, name)
		assert.Equal(t, missing, le.Source)
		assert.Empty(t, out.String())
	}

	// A source without a match column is a load error too.
	path := filepath.Join(t.TempDir(), "nomatch.csv")
	require.NoError(t, os.WriteFile(path, []byte("posicion,saltador,cant_line,ubicacion\n1,Juan,5,5\n"), 0o644))
	cmd, err := app.Parse([]string{"summary", "--source", path})
	require.NoError(t, err)
	err = run(cmd, io.Discard, log.NewNopLogger())
	assert.ErrorIs(t, err, lineout.ErrMissingColumn)
}
