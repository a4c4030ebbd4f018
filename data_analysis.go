package main

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-kit/log/level"

	"lineout-dashboard/internal/dashboard"
)

// writeSummary writes the indented JSON summary of a view.
func writeSummary(w io.Writer, v *dashboard.View) error {
	summary, err := v.Summary()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// summaryHandler serves the same derivations as the dashboard as JSON. The
// body is encoded before anything is written so failures still get a 500.
func (s *server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	v := s.resolve(w, r)
	if v == nil {
		return
	}
	summary, err := v.Summary()
	if err != nil {
		level.Error(s.logger).Log("msg", "summary failed", "path", r.URL.Path, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	body, err := json.Marshal(summary)
	if err != nil {
		level.Error(s.logger).Log("msg", "encoding summary failed", "path", r.URL.Path, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", s.etag(v.State.Key()))
	w.Write(body)
}
