package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"lineout-dashboard/internal/dashboard"
	"lineout-dashboard/internal/lineout"
	"lineout-dashboard/internal/source"
	"lineout-dashboard/templates"
)

// viewCache memoizes rendered dashboards by ETag. It holds at most max
// entries and evicts the oldest first; max 0 disables it.
type viewCache struct {
	mu    sync.Mutex
	max   int
	data  map[string][]byte
	order []string
}

func newViewCache(max int) *viewCache {
	return &viewCache{max: max, data: make(map[string][]byte)}
}

func (c *viewCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	return b, ok
}

func (c *viewCache) put(key string, body []byte) {
	if c.max <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; ok {
		return
	}
	for len(c.order) >= c.max {
		delete(c.data, c.order[0])
		c.order = c.order[1:]
	}
	c.data[key] = body
	c.order = append(c.order, key)
}

func (c *viewCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

type server struct {
	store       lineout.Table
	fingerprint uint64
	cfg         dashboard.Config
	cache       *viewCache
	logger      log.Logger
}

func newServer(ds *source.Dataset, cfg dashboard.Config, cacheEntries int, logger log.Logger) *server {
	return &server{
		store:       ds.Store,
		fingerprint: ds.Fingerprint,
		cfg:         cfg,
		cache:       newViewCache(cacheEntries),
		logger:      logger,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.dashboardHandler)
	mux.HandleFunc("/api/summary", s.summaryHandler)
	return s.logRequests(mux)
}

// etag identifies one selection of one loaded source.
func (s *server) etag(key string) string {
	return fmt.Sprintf(`"%016x"`, xxh3.HashString(fmt.Sprintf("%016x|%s", s.fingerprint, key)))
}

// resolve parses the query and resolves the selection. A malformed query is
// answered with 400 and a nil view.
func (s *server) resolve(w http.ResponseWriter, r *http.Request) *dashboard.View {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Only GET allowed", http.StatusMethodNotAllowed)
		return nil
	}
	q, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		http.Error(w, "Bad query: "+err.Error(), http.StatusBadRequest)
		return nil
	}
	v, err := dashboard.Resolve(s.store, s.cfg, q)
	if err != nil {
		s.fail(w, r, err)
		return nil
	}
	return v
}

func (s *server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	v := s.resolve(w, r)
	if v == nil {
		return
	}

	etag := s.etag(v.State.Key())
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if notModified(r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	body, ok := s.cache.get(etag)
	if !ok {
		data, err := v.Page(s.cfg)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		var buf bytes.Buffer
		if err := templates.Dashboard(data).Render(r.Context(), &buf); err != nil {
			s.fail(w, r, err)
			return
		}
		body = buf.Bytes()
		s.cache.put(etag, body)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
}

func notModified(r *http.Request, etag string) bool {
	for _, t := range strings.Split(r.Header.Get("If-None-Match"), ",") {
		if t = strings.TrimSpace(t); t == etag || t == "*" {
			return true
		}
	}
	return false
}

// fail answers a request whose derivation failed. Unknown columns and
// non-numeric cells mean the source does not fit the dashboard, so they
// are reported as server errors.
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := "render"
	switch {
	case errors.Is(err, lineout.ErrColumnNotFound):
		kind = "column"
	case errors.Is(err, lineout.ErrNotNumeric):
		kind = "numeric"
	}
	level.Error(s.logger).Log("msg", "dashboard failed", "kind", kind, "path", r.URL.Path, "err", err)
	templ.Handler(templates.ErrorPage(s.cfg.Title, err.Error()), templ.WithStatus(http.StatusInternalServerError)).ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logRequests tags every request with an id and logs it once served.
func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		level.Info(s.logger).Log(
			"msg", "request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
