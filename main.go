package main

import (
	"context"
	"encoding/base64"
		"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"lineout-dashboard/internal/config"
	"lineout-dashboard/internal/dashboard"
	"lineout-dashboard/internal/display"
	"lineout-dashboard/internal/lineout"
	"lineout-dashboard/internal/selection"
	"lineout-dashboard/internal/source"
)

var (
	app        = kingpin.New("lineout-dashboard", "Rugby lineout analysis dashboard.")
	configPath = app.Flag("config", "YAML settings file.").String()
	sourceFlag = app.Flag("source", "Lineout records: .xlsx, .csv, .db or an http(s) URL to one of them.").String()
	logLevel   = app.Flag("log.level", "Only log messages at or above this level.").Default("info").Enum("debug", "info", "warn", "error")

	serveCmd = app.Command("serve", "Serve the dashboard over HTTP.").Default()
	addrFlag = serveCmd.Flag("addr", "Listen address.").String()

	summaryCmd   = app.Command("summary", "Print the JSON summary of one selection.")
	summaryMatch = summaryCmd.Flag("match", "Match to summarize. Defaults to the first match.").String()
	summaryType  = summaryCmd.Flag("type", "Lineout type filter.").Default(lineout.All).String()
	summaryZone  = summaryCmd.Flag("zone", "Zone for the tower-by-zone counts. Defaults to the configured zone.").String()

	matchesCmd = app.Command("matches", "List the matches in the source.")
)

func main() {
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))
	logger := newLogger(*logLevel)

	if err := run(cmd, os.Stdout, logger); err != nil {
		level.Error(logger).Log("msg", "lineout-dashboard failed", "cmd", cmd, "err", err)
		os.Exit(1)
	}
}

func newLogger(lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	var opt level.Option
	switch lvl {
	case "debug":
		opt = level.AllowDebug()
	case "warn":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	default:
		opt = level.AllowInfo()
	}
	logger = level.NewFilter(logger, opt)
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

// run executes one command. Command output goes to stdout; the error is what
// makes the process exit non-zero.
func run(cmd string, stdout io.Writer, logger log.Logger) error {
	settings, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *sourceFlag != "" {
		settings.Source = *sourceFlag
	}
	if *addrFlag != "" {
		settings.Addr = *addrFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, err := source.Load(ctx, settings.Source, source.Options{
		Sheet:   settings.Sheet,
		Table:   settings.Table,
		Aliases: settings.HeaderAliases,
		Timeout: settings.FetchTimeout,
	})
	if err != nil {
		return err
	}
	matches, err := ds.Store.Distinct(lineout.ColMatch)
	if err != nil {
		return err
	}
	level.Info(logger).Log(
		"msg", "loaded lineouts",
		"source", ds.Origin,
		"format", ds.Format,
		"rows", ds.Store.Len(),
		"columns", fmt.Sprint(ds.Store.Columns()),
		"matches", len(matches),
		"fingerprint", fmt.Sprintf("%016x", ds.Fingerprint),
	)

	cfg := dashboard.Config{
		Title:       settings.Title,
		LogoB64:     loadLogo(settings.Logo, logger),
		Zones:       settings.Zones,
		DefaultZone: settings.DefaultZone,
		Mapper:      display.New(settings.Language, settings.Labels),
	}

	switch cmd {
	case matchesCmd.FullCommand():
		for _, m := range matches {
			fmt.Fprintln(stdout, m)
		}
		return nil
	case summaryCmd.FullCommand():
		q := url.Values{}
		if *summaryMatch != "" {
			q.Set(selection.ParamMatch, *summaryMatch)
		}
		if *summaryZone != "" {
			q.Set(selection.ParamZone, *summaryZone)
		}
		q.Set(selection.ParamType, *summaryType)
		v, err := dashboard.Resolve(ds.Store, cfg, q)
		if err != nil {
			return err
		}
		return writeSummary(stdout, v)
	}

	srv := &http.Server{
		Addr:              settings.Addr,
		Handler:           newServer(ds, cfg, settings.CacheEntries, logger).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	level.Info(logger).Log("msg", "lineout dashboard listening", "addr", settings.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// loadLogo returns the logo file as base64, or "" when it cannot be read.
func loadLogo(path string, logger log.Logger) string {
	if path == "" {
		return ""
	}
	b, err := os.ReadFile(path)
	if err != nil {
		level.Debug(logger).Log("msg", "logo skipped", "path", path, "err", err)
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}
