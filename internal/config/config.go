// Package config resolves dashboard settings from built-in defaults, an
// optional YAML file and the environment (including a .env file).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settings is the effective configuration.
type Settings struct {
	Addr   string `yaml:"addr"`
	Source string `yaml:"source"`
	// Sheet selects the XLSX sheet; empty means the first one.
	Sheet string `yaml:"sheet"`
	// Table is the SQLite table holding the records.
	Table string `yaml:"table"`

	Title    string `yaml:"title"`
	Logo     string `yaml:"logo"`
	Language string `yaml:"language"`

	Zones       []string `yaml:"zones"`
	DefaultZone string   `yaml:"default_zone"`

	// Labels override display headings by canonical column name.
	Labels map[string]string `yaml:"labels"`
	// HeaderAliases maps extra source headers to canonical columns.
	HeaderAliases map[string]string `yaml:"header_aliases"`

	CacheEntries int           `yaml:"cache_entries"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// Defaults mirrors the club's 2025 lineout workbook.
func Defaults() Settings {
	return Settings{
		Addr:         ":8080",
		Source:       "Lines_IPR.xlsx",
		Table:        "lineouts",
		Title:        "Análisis Lines 2025",
		Logo:         "ipr_logo.png",
		Language:     "es",
		Zones:        []string{"50-22", "22-5", "5"},
		DefaultZone:  "50-22",
		CacheEntries: 256,
		FetchTimeout: 30 * time.Second,
	}
}

// Load builds settings from defaults, the YAML file at path (skipped when
// empty) and LINEOUT_* environment variables. A .env file in the working
// directory is read first if present.
func Load(path string) (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Settings{}, fmt.Errorf("reading .env: %w", err)
	}

	s := Defaults()
	if path == "" {
		path = os.Getenv("LINEOUT_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(b, &s); err != nil {
			return Settings{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := s.applyEnv(os.Getenv); err != nil {
		return Settings{}, err
	}
	return s, s.Validate()
}

func (s *Settings) applyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		s.Addr = ":" + v
	}
	set := map[string]*string{
		"LINEOUT_ADDR":     &s.Addr,
		"LINEOUT_SOURCE":   &s.Source,
		"LINEOUT_SHEET":    &s.Sheet,
		"LINEOUT_TABLE":    &s.Table,
		"LINEOUT_TITLE":    &s.Title,
		"LINEOUT_LOGO":     &s.Logo,
		"LINEOUT_LANGUAGE": &s.Language,
	}
	for key, dst := range set {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	if v := getenv("LINEOUT_ZONES"); v != "" {
		s.Zones = splitList(v)
	}
	if v := getenv("LINEOUT_DEFAULT_ZONE"); v != "" {
		s.DefaultZone = v
	}
	if v := getenv("LINEOUT_CACHE_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LINEOUT_CACHE_ENTRIES: %w", err)
		}
		s.CacheEntries = n
	}
	if v := getenv("LINEOUT_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LINEOUT_FETCH_TIMEOUT: %w", err)
		}
		s.FetchTimeout = d
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks settings that would otherwise fail at request time.
func (s Settings) Validate() error {
	if s.Source == "" {
		return errors.New("config: source is required")
	}
	if len(s.Zones) == 0 {
		return errors.New("config: at least one zone is required")
	}
	found := false
	for _, z := range s.Zones {
		if z == s.DefaultZone {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("config: default zone %q is not one of %v", s.DefaultZone, s.Zones)
	}
	if s.CacheEntries < 0 {
		return fmt.Errorf("config: cache_entries must be >= 0, got %d", s.CacheEntries)
	}
	return nil
}
