// Package config provides functionality for managing configuration options
// for the application using command-line flags, a .env file, a JSON config
// file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Duration is a time.Duration that reads "30m" style values from flags and
// JSON.
type Duration struct {
	time.Duration
}

// Set implements flag.Value.
func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// UnmarshalJSON accepts a duration string.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	return d.Set(s)
}

// MarshalJSON writes the duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Options holds the configuration values for the application.
type Options struct {
	// Addr defines the server's listening address (ip:port).
	Addr string `json:"address"`

	// DataDir is where the file backend keeps its buckets.
	DataDir string `json:"data_dir"`

	// Backend selects the storage: "file" or "postgres".
	Backend string `json:"backend"`

	// DatabaseDSN holds the database connection string for the postgres backend.
	DatabaseDSN string `json:"database_dsn"`

	// LogLevel is the zap level name.
	LogLevel string `json:"log_level"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// Origins is a comma separated list of CORS origins.
	Origins string `json:"origins"`

	// PalettesPath points at the bundled site palettes.
	PalettesPath string `json:"palettes"`

	// JanitorInterval is how often orphaned blobs are swept. Zero disables
	// the sweep.
	JanitorInterval Duration `json:"janitor_interval"`

	// Cmd is the shell mode: "shell", "export" or "import".
	Cmd string `json:"-"`

	// File is the export/import file for the shell modes.
	File string `json:"-"`
}

// AllowedOrigins splits Origins.
func (o *Options) AllowedOrigins() []string {
	var out []string
	for _, s := range strings.Split(o.Origins, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Parse parses the command-line flags and environment variables to set
// configuration values. Invalid configuration is fatal.
func Parse() *Options {
	opts, err := ParseArgs(os.Args[0], os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return opts
}

// ParseArgs builds Options from args. A .env file in the working directory
// is loaded first; variables already set win over it.
func ParseArgs(name string, args []string) (*Options, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	opts := &Options{JanitorInterval: Duration{10 * time.Minute}}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&opts.Addr, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&opts.DataDir, "data", "artrecord-data", "data directory for the file backend")
	fs.StringVar(&opts.Backend, "backend", BackendFile, "storage backend: file or postgres")
	fs.StringVar(&opts.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&opts.Config, "config", "config.json", "path to config file")
	fs.StringVar(&opts.Config, "c", "config.json", "path to config file (shorthand)")
	fs.StringVar(&opts.Origins, "origins", "http://localhost:*,http://127.0.0.1:*", "comma separated CORS origins")
	fs.StringVar(&opts.PalettesPath, "palettes", "palettes.json", "path to the site palettes file")
	fs.Var(&opts.JanitorInterval, "janitor", "orphaned image sweep interval, 0 disables")
	fs.StringVar(&opts.Cmd, "cmd", "shell", "shell mode: shell, export or import")
	fs.StringVar(&opts.File, "file", "", "file for export/import")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		opts.Config = configPath
	}

	if opts.Config != "" {
		if _, err := os.Stat(opts.Config); err == nil {
			data, err := os.ReadFile(opts.Config)
			if err != nil {
				return nil, fmt.Errorf("error while reading config file: %w", err)
			}
			if err := json.Unmarshal(data, opts); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	for env, dst := range map[string]*string{
		"SERVER_ADDRESS":    &opts.Addr,
		"ARTRECORD_DATA":    &opts.DataDir,
		"ARTRECORD_BACKEND": &opts.Backend,
		"DATABASE_DSN":      &opts.DatabaseDSN,
		"LOG_LEVEL":         &opts.LogLevel,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	switch opts.Backend {
	case BackendFile:
	case BackendPostgres:
		if opts.DatabaseDSN == "" {
			return nil, errors.New("postgres backend needs a database DSN")
		}
	default:
		return nil, fmt.Errorf("unknown backend %q", opts.Backend)
	}
	return opts, nil
}
