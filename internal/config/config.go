// Package config gathers the process configuration from defaults, an
// optional .env file, the environment and command-line flags, in that order
// of increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/erazemk/irontrace/internal/db"
)

// Environment variables.
const (
	EnvAddr        = "IRONTRACE_ADDR"
	EnvDBPath      = "IRONTRACE_DB"
	EnvDatabaseURL = "DATABASE_URL"
	EnvLogPath     = "IRONTRACE_LOG"
	EnvAdminUser   = "IRONTRACE_ADMIN"
	EnvFile        = "IRONTRACE_ENV_FILE"
)

// Config is the resolved process configuration.
type Config struct {
	Addr        string
	DBPath      string
	DatabaseURL string
	LogPath     string
	AdminUser   string
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Addr:      ":8080",
		DBPath:    "irontrace.sqlite3",
		AdminUser: "Admin",
	}
}

// Storage returns the storage configuration. A database URL selects
// PostgreSQL; otherwise the SQLite file at DBPath is used.
func (c Config) Storage() db.Config {
	if c.DatabaseURL != "" {
		return db.Config{Backend: db.BackendPostgres, URL: c.DatabaseURL}
	}
	return db.Config{Backend: db.BackendSQLite, Path: c.DBPath}
}

// Describe names the storage location for log output without leaking
// credentials from the database URL.
func (c Config) Describe() string {
	if c.DatabaseURL != "" {
		return "postgres"
	}
	return "sqlite:" + c.DBPath
}

const usage = `Usage: irontrace [flags]

Flags:
  -a, -addr <host:port>     listen address (default: :8080, env IRONTRACE_ADDR)
  -d, -db <path>            SQLite database path (default: irontrace.sqlite3, env IRONTRACE_DB)
  -database-url <url>       PostgreSQL URL; overrides -db (env DATABASE_URL)
  -u, -user <name>          admin username on first run (default: Admin, env IRONTRACE_ADMIN)
  -l, -log <path>           log file path (default: none, env IRONTRACE_LOG)
  -h, -help                 show this help and exit

Variables are also read from .env (or the file named by IRONTRACE_ENV_FILE).
`

// Load resolves the configuration for args (without the program name).
// It returns flag.ErrHelp when help was requested.
func Load(args []string, stdout io.Writer) (Config, error) {
	return load(args, os.LookupEnv, stdout)
}

func load(args []string, lookup func(string) (string, bool), stdout io.Writer) (Config, error) {
	envFile := ".env"
	if v, ok := lookup(EnvFile); ok && v != "" {
		envFile = v
	}

	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("reading %s: %w", envFile, err)
	}

	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok && v != ""
	}

	cfg := Default()
	for key, dst := range map[string]*string{
		EnvAddr:        &cfg.Addr,
		EnvDBPath:      &cfg.DBPath,
		EnvDatabaseURL: &cfg.DatabaseURL,
		EnvLogPath:     &cfg.LogPath,
		EnvAdminUser:   &cfg.AdminUser,
	} {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	fset := flag.NewFlagSet("irontrace", flag.ContinueOnError)
	fset.SetOutput(io.Discard)
	fset.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	fset.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")
	fset.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "")
	fset.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fset.StringVar(&cfg.Addr, "a", cfg.Addr, "")
	fset.StringVar(&cfg.AdminUser, "user", cfg.AdminUser, "")
	fset.StringVar(&cfg.AdminUser, "u", cfg.AdminUser, "")
	fset.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	fset.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")
	fset.Usage = func() { fmt.Fprint(stdout, usage) }

	if err := fset.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Config{}, err
		}
		return Config{}, fmt.Errorf("parsing flags: %w", err)
	}
	if fset.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected argument: %s", fset.Arg(0))
	}

	if cfg.DatabaseURL == "" && cfg.DBPath == "" {
		return Config{}, errors.New("no database configured")
	}
	return cfg, nil
}
