package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given. It is optional.
const DefaultPath = "bookingsdb.yaml"

type Config struct {
	DatabaseURL     string `yaml:"database_url"`
	MigrationsTable string `yaml:"migrations_table"`
	LogsTable       string `yaml:"logs_table"`
	// LockID is the pg_advisory_lock key held for the duration of a run.
	LockID        int64 `yaml:"lock_id"`
	Transactional *bool `yaml:"transactional"`
}

func Default() *Config {
	tx := true
	return &Config{
		MigrationsTable: "schema_migrations",
		LogsTable:       "migration_logs",
		LockID:          7316254,
		Transactional:   &tx,
	}
}

// LoadEnv loads .env into the process environment if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️  No .env file found, continuing...")
	}
}

// Load builds the configuration from defaults, the YAML file at path and the
// environment, in increasing order of precedence. A missing file is an error
// only when path is not DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.Transactional == nil {
		tx := true
		cfg.Transactional = &tx
	}
	return cfg, cfg.validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("MIGRATIONS_TABLE"); v != "" {
		c.MigrationsTable = v
	}
	if v := os.Getenv("MIGRATION_LOGS_TABLE"); v != "" {
		c.LogsTable = v
	}
	if v := os.Getenv("MIGRATION_LOCK_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MIGRATION_LOCK_ID: %w", err)
		}
		c.LockID = id
	}
	if v := os.Getenv("MIGRATIONS_TRANSACTIONAL"); v != "" {
		tx, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MIGRATIONS_TRANSACTIONAL: %w", err)
		}
		c.Transactional = &tx
	}
	return nil
}

func (c *Config) validate() error {
	if c.MigrationsTable == "" {
		return errors.New("migrations_table must not be empty")
	}
	if c.LogsTable == "" {
		return errors.New("logs_table must not be empty")
	}
	if c.MigrationsTable == c.LogsTable {
		return fmt.Errorf("migrations_table and logs_table are both %q", c.LogsTable)
	}
	return nil
}

// RequireDatabase reports an error when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL not set (in .env, environment or config file)")
	}
	return nil
}

func (c *Config) InTransaction() bool {
	return c.Transactional == nil || *c.Transactional
}
