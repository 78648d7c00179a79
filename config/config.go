/*
Package config loads the engine configuration.

PURPOSE:
  One YAML file, optionally completed by a .env file and PAYROLL_*
  environment variables. Environment values win over the file.

SOURCES (later wins):
  1. Defaults()
  2. YAML file passed to Load (optional)
  3. .env file (path from PAYROLL_ENV_FILE, default ".env"; optional)
  4. Process environment

ENVIRONMENT:
  PAYROLL_DB_DRIVER             database.driver (sqlite | postgres)
  PAYROLL_DB_PATH               database.path
  PAYROLL_DB_DSN                database.dsn
  PAYROLL_DB_MAX_CONNS          database.max_conns
  PAYROLL_LOG_LEVEL             log.level
  PAYROLL_LOG_FORMAT            log.format (json | text)
  PAYROLL_WORKERS               liquidation.workers
  PAYROLL_HEALTH_EMPLOYEE_RATE  liquidation.health_employee_rate
  PAYROLL_PENSION_EMPLOYEE_RATE liquidation.pension_employee_rate
  PAYROLL_REFERENCE_DATA        reference_data.path

SEE ALSO:
  - cmd/liquidate/main.go: Wires the loaded config
  - store/postgres/pool.go: Consumes Database
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/socialsecurity"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the whole engine configuration.
type Config struct {
	Database      Database      `yaml:"database"`
	Log           Log           `yaml:"log"`
	Liquidation   Liquidation   `yaml:"liquidation"`
	ReferenceData ReferenceData `yaml:"reference_data"`
}

// Database selects and tunes the store.
type Database struct {
	Driver             string        `yaml:"driver"`
	Path               string        `yaml:"path"` // sqlite file, ":memory:" allowed
	DSN                string        `yaml:"dsn"`  // postgres connection string
	MaxConns           int           `yaml:"max_conns"`
	MinConns           int           `yaml:"min_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Liquidation tunes pay runs.
type Liquidation struct {
	Workers             int  `yaml:"workers"`
	HealthEmployeeRate  Rate `yaml:"health_employee_rate"`
	PensionEmployeeRate Rate `yaml:"pension_employee_rate"`
}

// Rates returns the employee contribution rates.
func (l Liquidation) Rates() socialsecurity.Rates {
	return socialsecurity.Rates{
		HealthEmployee:  l.HealthEmployeeRate.Decimal,
		PensionEmployee: l.PensionEmployeeRate.Decimal,
	}
}

// ReferenceData points at an optional JSON bundle used by -seed.
type ReferenceData struct {
	Path string `yaml:"path"`
}

// Rate is a fraction written as a YAML number or string, e.g. 0.04.
type Rate struct {
	decimal.Decimal
}

// UnmarshalYAML parses the scalar without going through float64.
func (r *Rate) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: rate must be a scalar", node.Line)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: invalid rate %q: %w", node.Line, node.Value, err)
	}
	r.Decimal = d
	return nil
}

// Defaults returns a configuration that runs on a local SQLite file.
func Defaults() Config {
	rates := socialsecurity.DefaultRates()
	return Config{
		Database: Database{Driver: DriverSQLite, Path: "payroll.db", MaxConns: 4},
		Log:      Log{Level: "info", Format: "json"},
		Liquidation: Liquidation{
			Workers:             4,
			HealthEmployeeRate:  Rate{rates.HealthEmployee},
			PensionEmployeeRate: Rate{rates.PensionEmployee},
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty), then the
// .env file and the environment, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	envFile := os.Getenv("PAYROLL_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = n
		return nil
	}
	rate := func(key string, dst *Rate) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		dst.Decimal = d
		return nil
	}

	str("PAYROLL_DB_DRIVER", &c.Database.Driver)
	str("PAYROLL_DB_PATH", &c.Database.Path)
	str("PAYROLL_DB_DSN", &c.Database.DSN)
	str("PAYROLL_LOG_LEVEL", &c.Log.Level)
	str("PAYROLL_LOG_FORMAT", &c.Log.Format)
	str("PAYROLL_REFERENCE_DATA", &c.ReferenceData.Path)

	if err := num("PAYROLL_DB_MAX_CONNS", &c.Database.MaxConns); err != nil {
		return err
	}
	if err := num("PAYROLL_WORKERS", &c.Liquidation.Workers); err != nil {
		return err
	}
	if err := rate("PAYROLL_HEALTH_EMPLOYEE_RATE", &c.Liquidation.HealthEmployeeRate); err != nil {
		return err
	}
	return rate("PAYROLL_PENSION_EMPLOYEE_RATE", &c.Liquidation.PensionEmployeeRate)
}

func (c *Config) validateAndNormalize() error {
	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch c.Log.Format {
	case "":
		c.Log.Format = "json"
	case "json", "text":
	default:
		return fmt.Errorf("config: log.format must be json or text, got %q", c.Log.Format)
	}

	if c.Liquidation.Workers <= 0 {
		c.Liquidation.Workers = 1
	}
	if err := c.Liquidation.Rates().Validate(); err != nil {
		return fmt.Errorf("config: liquidation: %w", err)
	}
	return nil
}

func (d *Database) validateAndNormalize() error {
	d.Driver = strings.ToLower(strings.TrimSpace(d.Driver))
	switch d.Driver {
	case "", DriverSQLite:
		d.Driver = DriverSQLite
		if d.Path == "" {
			return fmt.Errorf("config: database.path must be set for sqlite")
		}
	case DriverPostgres:
		if d.DSN == "" {
			return fmt.Errorf("config: database.dsn must be set for postgres")
		}
	default:
		return fmt.Errorf("config: unknown database.driver %q", d.Driver)
	}

	if d.MaxConns < 0 || d.MinConns < 0 {
		return fmt.Errorf("config: database connection limits must not be negative")
	}

	if d.ConnMaxLifetimeRaw != "" {
		lifetime, err := time.ParseDuration(d.ConnMaxLifetimeRaw)
		if err != nil {
			return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
		}
		d.ConnMaxLifetime = lifetime
	}
	return nil
}
