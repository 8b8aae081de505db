package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	libconfig "parkingledger/backend/libs/config"
)

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	defaultPort     = "8084"
	defaultTimezone = "America/Sao_Paulo"
	defaultRate     = "10.00"
	defaultCapacity = 50
	defaultLockTTL  = 5 * time.Second
)

// HTTPConfig configures the listener.
type HTTPConfig struct {
	Port string `yaml:"port" env:"PARKING_HTTP_PORT"`
}

// DatabaseConfig selects the ledger storage.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"PARKING_DB_DRIVER"`
	DSN    string `yaml:"dsn" env:"PARKING_DB_DSN"`
}

// RedisConfig enables the cross-instance entry lock when Addr is set.
type RedisConfig struct {
	Addr         string        `yaml:"addr" env:"PARKING_REDIS_ADDR"`
	Password     string        `yaml:"password" env:"PARKING_REDIS_PASSWORD"`
	DB           int           `yaml:"db" env:"PARKING_REDIS_DB"`
	EntryLockTTL  time.Duration `yaml:"entryLockTTL" env:"PARKING_ENTRY_LOCK_TTL"`
	EntryLockWait time.Duration `yaml:"entryLockWait" env:"PARKING_ENTRY_LOCK_WAIT"`
}

// FacilityConfig holds the facility defaults used when settings rows are missing.
type FacilityConfig struct {
	Timezone          string `yaml:"timezone" env:"PARKING_TIMEZONE"`
	DefaultCapacity   int    `yaml:"defaultCapacity" env:"PARKING_DEFAULT_CAPACITY"`
	DefaultHourlyRate string `yaml:"defaultHourlyRate" env:"PARKING_DEFAULT_HOURLY_RATE"`
}

// Config represents service configuration loaded from YAML/env.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Facility FacilityConfig `yaml:"facility"`

	location *time.Location
	rate     decimal.Decimal
}

// Defaults returns a configuration with every default applied.
func Defaults() *Config {
	return &Config{
		HTTP:     HTTPConfig{Port: defaultPort},
		Database: DatabaseConfig{Driver: DriverSQLite, DSN: "parking.db"},
		Redis:    RedisConfig{EntryLockTTL: defaultLockTTL},
		Facility: FacilityConfig{
			Timezone:          defaultTimezone,
			DefaultCapacity:   defaultCapacity,
			DefaultHourlyRate: defaultRate,
		},
	}
}

// Load reads configuration using the shared config loader.
func Load() (*Config, error) {
	cfg := Defaults()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes the configuration and resolves derived values.
func (c *Config) Validate() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database DSN is required")
	}

	if c.Redis.EntryLockTTL <= 0 {
		c.Redis.EntryLockTTL = defaultLockTTL
	}
	if c.Redis.EntryLockWait <= 0 || c.Redis.EntryLockWait > c.Redis.EntryLockTTL {
		c.Redis.EntryLockWait = c.Redis.EntryLockTTL
	}
	if c.Facility.DefaultCapacity <= 0 {
		c.Facility.DefaultCapacity = defaultCapacity
	}

	tz := strings.TrimSpace(c.Facility.Timezone)
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("config: load timezone %q: %w", tz, err)
	}
	c.location = loc

	raw := strings.TrimSpace(c.Facility.DefaultHourlyRate)
	if raw == "" {
		raw = defaultRate
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("config: parse default hourly rate: %w", err)
	}
	if !rate.IsPositive() {
		return errors.New("config: default hourly rate must be positive")
	}
	c.rate = rate
	return nil
}

// HTTPAddress ensures we always return host:port formatted string.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = defaultPort
	}
	if strings.Contains(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// Location is the facility time zone used for calendar days.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// HourlyRate is the rate applied when the settings table has none.
func (c *Config) HourlyRate() decimal.Decimal {
	return c.rate
}

// RedisEnabled reports whether the entry lock should be wired.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}
