package database

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported driver names.
const (
	DriverMongoDB   = "mongodb"
	DriverFirestore = "firestore"
	DriverPostgres  = "postgres"
)

// Config contains document-store connection configuration. Only the fields
// relevant to the selected Driver are consulted when building a target.
type Config struct {
	Driver string `toml:"driver"`

	// mongodb
	URI string `toml:"uri"`

	// postgres (Name is also the mongodb database name)
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Name     string `toml:"name"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Schema   string `toml:"schema"`

	// firestore
	ProjectID   string   `toml:"project_id"`
	DatabaseID  string   `toml:"database_id"`
	Collections []string `toml:"collections"`

	ReconnectTries    int    `toml:"reconnect_tries"`
	ReconnectInterval string `toml:"reconnect_interval"`
	HeartbeatInterval string `toml:"heartbeat_interval"`
	ConnTimeout       string `toml:"conn_timeout"`
}

// Env maps environment variable names for database configuration.
type Env struct {
	Driver            string
	URI               string
	Host              string
	Port              string
	Name              string
	User              string
	Password          string
	Schema            string
	ProjectID         string
	DatabaseID        string
	Collections       string
	ReconnectTries    string
	ReconnectInterval string
	HeartbeatInterval string
	ConnTimeout       string
}

// ReconnectIntervalDuration parses and returns the reconnect interval.
func (c *Config) ReconnectIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.ReconnectInterval)
	return d
}

// ReconnectWindow is how long a closed connection may stay unrecovered
// before its handle is discarded: ReconnectTries × ReconnectInterval.
func (c *Config) ReconnectWindow() time.Duration {
	return time.Duration(c.ReconnectTries) * c.ReconnectIntervalDuration()
}

// HeartbeatIntervalDuration parses and returns the health check interval.
func (c *Config) HeartbeatIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.HeartbeatInterval)
	return d
}

// ConnTimeoutDuration parses and returns the connection timeout.
func (c *Config) ConnTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnTimeout)
	return d
}

// Dsn returns the PostgreSQL connection string.
func (c *Config) Dsn() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		c.Host, c.Port, c.Name, c.User, c.Password,
	)
}

// Finalize applies defaults, loads environment overrides, and validates the database configuration.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	c.loadDriverDefaults()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *Config) Merge(overlay *Config) {
	if overlay.Driver != "" {
		c.Driver = overlay.Driver
	}
	if overlay.URI != "" {
		c.URI = overlay.URI
	}
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	if overlay.Name != "" {
		c.Name = overlay.Name
	}
	if overlay.User != "" {
		c.User = overlay.User
	}
	if overlay.Password != "" {
		c.Password = overlay.Password
	}
	if overlay.Schema != "" {
		c.Schema = overlay.Schema
	}
	if overlay.ProjectID != "" {
		c.ProjectID = overlay.ProjectID
	}
	if overlay.DatabaseID != "" {
		c.DatabaseID = overlay.DatabaseID
	}
	if len(overlay.Collections) > 0 {
		c.Collections = overlay.Collections
	}
	if overlay.ReconnectTries != 0 {
		c.ReconnectTries = overlay.ReconnectTries
	}
	if overlay.ReconnectInterval != "" {
		c.ReconnectInterval = overlay.ReconnectInterval
	}
	if overlay.HeartbeatInterval != "" {
		c.HeartbeatInterval = overlay.HeartbeatInterval
	}
	if overlay.ConnTimeout != "" {
		c.ConnTimeout = overlay.ConnTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.Driver == "" {
		c.Driver = DriverMongoDB
	}
	if c.ReconnectTries == 0 {
		c.ReconnectTries = 30
	}
	if c.ReconnectInterval == "" {
		c.ReconnectInterval = "1s"
	}
	if c.HeartbeatInterval == "" {
		c.HeartbeatInterval = "10s"
	}
	if c.ConnTimeout == "" {
		c.ConnTimeout = "5s"
	}
}

// loadDriverDefaults runs after env overrides so that a driver selected
// through the environment still receives its defaults.
func (c *Config) loadDriverDefaults() {
	switch c.Driver {
	case DriverMongoDB:
		if c.URI == "" {
			c.URI = "mongodb://localhost:27017"
		}
		if c.Name == "" {
			c.Name = "forms"
		}
	case DriverPostgres:
		if c.Host == "" {
			c.Host = "localhost"
		}
		if c.Port == 0 {
			c.Port = 5432
		}
		if c.Schema == "" {
			c.Schema = "public"
		}
	}
}

func (c *Config) loadEnv(env *Env) {
	str := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str(env.Driver, &c.Driver)
	str(env.URI, &c.URI)
	str(env.Host, &c.Host)
	num(env.Port, &c.Port)
	str(env.Name, &c.Name)
	str(env.User, &c.User)
	str(env.Password, &c.Password)
	str(env.Schema, &c.Schema)
	str(env.ProjectID, &c.ProjectID)
	str(env.DatabaseID, &c.DatabaseID)
	num(env.ReconnectTries, &c.ReconnectTries)
	str(env.ReconnectInterval, &c.ReconnectInterval)
	str(env.HeartbeatInterval, &c.HeartbeatInterval)
	str(env.ConnTimeout, &c.ConnTimeout)

	if env.Collections != "" {
		if v := os.Getenv(env.Collections); v != "" {
			var names []string
			for name := range strings.SplitSeq(v, ",") {
				if name = strings.TrimSpace(name); name != "" {
					names = append(names, name)
				}
			}
			c.Collections = names
		}
	}
}

func (c *Config) validate() error {
	switch c.Driver {
	case DriverMongoDB, DriverFirestore, DriverPostgres:
	default:
		return fmt.Errorf("unsupported driver: %s (must be mongodb, firestore, or postgres)", c.Driver)
	}
	if c.Driver == DriverPostgres {
		if c.Name == "" {
			return fmt.Errorf("name required")
		}
		if c.User == "" {
			return fmt.Errorf("user required")
		}
	}
	if c.ReconnectTries < 0 {
		return fmt.Errorf("reconnect_tries must not be negative")
	}
	if _, err := time.ParseDuration(c.ReconnectInterval); err != nil {
		return fmt.Errorf("invalid reconnect_interval: %w", err)
	}
	if d, err := time.ParseDuration(c.HeartbeatInterval); err != nil {
		return fmt.Errorf("invalid heartbeat_interval: %w", err)
	} else if d <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive")
	}
	if _, err := time.ParseDuration(c.ConnTimeout); err != nil {
		return fmt.Errorf("invalid conn_timeout: %w", err)
	}
	return nil
}
