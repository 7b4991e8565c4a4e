// Package config holds the typed etl-verify configuration. Values are loaded
// by viper in cmd/ (flag > env > config file > defaults) and checked here.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	RoleSource = "source"
	RoleTarget = "target"

	SnapshotModeDirect = "direct"
	SnapshotModeAgent  = "agent"

	DefaultPollInterval    = 2 * time.Second
	DefaultJobTimeout      = 60 * time.Second
	DefaultNotFoundRetries = 3
	DefaultPacing          = 1 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
)

type Config struct {
	Connections []Connection `mapstructure:"connections" validate:"dive"`
	Agent       Agent        `mapstructure:"agent"`
	Execution   Execution    `mapstructure:"execution"`
	Snapshot    Snapshot     `mapstructure:"snapshot"`
	History     History      `mapstructure:"history"`
	Log         Log          `mapstructure:"log"`
	Server      Server       `mapstructure:"server"`
}

// Connection is one database the tool validates against.
type Connection struct {
	ID     string `mapstructure:"id" validate:"required"`
	Name   string `mapstructure:"name"`
	Driver string `mapstructure:"driver" validate:"required,oneof=mysql postgres sqlserver mssql oracle sqlite"`
	DSN    string `mapstructure:"dsn" validate:"required"`
	Schema string `mapstructure:"schema"`
	Role   string `mapstructure:"role" validate:"required,oneof=source target"`
	Active bool   `mapstructure:"active"`
}

// Agent is the remote execution agent that runs comparison jobs.
type Agent struct {
	URL            string        `mapstructure:"url" validate:"omitempty,url"`
	ID             string        `mapstructure:"id"`
	Token          string        `mapstructure:"token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
}

type Execution struct {
	PollInterval    time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	PollJitter      time.Duration `mapstructure:"poll_jitter" validate:"gte=0"`
	JobTimeout      time.Duration `mapstructure:"job_timeout" validate:"gtfield=PollInterval"`
	NotFoundRetries int           `mapstructure:"not_found_retries" validate:"gte=0"`
	Pacing          time.Duration `mapstructure:"pacing" validate:"gte=0"`
	Concurrency     int           `mapstructure:"concurrency" validate:"gte=1"`
}

type Snapshot struct {
	Mode string `mapstructure:"mode" validate:"oneof=direct agent"`
}

type History struct {
	Path string `mapstructure:"path"`
}

type Log struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

type Server struct {
	Address string `mapstructure:"address" validate:"required"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	return Config{
		Agent: Agent{RequestTimeout: DefaultRequestTimeout},
		Execution: Execution{
			PollInterval:    DefaultPollInterval,
			JobTimeout:      DefaultJobTimeout,
			NotFoundRetries: DefaultNotFoundRetries,
			Pacing:          DefaultPacing,
			Concurrency:     1,
		},
		Snapshot: Snapshot{Mode: SnapshotModeDirect},
		History:  History{Path: "etl-verify.db"},
		Log:      Log{Level: "info"},
		Server:   Server{Address: ":8088"},
	}
}

var validate = validator.New()

// Validate checks field constraints and connection-level rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("invalid configuration: %s failed on %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	seen := make(map[string]bool)
	for _, conn := range c.Connections {
		if seen[conn.ID] {
			return fmt.Errorf("duplicate connection id %q", conn.ID)
		}
		seen[conn.ID] = true
	}
	return nil
}

// ActiveSources returns the active source connections in configuration order.
// Order matters: the validator gives priority to the first-listed source.
func (c *Config) ActiveSources() []Connection {
	var out []Connection
	for _, conn := range c.Connections {
		if conn.Active && conn.Role == RoleSource {
			out = append(out, conn)
		}
	}
	return out
}

// ActiveTarget returns the single active target connection.
func (c *Config) ActiveTarget() (*Connection, error) {
	var active *Connection
	count := 0

	for i := range c.Connections {
		if c.Connections[i].Active && c.Connections[i].Role == RoleTarget {
			active = &c.Connections[i]
			count++
		}
	}

	if count == 0 {
		return nil, fmt.Errorf("no active target connection found in config (set active: true)")
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple active target connections found (only one can be active)")
	}
	return active, nil
}

// Connection returns the configured connection with the given id.
func (c *Config) Connection(id string) (*Connection, bool) {
	for i := range c.Connections {
		if c.Connections[i].ID == id {
			return &c.Connections[i], true
		}
	}
	return nil, false
}
