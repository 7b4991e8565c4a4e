// Package connection resolves configured connection ids into descriptors for
// the execution agent and into live database handles for schema introspection.
package connection

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"etl-verify/internal/config"
	"etl-verify/internal/dialect"
)

// Descriptor is the connection payload sent to the execution agent.
type Descriptor struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Driver string `json:"driver"`
	Schema string `json:"schema,omitempty"`
	DSN    string `json:"dsn"`
	Role   string `json:"role"`
}

type ErrConnectionNotFound struct {
	error
}

func NewErrConnectionNotFound(id string) *ErrConnectionNotFound {
	return &ErrConnectionNotFound{fmt.Errorf("connection %q not found in config", id)}
}

type Registry struct {
	conns map[string]config.Connection
}

func NewRegistry(conns []config.Connection) *Registry {
	r := &Registry{conns: make(map[string]config.Connection, len(conns))}
	for _, c := range conns {
		r.conns[c.ID] = c
	}
	return r
}

// Descriptor resolves id into the agent-facing connection descriptor.
func (r *Registry) Descriptor(id string) (*Descriptor, error) {
	c, ok := r.conns[id]
	if !ok {
		return nil, NewErrConnectionNotFound(id)
	}
	name := c.Name
	if name == "" {
		name = c.ID
	}
	return &Descriptor{
		ID:     c.ID,
		Name:   name,
		Driver: dialect.DriverName(c.Driver),
		Schema: c.Schema,
		DSN:    c.DSN,
		Role:   c.Role,
	}, nil
}

// Handle is an open database plus the dialect and schema configured for it.
type Handle struct {
	DB      *sql.DB
	Dialect dialect.Dialect
	Schema  string
}

func (h *Handle) Close() error {
	return h.DB.Close()
}

// Open connects to the configured database and verifies it with a ping.
func (r *Registry) Open(ctx context.Context, id string) (*Handle, error) {
	c, ok := r.conns[id]
	if !ok {
		return nil, NewErrConnectionNotFound(id)
	}

	db, err := sql.Open(dialect.DriverName(c.Driver), c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", id, err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", id, err)
	}

	return &Handle{DB: db, Dialect: dialect.GetDialect(c.Driver), Schema: c.Schema}, nil
}
