// Package snapshot fetches schema snapshots for configured connections,
// either straight from the database or through the execution agent.
package snapshot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"etl-verify/internal/connection"
	"etl-verify/internal/schema"
)

type Fetcher interface {
	Fetch(ctx context.Context, connectionID, agentID string) (*schema.Snapshot, error)
}

// DBFetcher introspects the database directly with the engine's dialect.
type DBFetcher struct {
	registry *connection.Registry
}

func NewDBFetcher(registry *connection.Registry) *DBFetcher {
	return &DBFetcher{registry: registry}
}

// Fetch ignores agentID; the database is reached from this process.
func (f *DBFetcher) Fetch(ctx context.Context, connectionID, agentID string) (*schema.Snapshot, error) {
	h, err := f.registry.Open(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	snap, err := schema.Analyze(ctx, h.DB, h.Dialect, h.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze %s: %w", connectionID, err)
	}
	snap.ConnectionID = connectionID

	zap.S().Named("snapshot").Debugf("fetched %d tables from %s (%s)", len(snap.Tables), connectionID, h.Dialect.Name())
	return snap, nil
}

type schemaSource interface {
	Schema(ctx context.Context, connectionID, agentID string) (*schema.Snapshot, error)
}

// AgentFetcher asks the execution agent for the connection's metadata.
type AgentFetcher struct {
	agent schemaSource
}

func NewAgentFetcher(agent schemaSource) *AgentFetcher {
	return &AgentFetcher{agent: agent}
}

func (f *AgentFetcher) Fetch(ctx context.Context, connectionID, agentID string) (*schema.Snapshot, error) {
	snap, err := f.agent.Schema(ctx, connectionID, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schema for %s from agent: %w", connectionID, err)
	}
	zap.S().Named("snapshot").Debugf("agent returned %d tables for %s", len(snap.Tables), connectionID)
	return snap, nil
}
