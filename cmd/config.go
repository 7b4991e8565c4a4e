package cmd

import (
	"fmt"

	"github.com/spf13/viper"

	"etl-verify/internal/agentclient"
	"etl-verify/internal/config"
	"etl-verify/internal/connection"
	"etl-verify/internal/orchestrator"
	"etl-verify/internal/snapshot"
	"etl-verify/internal/validator"
)

// loadConfig unmarshals the merged viper state (flag > env > file > defaults)
// over the built-in defaults and validates it.
func loadConfig() (*config.Config, error) {
	c := config.Default()
	if err := viper.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func newAgentClient(c *config.Config) (*agentclient.Client, error) {
	if c.Agent.URL == "" {
		return nil, fmt.Errorf("agent.url is required (via config or ETL_VERIFY_AGENT_URL)")
	}
	return agentclient.New(c.Agent.URL, c.Agent.Token, c.Agent.RequestTimeout), nil
}

func newFetcher(c *config.Config, registry *connection.Registry) (snapshot.Fetcher, error) {
	if c.Snapshot.Mode == config.SnapshotModeAgent {
		agent, err := newAgentClient(c)
		if err != nil {
			return nil, err
		}
		return snapshot.NewAgentFetcher(agent), nil
	}
	return snapshot.NewDBFetcher(registry), nil
}

// validationRequest selects every active source and the active target. A
// missing target leaves the target side unvalidated.
func validationRequest(c *config.Config) validator.Request {
	req := validator.Request{AgentID: c.Agent.ID}
	for _, s := range c.ActiveSources() {
		req.SourceIDs = append(req.SourceIDs, s.ID)
	}
	if t, err := c.ActiveTarget(); err == nil {
		req.TargetID = t.ID
	}
	return req
}

// runTarget pairs the first active source with the active target.
func runTarget(c *config.Config) (orchestrator.Target, error) {
	t := orchestrator.Target{AgentID: c.Agent.ID}
	sources := c.ActiveSources()
	if len(sources) == 0 {
		return t, fmt.Errorf("no active source connection found in config (set active: true)")
	}
	target, err := c.ActiveTarget()
	if err != nil {
		return t, err
	}
	t.SourceConnectionID = sources[0].ID
	t.TargetConnectionID = target.ID
	return t, nil
}

func runnerOptions(c *config.Config) orchestrator.Options {
	return orchestrator.Options{
		PollInterval:    c.Execution.PollInterval,
		PollJitter:      c.Execution.PollJitter,
		Timeout:         c.Execution.JobTimeout,
		NotFoundRetries: c.Execution.NotFoundRetries,
	}
}
