package validator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"etl-verify/internal/mapping"
	"etl-verify/internal/metrics"
	"etl-verify/internal/schema"
	"etl-verify/internal/snapshot"
)

// Request names the connections a validation pass runs against. SourceIDs
// order is the source search priority.
type Request struct {
	SourceIDs []string
	TargetID  string
	AgentID   string
}

type Service struct {
	fetcher snapshot.Fetcher
}

func NewService(fetcher snapshot.Fetcher) *Service {
	return &Service{fetcher: fetcher}
}

// Run fetches every snapshot and validates records against them. Fetch
// failures become warnings; Run itself only fails when ctx is done.
func (s *Service) Run(ctx context.Context, records []mapping.Record, req Request) (*Result, error) {
	log := zap.S().Named("validator")
	start := time.Now()

	var warnings []string
	attempted, fetched := 0, 0

	var sources []*schema.Snapshot
	for _, id := range req.SourceIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempted++
		snap, err := s.fetcher.Fetch(ctx, id, req.AgentID)
		if err != nil {
			log.Warnf("source %s: %v", id, err)
			warnings = append(warnings, fmt.Sprintf("Could not fetch schema for source connection '%s': %v", id, err))
			continue
		}
		fetched++
		sources = append(sources, snap)
	}

	var target *schema.Snapshot
	if req.TargetID != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempted++
		snap, err := s.fetcher.Fetch(ctx, req.TargetID, req.AgentID)
		if err != nil {
			log.Warnf("target %s: %v", req.TargetID, err)
			warnings = append(warnings, fmt.Sprintf("Could not fetch schema for target connection '%s': %v", req.TargetID, err))
		} else {
			fetched++
			target = snap
		}
	}

	if attempted > 0 && fetched == 0 {
		warnings = append(warnings, "Could not retrieve metadata for any connection")
	}

	res := Validate(records, sources, target)
	res.Warnings = append(append([]string{}, warnings...), res.Warnings...)

	metrics.ObserveValidation(res.Stats.TablesFound, res.Stats.TotalTables-res.Stats.TablesFound,
		len(res.SourceErrors), len(res.TargetErrors))
	log.Infof("validated %d records against %d/%d connections in %s: %s (%d/%d tables, %d/%d columns)",
		len(records), fetched, attempted, time.Since(start).Round(time.Millisecond), res.Outcome,
		res.Stats.TablesFound, res.Stats.TotalTables, res.Stats.ColumnsFound, res.Stats.TotalColumns)
	return res, nil
}
