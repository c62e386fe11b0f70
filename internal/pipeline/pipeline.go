// Package pipeline sequences link discovery, range filtering, downloads,
// extraction, columnar parsing, and cleanup into one invocation.
package pipeline

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sppd/internal/archive"
	"sppd/internal/cleanup"
	"sppd/internal/columnar"
	"sppd/internal/config"
	"sppd/internal/discovery"
	"sppd/internal/download"
	"sppd/internal/filter"
)

// Pipeline wires the per-stage components together behind a single Run
// call, matching the sequence in spec.md's orchestrator section.
type Pipeline struct {
	Discovery *discovery.Client
	Download  *download.Scheduler
	Archive   *archive.Extractor
	Writer    *columnar.Writer
	Cleanup   *cleanup.Cleaner
	Log       *zap.Logger
}

// New builds a Pipeline with one component per stage, all sharing log. It
// fails only if the discovery client's static regex/selector can't compile
// — a startup-only, always-fatal condition.
func New(log *zap.Logger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	disc, err := discovery.NewClient()
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Discovery: disc,
		Download:  download.NewScheduler(log),
		Archive:   archive.NewExtractor(),
		Writer:    columnar.NewWriter(log),
		Cleanup:   cleanup.NewCleaner(log),
		Log:       log,
	}, nil
}

// Run executes discovery -> filter -> download -> extract -> parse+write ->
// cleanup for a single procurement type and period range. It aborts and
// returns the first fatal error; downloads and extraction are each fatal
// only after their own stage finishes attempting every period.
func (p *Pipeline) Run(ctx context.Context, landingURL string, procType config.ProcurementType, startPeriod, endPeriod string, cfg *config.ResolvedConfig) error {
	runID := uuid.New().String()
	log := p.Log.With(zap.String("run_id", runID))

	log.Info("discovering links", zap.String("landing_url", landingURL))
	links, err := p.Discovery.Discover(landingURL)
	if err != nil {
		return err
	}

	filtered, err := filter.Range(links, startPeriod, endPeriod)
	if err != nil {
		return err
	}
	periods := filtered.Periods()
	log.Info("filtered periods", zap.Strings("periods", periods))
	if len(periods) == 0 {
		log.Info("no periods selected, nothing to do")
		return nil
	}

	if err := p.Download.Run(ctx, filtered, procType, cfg); err != nil {
		return err
	}

	if err := p.Archive.Run(periods, procType, cfg); err != nil {
		return err
	}

	if err := p.Writer.Run(ctx, periods, procType, cfg); err != nil {
		return err
	}

	if failures := p.Cleanup.Run(periods, procType, cfg); failures > 0 {
		log.Warn("cleanup completed with failures", zap.Int("failures", failures))
	}

	log.Info("pipeline run complete", zap.Int("periods", len(periods)))
	return nil
}
