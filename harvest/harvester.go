package harvest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fwojciec/hansard"
)

// Phases selects the pipeline stages of a run.
type Phases struct {
	Discover bool
	Fetch    bool
	Roster   bool
	Extract  bool
}

// AllPhases runs the whole pipeline.
func AllPhases() Phases {
	return Phases{Discover: true, Fetch: true, Roster: true, Extract: true}
}

// Options configures one run.
type Options struct {
	IndexURL string
	Mode     DiscoverMode
	Phases   Phases
}

// Harvester runs the pipeline phases in order and records the run in the
// run log.
type Harvester struct {
	Differ    *Differ
	Scheduler *Scheduler
	Processor *Processor

	// RosterSource feeds the roster refresh. When the refresh fails the
	// stored roster is used as is.
	RosterSource hansard.RosterSource
	Speakers     hansard.SpeakerService

	// NewExtractor builds the extractor for a roster snapshot.
	NewExtractor func(roster hansard.Roster) hansard.Extractor

	Runs   hansard.RunService
	Logger *slog.Logger
}

// Run executes the selected phases. The run is finished with whatever
// report was gathered, even when a phase fails.
func (h *Harvester) Run(ctx context.Context, opts Options) (*hansard.Run, error) {
	run := &hansard.Run{}
	if err := h.Runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	logger := loggerOrDiscard(h.Logger).With("run", run.ID)

	err := h.run(ctx, run, opts, logger)

	// Record the report even if ctx was canceled mid-run.
	if ferr := h.Runs.FinishRun(context.WithoutCancel(ctx), run.ID, run.Report); ferr != nil && err == nil {
		err = fmt.Errorf("finish run: %w", ferr)
	}
	if err != nil {
		logger.Error("run failed", "err", err)
		return run, err
	}
	logger.Info("run complete")
	return run, nil
}

func (h *Harvester) run(ctx context.Context, run *hansard.Run, opts Options, logger *slog.Logger) error {
	if opts.Phases.Discover {
		res, err := h.Differ.Discover(ctx, opts.IndexURL, opts.Mode)
		if err != nil {
			return fmt.Errorf("discover: %w", err)
		}
		run.Report.Discover = *res
	}

	if opts.Phases.Fetch {
		res, err := h.Scheduler.Run(ctx)
		if err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
		run.Report.Fetch = *res
	}

	if opts.Phases.Roster && h.RosterSource != nil {
		if err := h.refreshRoster(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("roster refresh failed; using stored roster", "err", err)
		}
	}

	if opts.Phases.Extract {
		roster, err := h.Speakers.Roster(ctx)
		if err != nil {
			return fmt.Errorf("load roster: %w", err)
		}
		p := *h.Processor
		p.Extractor = h.NewExtractor(roster)
		res, err := p.Run(ctx, run.ID)
		if res != nil {
			run.Report.Extract = *res
		}
		if err != nil {
			return fmt.Errorf("extract: %w", err)
		}
	}
	return nil
}

func (h *Harvester) refreshRoster(ctx context.Context) error {
	speakers, err := h.RosterSource.FetchSpeakers(ctx)
	if err != nil {
		return err
	}
	if len(speakers) == 0 {
		return hansard.Errorf(hansard.EINVALID, "roster feed returned no speakers")
	}
	return h.Speakers.ReplaceSpeakers(ctx, speakers)
}
