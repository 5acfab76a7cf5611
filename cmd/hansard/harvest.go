package main

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/fwojciec/hansard"
	"github.com/fwojciec/hansard/etree"
	"github.com/fwojciec/hansard/goquery"
	"github.com/fwojciec/hansard/harvest"
	hansardhttp "github.com/fwojciec/hansard/http"
	hslog "github.com/fwojciec/hansard/slog"
	"github.com/fwojciec/hansard/yaml"
	"golang.org/x/time/rate"
)

// components collects the flag groups a command uses. Nil groups leave the
// corresponding phase unwired.
type components struct {
	http     *HTTPFlags
	discover *DiscoverFlags
	fetch    *FetchFlags
	roster   *RosterFlags
	extract  *ExtractFlags
}

func (d *Dependencies) harvester(c components) (*harvest.Harvester, error) {
	h := &harvest.Harvester{
		Speakers: d.Speakers,
		Runs:     d.Runs,
		Logger:   d.Logger,
	}

	var client *hansardhttp.Client
	var limiter *rate.Limiter
	if c.http != nil {
		client = newClient(c.http, d)
		limit := rate.Inf
		if c.http.Rate > 0 {
			limit = rate.Limit(c.http.Rate)
		}
		limiter = rate.NewLimiter(limit, 1)
	}

	if c.discover != nil {
		filter, err := compileFilter(c.discover.Include, c.discover.Exclude)
		if err != nil {
			return nil, err
		}
		h.Differ = &harvest.Differ{
			Sitemaps:     hslog.NewLoggingSitemapService(hansardhttp.NewSitemapService(client), d.Logger),
			Documents:    d.Documents,
			Filter:       filter,
			ReverseIndex: c.discover.Reverse,
			Limiter:      limiter,
			Logger:       d.Logger,
		}
	}

	if c.fetch != nil {
		h.Scheduler = &harvest.Scheduler{
			Documents: d.Documents,
			Fetcher:   hslog.NewLoggingFetcher(hansardhttp.NewFetcher(client), d.Logger),
			Limiter:   limiter,
			Logger:    d.Logger,
		}
		if c.fetch.Resolve {
			h.Scheduler.Resolver = goquery.NewTranscriptResolver()
		}
	}

	if c.roster != nil {
		h.RosterSource = hslog.NewLoggingRosterSource(
			hansardhttp.NewRosterClient(client, c.roster.RosterURL, 0), d.Logger)
	}

	if c.extract != nil {
		overrides, err := loadOverrides(c.extract.Overrides)
		if err != nil {
			return nil, err
		}
		h.Processor = &harvest.Processor{
			Documents:   d.Documents,
			Proceedings: d.Proceedings,
			Runs:        d.Runs,
			Workers:     c.extract.Workers,
			Logger:      d.Logger,
		}
		h.NewExtractor = func(r hansard.Roster) hansard.Extractor {
			return hslog.NewLoggingExtractor(etree.NewExtractor(r, overrides), d.Logger)
		}
	}
	return h, nil
}

func newClient(f *HTTPFlags, d *Dependencies) *hansardhttp.Client {
	policy := hansardhttp.DefaultRetryPolicy()
	policy.MaxRetries = f.Retries
	policy.BaseDelay = f.RetryDelay
	return hansardhttp.NewClient(hansardhttp.Config{
		UserAgent:     f.UserAgent,
		Retry:         policy,
		RespectRobots: f.Robots,
	}, d.Logger)
}

func compileFilter(include, exclude []string) (*hansard.URLFilter, error) {
	filter := &hansard.URLFilter{}
	for _, p := range include {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", p, err)
		}
		filter.Include = append(filter.Include, re)
	}
	for _, p := range exclude {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		filter.Exclude = append(filter.Exclude, re)
	}
	return filter, nil
}

func loadOverrides(path string) (hansard.OverrideTable, error) {
	if path == "" {
		return yaml.DefaultOverrides(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open overrides: %w", err)
	}
	defer f.Close()
	return yaml.LoadOverrides(f)
}

func discoverMode(full bool) harvest.DiscoverMode {
	if full {
		return harvest.DiscoverFull
	}
	return harvest.DiscoverIncremental
}

// runPhases executes one logged run and prints its report.
func (d *Dependencies) runPhases(c components, opts harvest.Options) error {
	h, err := d.harvester(c)
	if err != nil {
		fmt.Fprintf(d.Stderr, "error: %s\n", err)
		return err
	}
	run, err := h.Run(d.Ctx, opts)
	if run != nil {
		printRun(d.Stdout, run, opts.Phases)
	}
	if err != nil {
		fmt.Fprintf(d.Stderr, "error: %s\n", hansard.ErrorMessage(err))
		return err
	}
	return nil
}

// Run executes the discover command.
func (c *DiscoverCmd) Run(deps *Dependencies) error {
	return deps.runPhases(
		components{http: &c.HTTPFlags, discover: &c.DiscoverFlags},
		harvest.Options{IndexURL: c.Index, Mode: discoverMode(c.Full), Phases: harvest.Phases{Discover: true}},
	)
}

// Run executes the fetch command.
func (c *FetchCmd) Run(deps *Dependencies) error {
	return deps.runPhases(
		components{http: &c.HTTPFlags, fetch: &c.FetchFlags},
		harvest.Options{Phases: harvest.Phases{Fetch: true}},
	)
}

// Run executes the roster command.
func (c *RosterCmd) Run(deps *Dependencies) error {
	source := hansardhttp.NewRosterClient(newClient(&c.HTTPFlags, deps), c.RosterURL, 0)
	speakers, err := hslog.NewLoggingRosterSource(source, deps.Logger).FetchSpeakers(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", hansard.ErrorMessage(err))
		return err
	}
	if err := deps.Speakers.ReplaceSpeakers(deps.Ctx, speakers); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", hansard.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Stored %d speakers\n", len(speakers))
	return nil
}

// Run executes the extract command.
func (c *ExtractCmd) Run(deps *Dependencies) error {
	if c.Rebuild {
		n, err := deps.Documents.ResetProcessed(deps.Ctx)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", hansard.ErrorMessage(err))
			return err
		}
		fmt.Fprintf(deps.Stdout, "Reset %d documents\n", n)
	}
	return deps.runPhases(
		components{extract: &c.ExtractFlags},
		harvest.Options{Phases: harvest.Phases{Extract: true}},
	)
}

// Run executes the run command.
func (c *RunCmd) Run(deps *Dependencies) error {
	return deps.runPhases(
		components{
			http:     &c.HTTPFlags,
			discover: &c.DiscoverFlags,
			fetch:    &c.FetchFlags,
			roster:   &c.RosterFlags,
			extract:  &c.ExtractFlags,
		},
		harvest.Options{IndexURL: c.Index, Mode: discoverMode(c.Full), Phases: harvest.AllPhases()},
	)
}

func printRun(w io.Writer, run *hansard.Run, phases harvest.Phases) {
	fmt.Fprintf(w, "Run %s\n", run.ID)
	r := run.Report
	if phases.Discover {
		fmt.Fprintf(w, "  discover: seen=%d new=%d updated=%d deleted=%d sitemaps=%d truncated=%t\n",
			r.Discover.Seen, r.Discover.New, r.Discover.Updated, r.Discover.Deleted, r.Discover.SubIndexes, r.Discover.Truncated)
	}
	if phases.Fetch {
		fmt.Fprintf(w, "  fetch: fetched=%d skipped=%d passes=%d no-transcript=%d\n",
			r.Fetch.Fetched, r.Fetch.Skipped, r.Fetch.Passes, r.Fetch.NoTranscript)
	}
	if phases.Extract {
		fmt.Fprintf(w, "  extract: succeeded=%d failed=%d skipped=%d discarded=%d\n",
			r.Extract.Succeeded, r.Extract.Failed, r.Extract.Skipped, r.Extract.Discarded)
	}
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "  finished: %s (%s)\n", run.FinishedAt.Format(time.RFC3339), run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
}
