package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/hansard"
	"github.com/fwojciec/hansard/sqlite"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx         context.Context
	Stdout      io.Writer
	Stderr      io.Writer
	Logger      *slog.Logger
	DB          *sqlite.DB
	Documents   hansard.DocumentService
	Proceedings hansard.ProceedingService
	Speakers    hansard.SpeakerService
	Runs        hansard.RunService
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	DB      string `name:"db" env:"HANSARD_DB" help:"Database path (default ~/.hansard/hansard.db)"`
	Verbose bool   `short:"v" help:"Log progress to stderr"`

	Discover DiscoverCmd `cmd:"" help:"Record remote freshness from the sitemap index"`
	Fetch    FetchCmd    `cmd:"" help:"Download stale transcripts"`
	Roster   RosterCmd   `cmd:"" help:"Refresh the speaker roster"`
	Extract  ExtractCmd  `cmd:"" help:"Normalize fetched transcripts"`
	Run      RunCmd      `cmd:"" help:"Discover, fetch, refresh the roster and extract"`
	Show     ShowCmd     `cmd:"" help:"Show the debates and speeches of a document"`
	Report   ReportCmd   `cmd:"" help:"Show a run report and its notes"`
}

// HTTPFlags configure the shared HTTP client.
type HTTPFlags struct {
	UserAgent  string        `name:"user-agent" env:"HANSARD_USER_AGENT" help:"User-Agent header"`
	Rate       float64       `default:"4" help:"Requests per second (0 = unlimited)"`
	Retries    int           `default:"5" help:"Retries of transient failures"`
	RetryDelay time.Duration `name:"retry-delay" default:"1s" help:"Delay before the first retry; doubles per retry"`
	Robots     bool          `default:"true" negatable:"" help:"Respect robots.txt"`
}

// DiscoverFlags configure sitemap discovery.
type DiscoverFlags struct {
	Index   string   `default:"https://parlinfo.aph.gov.au/sitemap/sitemapindex.xml" env:"HANSARD_INDEX" help:"Sitemap index URL"`
	Full    bool     `help:"Walk the whole index and remove documents it no longer lists"`
	Include []string `default:"hansard" help:"Track URLs matching regex (repeatable)"`
	Exclude []string `help:"Ignore URLs matching regex (repeatable)"`
	Reverse bool     `default:"true" negatable:"" help:"Walk index entries in reverse of their listed order"`
}

// FetchFlags configure the fetch phase.
type FetchFlags struct {
	Resolve bool `default:"true" negatable:"" help:"Treat document URLs as landing pages and fetch the linked XML transcript"`
}

// RosterFlags configure the roster feed.
type RosterFlags struct {
	RosterURL string `name:"roster-url" default:"https://handbookapi.aph.gov.au/api/individuals" env:"HANSARD_ROSTER_URL" help:"Roster feed URL"`
}

// ExtractFlags configure the extraction phase.
type ExtractFlags struct {
	Workers   int    `default:"0" help:"Extraction workers (0 = one per CPU)"`
	Overrides string `type:"existingfile" env:"HANSARD_OVERRIDES" help:"Override table YAML (default: built-in table)"`
}

// DiscoverCmd is the "discover" subcommand.
type DiscoverCmd struct {
	HTTPFlags
	DiscoverFlags
}

// FetchCmd is the "fetch" subcommand.
type FetchCmd struct {
	HTTPFlags
	FetchFlags
}

// RosterCmd is the "roster" subcommand.
type RosterCmd struct {
	HTTPFlags
	RosterFlags
}

// ExtractCmd is the "extract" subcommand.
type ExtractCmd struct {
	ExtractFlags
	Rebuild bool `help:"Re-extract every fetched document"`
}

// RunCmd is the "run" subcommand.
type RunCmd struct {
	HTTPFlags
	DiscoverFlags
	FetchFlags
	RosterFlags
	ExtractFlags
}

// ShowCmd is the "show" subcommand.
type ShowCmd struct {
	Document string `arg:"" help:"Document ID or URL"`
	Turns    bool   `help:"Print turn text"`
}

// ReportCmd is the "report" subcommand.
type ReportCmd struct {
	RunID string `arg:"" name:"run-id" help:"Run ID"`
	Notes bool   `default:"true" negatable:"" help:"Print run notes"`
}
