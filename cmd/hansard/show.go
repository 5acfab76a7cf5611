package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fwojciec/hansard"
	"github.com/fwojciec/hansard/harvest"
)

// Run executes the show command.
func (c *ShowCmd) Run(deps *Dependencies) error {
	doc, err := c.find(deps)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", hansard.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Document %d  %s\n", doc.ID, doc.URL)
	fmt.Fprintf(deps.Stdout, "  key: %s\n", doc.Key())
	fmt.Fprintf(deps.Stdout, "  last modified: %s\n", doc.LastModified.Format("2006-01-02 15:04:05"))
	if doc.FetchedAt != nil {
		fmt.Fprintf(deps.Stdout, "  fetched: %s\n", doc.FetchedAt.Format("2006-01-02 15:04:05"))
	}
	if doc.NoTranscript {
		fmt.Fprintln(deps.Stdout, "  no transcript published")
		return nil
	}
	if doc.ProcessedAt == nil {
		fmt.Fprintln(deps.Stdout, "  not processed")
		return nil
	}
	fmt.Fprintf(deps.Stdout, "  processed: %s\n", doc.ProcessedAt.Format("2006-01-02 15:04:05"))

	debates, err := deps.Proceedings.FindDebates(deps.Ctx, doc.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", hansard.ErrorMessage(err))
		return err
	}
	speeches, err := deps.Proceedings.FindSpeeches(deps.Ctx, doc.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", hansard.ErrorMessage(err))
		return err
	}

	byDebate := make(map[int64][]*hansard.Speech)
	for _, s := range speeches {
		byDebate[s.DebateID] = append(byDebate[s.DebateID], s)
	}

	for _, d := range debates {
		fmt.Fprintf(deps.Stdout, "\n%s  %s  %s\n", d.Date, d.House, debateTitle(d))
		for _, s := range byDebate[d.ID] {
			fmt.Fprintf(deps.Stdout, "  #%d %s  speakers=%s interjectors=%s turns=%d\n",
				s.Ordinal, s.Type, strings.Join(s.Speakers, ","), strings.Join(s.Interjectors, ","), len(s.Turns))
			if !c.Turns {
				continue
			}
			for _, t := range s.Turns {
				who := t.SpeakerID
				if who == "" {
					who = "?"
				}
				if t.Interjection {
					who += " (interjection)"
				}
				fmt.Fprintf(deps.Stdout, "    %s: %s\n", who, t.Text)
			}
		}
	}
	return nil
}

func (c *ShowCmd) find(deps *Dependencies) (*hansard.Document, error) {
	if id, err := strconv.ParseInt(c.Document, 10, 64); err == nil {
		return deps.Documents.FindDocumentByID(deps.Ctx, id)
	}
	return deps.Documents.FindDocumentByURL(deps.Ctx, c.Document)
}

func debateTitle(d *hansard.Debate) string {
	parts := []string{d.Title}
	for _, s := range []string{d.Subdebate1, d.Subdebate2} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " / ")
}

// Run executes the report command.
func (c *ReportCmd) Run(deps *Dependencies) error {
	run, err := deps.Runs.FindRunByID(deps.Ctx, c.RunID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", hansard.ErrorMessage(err))
		return err
	}
	printRun(deps.Stdout, run, harvest.AllPhases())

	if !c.Notes {
		return nil
	}
	notes, err := deps.Runs.FindNotes(deps.Ctx, run.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", hansard.ErrorMessage(err))
		return err
	}
	for _, n := range notes {
		fmt.Fprintf(deps.Stdout, "  [%s] document %d: %s\n", n.Kind, n.DocumentID, n.Detail)
	}
	return nil
}
