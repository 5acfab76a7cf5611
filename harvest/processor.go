package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/fwojciec/hansard"
	"golang.org/x/sync/errgroup"
)

// DefaultQueueSize bounds the extracted results waiting for the committer.
const DefaultQueueSize = 1000

// Processor extracts fetched documents into the normalized store.
//
// One reader loads payloads in ledger order and hands them to a bounded pool
// of extraction workers. Results flow to a single committer, so no two
// transactions ever race for the store.
type Processor struct {
	Documents   hansard.DocumentService
	Proceedings hansard.ProceedingService
	Extractor   hansard.Extractor

	// Runs receives per-document notes when a run ID is given. Optional.
	Runs hansard.RunService

	// Workers defaults to runtime.NumCPU when zero.
	Workers int

	// QueueSize defaults to DefaultQueueSize when zero.
	QueueSize int

	Logger *slog.Logger

	// Now returns the process time stamped on documents. Defaults to time.Now.
	Now func() time.Time
}

// outcome is the extraction result of one document.
type outcome struct {
	doc *hansard.Document
	ext *hansard.Extraction
	err error
}

// Run extracts every document ready for extraction. Structural failures are
// counted and noted, leaving the document unprocessed for a later run. An
// invariant violation or store failure aborts the phase after in-flight
// results are drained.
func (p *Processor) Run(ctx context.Context, runID string) (*hansard.ExtractResult, error) {
	docs, err := p.Documents.ListReadyForExtraction(ctx)
	if err != nil {
		return nil, err
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	queueSize := p.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}

	results := make(chan outcome, queueSize)
	stop := make(chan struct{})

	go func() {
		var g errgroup.Group
		g.SetLimit(workers)
		defer close(results)
		defer func() { _ = g.Wait() }()

		for _, doc := range docs {
			select {
			case <-stop:
				return
			default:
			}
			if ctx.Err() != nil {
				return
			}

			payload, err := p.Documents.FindPayload(ctx, doc.ID)
			if err != nil {
				results <- outcome{doc: doc, err: err}
				continue
			}

			doc := doc
			g.Go(func() error {
				ext, err := p.Extractor.Extract(doc, payload)
				results <- outcome{doc: doc, ext: ext, err: err}
				return nil
			})
		}
	}()

	result := &hansard.ExtractResult{}
	var fatal error
	for o := range results {
		if fatal != nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			fatal = err
			close(stop)
			continue
		}
		if err := p.commit(ctx, runID, o, now().UTC(), result); err != nil {
			fatal = err
			close(stop)
		}
	}
	if fatal == nil {
		fatal = ctx.Err()
	}
	if fatal != nil {
		return result, fatal
	}

	p.logger().Info("extraction complete",
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"discarded", result.Discarded,
	)
	return result, nil
}

// commit stores one outcome. It returns an error only when the phase must
// abort.
func (p *Processor) commit(ctx context.Context, runID string, o outcome, processedAt time.Time, result *hansard.ExtractResult) error {
	if o.err != nil {
		if hansard.ErrorCode(o.err) == hansard.EINVARIANT {
			return fmt.Errorf("extract %s: %w", o.doc.URL, o.err)
		}
		return p.fail(ctx, runID, o.doc, o.err, result)
	}

	if err := p.Proceedings.ReplaceDocument(ctx, o.ext, processedAt); err != nil {
		switch hansard.ErrorCode(err) {
		case hansard.ECONFLICT, hansard.ENOTFOUND, hansard.EINVALID:
			return p.fail(ctx, runID, o.doc, err, result)
		}
		return fmt.Errorf("commit %s: %w", o.doc.URL, err)
	}

	if o.ext.Skip != "" {
		result.Skipped++
		p.logger().Info("skipped by override", "url", o.doc.URL, "reason", o.ext.Skip)
		return p.note(ctx, runID, o.doc.ID, hansard.NoteSkip, o.ext.Skip)
	}

	result.Succeeded++
	result.Discarded += len(o.ext.Discards)
	for _, d := range o.ext.Discards {
		detail := fmt.Sprintf("ordinal %d <%s> %s in ordinal %d", d.Ordinal, d.Tag, d.Reason, d.Enclosing)
		if err := p.note(ctx, runID, o.doc.ID, hansard.NoteDiscard, detail); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) fail(ctx context.Context, runID string, doc *hansard.Document, cause error, result *hansard.ExtractResult) error {
	result.Failed++
	p.logger().Warn("extraction failed", "url", doc.URL, "code", hansard.ErrorCode(cause), "err", cause)
	return p.note(ctx, runID, doc.ID, hansard.NoteFailure, fmt.Sprintf("%s: %s", hansard.ErrorCode(cause), cause))
}

func (p *Processor) note(ctx context.Context, runID string, documentID int64, kind hansard.NoteKind, detail string) error {
	if p.Runs == nil || runID == "" {
		return nil
	}
	return p.Runs.AddNote(ctx, &hansard.RunNote{
		RunID:      runID,
		DocumentID: documentID,
		Kind:       kind,
		Detail:     detail,
	})
}

func (p *Processor) logger() *slog.Logger {
	return loggerOrDiscard(p.Logger)
}
