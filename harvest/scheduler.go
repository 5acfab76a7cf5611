package harvest

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/hansard"
	"golang.org/x/time/rate"
)

// DefaultFetchRate is the aggregate request rate of the fetch phase.
const DefaultFetchRate = rate.Limit(4)

// Scheduler retrieves the payloads of stale documents.
//
// Requests are paced by one aggregate limiter. Retrying transient failures
// is the Fetcher's job; a document the Fetcher gives up on is left stale for
// the next pass or run.
type Scheduler struct {
	Documents hansard.DocumentService
	Fetcher   hansard.Fetcher

	// Resolver, when set, treats each document URL as a landing page and
	// stores the transcript it links to instead. A landing page without a
	// transcript link is stored with SaveLandingPage, which takes the
	// document out of both queues until the remote copy changes.
	Resolver hansard.TranscriptResolver

	// Limiter is waited on before every request. Nil uses DefaultFetchRate.
	Limiter *rate.Limiter

	Logger *slog.Logger

	// Now returns the fetch time stamped on payloads. Defaults to time.Now.
	Now func() time.Time
}

// Run fetches stale documents in passes until none remain or a pass makes
// no progress.
func (s *Scheduler) Run(ctx context.Context) (*hansard.FetchResult, error) {
	limiter := s.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(DefaultFetchRate, 1)
	}
	now := s.Now
	if now == nil {
		now = time.Now
	}

	result := &hansard.FetchResult{}
	for {
		stale, err := s.Documents.ListStaleForFetch(ctx)
		if err != nil {
			return nil, err
		}
		if len(stale) == 0 {
			result.Skipped = 0
			break
		}
		result.Passes++

		fetched := 0
		for _, doc := range stale {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			payload, linked, err := s.fetch(ctx, limiter, doc.URL)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				s.logger().Warn("leaving document stale", "url", doc.URL, "err", err)
				continue
			}

			save := s.Documents.SavePayload
			if !linked {
				s.logger().Warn("no transcript published; storing landing page", "url", doc.URL)
				save = s.Documents.SaveLandingPage
				result.NoTranscript++
			}
			if err := save(ctx, doc.URL, payload, now().UTC()); err != nil {
				if hansard.ErrorCode(err) == hansard.ENOTFOUND {
					s.logger().Warn("document removed during fetch", "url", doc.URL)
					continue
				}
				return nil, err
			}
			fetched++
		}

		result.Fetched += fetched
		result.Skipped = len(stale) - fetched
		s.logger().Info("fetch pass complete", "pass", result.Passes, "fetched", fetched, "stale", result.Skipped)
		if fetched == 0 {
			break
		}
	}
	return result, nil
}

// fetch returns the payload to store for url. linked is false when url is
// a landing page that links to no transcript.
func (s *Scheduler) fetch(ctx context.Context, limiter *rate.Limiter, url string) (payload []byte, linked bool, err error) {
	if err := limiter.Wait(ctx); err != nil {
		return nil, false, err
	}
	page, err := s.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, false, err
	}
	if s.Resolver == nil {
		return page, true, nil
	}

	transcriptURL, err := s.Resolver.ResolveTranscript(page, url)
	if hansard.ErrorCode(err) == hansard.ENOTFOUND {
		return page, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if err := limiter.Wait(ctx); err != nil {
		return nil, false, err
	}
	payload, err = s.Fetcher.Fetch(ctx, transcriptURL)
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (s *Scheduler) logger() *slog.Logger {
	return loggerOrDiscard(s.Logger)
}
