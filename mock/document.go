package mock

import (
	"context"
	"time"

	"github.com/fwojciec/hansard"
)

var _ hansard.DocumentService = (*DocumentService)(nil)

// DocumentService is a mock implementation of hansard.DocumentService.
type DocumentService struct {
	UpsertFreshnessFn        func(ctx context.Context, url string, lastModified time.Time) (hansard.FreshnessChange, error)
	ListStaleForFetchFn      func(ctx context.Context) ([]*hansard.Document, error)
	SavePayloadFn            func(ctx context.Context, url string, payload []byte, fetchedAt time.Time) error
	SaveLandingPageFn        func(ctx context.Context, url string, page []byte, fetchedAt time.Time) error
	FindPayloadFn            func(ctx context.Context, id int64) ([]byte, error)
	ListReadyForExtractionFn func(ctx context.Context) ([]*hansard.Document, error)
	MarkProcessedFn          func(ctx context.Context, id int64, processedAt time.Time) error
	DeleteNotInFn            func(ctx context.Context, activeKeys []string) (int, error)
	FindDocumentByIDFn       func(ctx context.Context, id int64) (*hansard.Document, error)
	FindDocumentByURLFn      func(ctx context.Context, url string) (*hansard.Document, error)
	CheckpointFn             func(ctx context.Context) (time.Time, error)
	SetCheckpointFn          func(ctx context.Context, t time.Time) error
	ResetProcessedFn         func(ctx context.Context) (int, error)
}

func (s *DocumentService) UpsertFreshness(ctx context.Context, url string, lastModified time.Time) (hansard.FreshnessChange, error) {
	return s.UpsertFreshnessFn(ctx, url, lastModified)
}

func (s *DocumentService) ListStaleForFetch(ctx context.Context) ([]*hansard.Document, error) {
	return s.ListStaleForFetchFn(ctx)
}

func (s *DocumentService) SavePayload(ctx context.Context, url string, payload []byte, fetchedAt time.Time) error {
	return s.SavePayloadFn(ctx, url, payload, fetchedAt)
}

func (s *DocumentService) SaveLandingPage(ctx context.Context, url string, page []byte, fetchedAt time.Time) error {
	return s.SaveLandingPageFn(ctx, url, page, fetchedAt)
}

func (s *DocumentService) FindPayload(ctx context.Context, id int64) ([]byte, error) {
	return s.FindPayloadFn(ctx, id)
}

func (s *DocumentService) ListReadyForExtraction(ctx context.Context) ([]*hansard.Document, error) {
	return s.ListReadyForExtractionFn(ctx)
}

func (s *DocumentService) MarkProcessed(ctx context.Context, id int64, processedAt time.Time) error {
	return s.MarkProcessedFn(ctx, id, processedAt)
}

func (s *DocumentService) DeleteNotIn(ctx context.Context, activeKeys []string) (int, error) {
	return s.DeleteNotInFn(ctx, activeKeys)
}

func (s *DocumentService) FindDocumentByID(ctx context.Context, id int64) (*hansard.Document, error) {
	return s.FindDocumentByIDFn(ctx, id)
}

func (s *DocumentService) FindDocumentByURL(ctx context.Context, url string) (*hansard.Document, error) {
	return s.FindDocumentByURLFn(ctx, url)
}

func (s *DocumentService) Checkpoint(ctx context.Context) (time.Time, error) {
	return s.CheckpointFn(ctx)
}

func (s *DocumentService) SetCheckpoint(ctx context.Context, t time.Time) error {
	return s.SetCheckpointFn(ctx, t)
}

func (s *DocumentService) ResetProcessed(ctx context.Context) (int, error) {
	return s.ResetProcessedFn(ctx)
}
