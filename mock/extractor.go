package mock

import (
	"context"
	"time"

	"github.com/fwojciec/hansard"
)

var _ hansard.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of hansard.Extractor.
type Extractor struct {
	ExtractFn func(doc *hansard.Document, payload []byte) (*hansard.Extraction, error)
}

func (e *Extractor) Extract(doc *hansard.Document, payload []byte) (*hansard.Extraction, error) {
	return e.ExtractFn(doc, payload)
}

var _ hansard.ProceedingService = (*ProceedingService)(nil)

// ProceedingService is a mock implementation of hansard.ProceedingService.
type ProceedingService struct {
	ReplaceDocumentFn func(ctx context.Context, ext *hansard.Extraction, processedAt time.Time) error
	FindDebatesFn     func(ctx context.Context, documentID int64) ([]*hansard.Debate, error)
	FindSpeechesFn    func(ctx context.Context, documentID int64) ([]*hansard.Speech, error)
}

func (s *ProceedingService) ReplaceDocument(ctx context.Context, ext *hansard.Extraction, processedAt time.Time) error {
	return s.ReplaceDocumentFn(ctx, ext, processedAt)
}

func (s *ProceedingService) FindDebates(ctx context.Context, documentID int64) ([]*hansard.Debate, error) {
	return s.FindDebatesFn(ctx, documentID)
}

func (s *ProceedingService) FindSpeeches(ctx context.Context, documentID int64) ([]*hansard.Speech, error) {
	return s.FindSpeechesFn(ctx, documentID)
}
