package mock

import (
	"context"

	"github.com/fwojciec/hansard"
)

var _ hansard.RunService = (*RunService)(nil)

// RunService is a mock implementation of hansard.RunService.
type RunService struct {
	CreateRunFn   func(ctx context.Context, run *hansard.Run) error
	FindRunByIDFn func(ctx context.Context, id string) (*hansard.Run, error)
	FinishRunFn   func(ctx context.Context, id string, report hansard.RunReport) error
	AddNoteFn     func(ctx context.Context, note *hansard.RunNote) error
	FindNotesFn   func(ctx context.Context, runID string) ([]*hansard.RunNote, error)
}

func (s *RunService) CreateRun(ctx context.Context, run *hansard.Run) error {
	return s.CreateRunFn(ctx, run)
}

func (s *RunService) FindRunByID(ctx context.Context, id string) (*hansard.Run, error) {
	return s.FindRunByIDFn(ctx, id)
}

func (s *RunService) FinishRun(ctx context.Context, id string, report hansard.RunReport) error {
	return s.FinishRunFn(ctx, id, report)
}

func (s *RunService) AddNote(ctx context.Context, note *hansard.RunNote) error {
	return s.AddNoteFn(ctx, note)
}

func (s *RunService) FindNotes(ctx context.Context, runID string) ([]*hansard.RunNote, error) {
	return s.FindNotesFn(ctx, runID)
}
