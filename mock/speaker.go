package mock

import (
	"context"

	"github.com/fwojciec/hansard"
)

var _ hansard.RosterSource = (*RosterSource)(nil)

// RosterSource is a mock implementation of hansard.RosterSource.
type RosterSource struct {
	FetchSpeakersFn func(ctx context.Context) ([]*hansard.Speaker, error)
}

func (s *RosterSource) FetchSpeakers(ctx context.Context) ([]*hansard.Speaker, error) {
	return s.FetchSpeakersFn(ctx)
}

var _ hansard.SpeakerService = (*SpeakerService)(nil)

// SpeakerService is a mock implementation of hansard.SpeakerService.
type SpeakerService struct {
	ReplaceSpeakersFn func(ctx context.Context, speakers []*hansard.Speaker) error
	FindSpeakerByIDFn func(ctx context.Context, id string) (*hansard.Speaker, error)
	RosterFn          func(ctx context.Context) (hansard.Roster, error)
}

func (s *SpeakerService) ReplaceSpeakers(ctx context.Context, speakers []*hansard.Speaker) error {
	return s.ReplaceSpeakersFn(ctx, speakers)
}

func (s *SpeakerService) FindSpeakerByID(ctx context.Context, id string) (*hansard.Speaker, error) {
	return s.FindSpeakerByIDFn(ctx, id)
}

func (s *SpeakerService) Roster(ctx context.Context) (hansard.Roster, error) {
	return s.RosterFn(ctx)
}
