package mock_test

import (
	"context"
	"testing"

	"github.com/fwojciec/hansard"
	"github.com/fwojciec/hansard/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("delegates to FetchFn", func(t *testing.T) {
		t.Parallel()

		var calledWith string
		f := &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) ([]byte, error) {
				calledWith = url
				return []byte("<hansard/>"), nil
			},
		}

		body, err := f.Fetch(context.Background(), "https://example.com/a")

		require.NoError(t, err)
		assert.Equal(t, "https://example.com/a", calledWith)
		assert.Equal(t, []byte("<hansard/>"), body)
	})
}

func TestRunService_AddNote(t *testing.T) {
	t.Parallel()

	t.Run("delegates to AddNoteFn", func(t *testing.T) {
		t.Parallel()

		var calledWith *hansard.RunNote
		s := &mock.RunService{
			AddNoteFn: func(_ context.Context, note *hansard.RunNote) error {
				calledWith = note
				return nil
			},
		}

		note := &hansard.RunNote{RunID: "r1", DocumentID: 1, Kind: hansard.NoteSkip, Detail: "duplicate"}
		err := s.AddNote(context.Background(), note)

		require.NoError(t, err)
		assert.Equal(t, note, calledWith)
	})
}
