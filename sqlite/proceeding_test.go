package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/hansard"
	"github.com/fwojciec/hansard/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fetchedDocument tracks a URL and stores a payload for it.
func fetchedDocument(t *testing.T, db *sqlite.DB, url string) *hansard.Document {
	t.Helper()
	lm := ts(t, "2024-01-01T00:00:00Z")
	doc := trackDocument(t, db, url, lm)
	require.NoError(t, sqlite.NewDocumentService(db).SavePayload(context.Background(), url, []byte("<hansard/>"), lm))
	return doc
}

func seedSpeakers(t *testing.T, db *sqlite.DB, ids ...string) {
	t.Helper()
	speakers := make([]*hansard.Speaker, 0, len(ids))
	for _, id := range ids {
		speakers = append(speakers, &hansard.Speaker{ID: id, DisplayName: "Member " + id})
	}
	require.NoError(t, sqlite.NewSpeakerService(db).ReplaceSpeakers(context.Background(), speakers))
}

// sampleExtraction returns one debate with two speeches dated date.
func sampleExtraction(documentID int64, date string) *hansard.Extraction {
	debate := &hansard.Debate{Date: date, House: "Senate", Title: "BILLS", Subdebate1: "Second Reading"}
	key := debate.Key()
	return &hansard.Extraction{
		DocumentID: documentID,
		Date:       date,
		House:      "Senate",
		Debates:    []*hansard.Debate{debate},
		Speeches: []*hansard.Speech{
			{
				Debate: key, Date: date, House: "Senate", Ordinal: 0,
				Type: hansard.SpeechTypeSpeech, Content: "I move that the bill be read.",
				ContentHash: "abc", Speakers: []string{"aaa"}, Interjectors: []string{"bbb", "zzz"},
				Turns: []hansard.Turn{
					{Sequence: 0, SpeakerID: "aaa", Text: "I move that the bill be read."},
					{Sequence: 1, SpeakerID: "bbb", Interjection: true, Text: "Hear, hear!"},
				},
			},
			{
				Debate: key, Date: date, House: "Senate", Ordinal: 2,
				Type: hansard.SpeechTypeQuestion, Content: "My question is to the minister.",
				ContentHash: "def", Speakers: []string{"bbb"}, Interjectors: []string{},
				Turns: []hansard.Turn{{Sequence: 0, SpeakerID: "bbb", Text: "My question is to the minister."}},
			},
		},
	}
}

func countRows(t *testing.T, db *sqlite.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestProceedingService_ReplaceDocument(t *testing.T) {
	t.Parallel()

	t.Run("stores debates speeches turns and resolved attributions", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		seedSpeakers(t, db, "aaa", "bbb")
		doc := fetchedDocument(t, db, "https://example.com/a")
		svc := sqlite.NewProceedingService(db)
		ctx := context.Background()
		processedAt := ts(t, "2024-01-03T00:00:00Z")

		ext := sampleExtraction(doc.ID, "2024-01-01")
		require.NoError(t, svc.ReplaceDocument(ctx, ext, processedAt))
		assert.NotZero(t, ext.Debates[0].ID)
		assert.NotZero(t, ext.Speeches[0].ID)

		debates, err := svc.FindDebates(ctx, doc.ID)
		require.NoError(t, err)
		require.Len(t, debates, 1)
		assert.Equal(t, "BILLS", debates[0].Title)
		assert.Equal(t, "Second Reading", debates[0].Subdebate1)
		assert.Equal(t, "", debates[0].Subdebate2)

		speeches, err := svc.FindSpeeches(ctx, doc.ID)
		require.NoError(t, err)
		require.Len(t, speeches, 2)

		first := speeches[0]
		assert.Equal(t, 0, first.Ordinal)
		assert.Equal(t, hansard.SpeechTypeSpeech, first.Type)
		assert.Equal(t, debates[0].ID, first.DebateID)
		assert.Equal(t, debates[0].Key(), first.Debate)
		assert.Equal(t, []string{"aaa"}, first.Speakers)
		// "zzz" is not on the roster.
		assert.Equal(t, []string{"bbb"}, first.Interjectors)
		require.Len(t, first.Turns, 2)
		assert.True(t, first.Turns[1].Interjection)
		assert.Equal(t, "Hear, hear!", first.Turns[1].Text)

		assert.Equal(t, 2, speeches[1].Ordinal)
		assert.Equal(t, hansard.SpeechTypeQuestion, speeches[1].Type)
		assert.Empty(t, speeches[1].Interjectors)

		stored, err := sqlite.NewDocumentService(db).FindDocumentByID(ctx, doc.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.ProcessedAt)
		assert.True(t, stored.ProcessedAt.Equal(processedAt))
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		seedSpeakers(t, db, "aaa", "bbb")
		doc := fetchedDocument(t, db, "https://example.com/a")
		svc := sqlite.NewProceedingService(db)
		ctx := context.Background()

		require.NoError(t, svc.ReplaceDocument(ctx, sampleExtraction(doc.ID, "2024-01-01"), time.Now()))
		first, err := svc.FindSpeeches(ctx, doc.ID)
		require.NoError(t, err)

		require.NoError(t, svc.ReplaceDocument(ctx, sampleExtraction(doc.ID, "2024-01-01"), time.Now()))
		second, err := svc.FindSpeeches(ctx, doc.ID)
		require.NoError(t, err)

		require.Len(t, second, len(first))
		for i := range first {
			assert.Equal(t, first[i].Ordinal, second[i].Ordinal)
			assert.Equal(t, first[i].Content, second[i].Content)
			assert.Equal(t, first[i].Speakers, second[i].Speakers)
			assert.Equal(t, first[i].Interjectors, second[i].Interjectors)
			assert.Equal(t, first[i].Turns, second[i].Turns)
		}
		assert.Equal(t, 1, countRows(t, db, "debates"))
		assert.Equal(t, 2, countRows(t, db, "speeches"))
		assert.Equal(t, 3, countRows(t, db, "turns"))
	})

	t.Run("leaves other documents untouched", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		seedSpeakers(t, db, "aaa", "bbb")
		a := fetchedDocument(t, db, "https://example.com/a")
		b := fetchedDocument(t, db, "https://example.com/b")
		svc := sqlite.NewProceedingService(db)
		ctx := context.Background()

		require.NoError(t, svc.ReplaceDocument(ctx, sampleExtraction(a.ID, "2024-01-01"), time.Now()))
		require.NoError(t, svc.ReplaceDocument(ctx, sampleExtraction(b.ID, "2024-01-02"), time.Now()))

		before, err := svc.FindSpeeches(ctx, b.ID)
		require.NoError(t, err)

		require.NoError(t, svc.ReplaceDocument(ctx, sampleExtraction(a.ID, "2024-01-01"), time.Now()))

		after, err := svc.FindSpeeches(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("returns ECONFLICT for debate owned by another document", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		a := fetchedDocument(t, db, "https://example.com/a")
		b := fetchedDocument(t, db, "https://example.com/b")
		svc := sqlite.NewProceedingService(db)
		ctx := context.Background()

		require.NoError(t, svc.ReplaceDocument(ctx, sampleExtraction(a.ID, "2024-01-01"), time.Now()))

		err := svc.ReplaceDocument(ctx, sampleExtraction(b.ID, "2024-01-01"), time.Now())
		assert.Equal(t, hansard.ECONFLICT, hansard.ErrorCode(err))

		// The failed document stays unprocessed with no rows.
		debates, err := svc.FindDebates(ctx, b.ID)
		require.NoError(t, err)
		assert.Empty(t, debates)
		stored, err := sqlite.NewDocumentService(db).FindDocumentByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.ProcessedAt)
	})

	t.Run("returns ECONFLICT for speech ordinal owned by another document", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		a := fetchedDocument(t, db, "https://example.com/a")
		b := fetchedDocument(t, db, "https://example.com/b")
		svc := sqlite.NewProceedingService(db)
		ctx := context.Background()

		require.NoError(t, svc.ReplaceDocument(ctx, sampleExtraction(a.ID, "2024-01-01"), time.Now()))

		ext := sampleExtraction(b.ID, "2024-01-01")
		ext.Debates[0].Title = "PETITIONS"
		for _, sp := range ext.Speeches {
			sp.Debate = ext.Debates[0].Key()
		}

		err := svc.ReplaceDocument(ctx, ext, time.Now())
		assert.Equal(t, hansard.ECONFLICT, hansard.ErrorCode(err))
		assert.Equal(t, 1, countRows(t, db, "debates"))
	})

	t.Run("rolls back on failure leaving previous rows", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		doc := fetchedDocument(t, db, "https://example.com/a")
		svc := sqlite.NewProceedingService(db)
		ctx := context.Background()

		require.NoError(t, svc.ReplaceDocument(ctx, sampleExtraction(doc.ID, "2024-01-01"), time.Now()))

		bad := sampleExtraction(doc.ID, "2024-01-01")
		bad.Speeches[1].Debate = hansard.DebateKey{Title: "missing"}

		err := svc.ReplaceDocument(ctx, bad, time.Now())
		assert.Equal(t, hansard.EINVALID, hansard.ErrorCode(err))
		assert.Equal(t, 2, countRows(t, db, "speeches"))
	})

	t.Run("skipped extraction clears rows and marks processed", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		doc := fetchedDocument(t, db, "https://example.com/a")
		svc := sqlite.NewProceedingService(db)
		ctx := context.Background()

		require.NoError(t, svc.ReplaceDocument(ctx, sampleExtraction(doc.ID, "2024-01-01"), time.Now()))
		require.NoError(t, svc.ReplaceDocument(ctx, &hansard.Extraction{DocumentID: doc.ID, Skip: "duplicate"}, time.Now()))

		assert.Equal(t, 0, countRows(t, db, "debates"))
		assert.Equal(t, 0, countRows(t, db, "speeches"))
		stored, err := sqlite.NewDocumentService(db).FindDocumentByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored.ProcessedAt)
	})

	t.Run("returns ENOTFOUND for unknown document", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewProceedingService(db)

		err := svc.ReplaceDocument(context.Background(), sampleExtraction(99, "2024-01-01"), time.Now())
		assert.Equal(t, hansard.ENOTFOUND, hansard.ErrorCode(err))
	})
}

func TestProceedingService_Cascades(t *testing.T) {
	t.Parallel()

	t.Run("new payload removes normalized rows", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		seedSpeakers(t, db, "aaa", "bbb")
		doc := fetchedDocument(t, db, "https://example.com/a")
		ctx := context.Background()

		require.NoError(t, sqlite.NewProceedingService(db).ReplaceDocument(ctx, sampleExtraction(doc.ID, "2024-01-01"), time.Now()))
		require.NoError(t, sqlite.NewDocumentService(db).SavePayload(ctx, doc.URL, []byte("<new/>"), time.Now()))

		for _, table := range []string{"debates", "speeches", "turns", "speech_speakers", "speech_interjectors"} {
			assert.Equal(t, 0, countRows(t, db, table), table)
		}
	})

	t.Run("deleting a document removes its rows only", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		seedSpeakers(t, db, "aaa", "bbb")
		a := fetchedDocument(t, db, "https://example.com/a")
		b := fetchedDocument(t, db, "https://example.com/b")
		svc := sqlite.NewProceedingService(db)
		ctx := context.Background()

		require.NoError(t, svc.ReplaceDocument(ctx, sampleExtraction(a.ID, "2024-01-01"), time.Now()))
		require.NoError(t, svc.ReplaceDocument(ctx, sampleExtraction(b.ID, "2024-01-02"), time.Now()))

		n, err := sqlite.NewDocumentService(db).DeleteNotIn(ctx, []string{b.URL})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		assert.Equal(t, 1, countRows(t, db, "debates"))
		assert.Equal(t, 2, countRows(t, db, "speeches"))
		assert.Equal(t, 3, countRows(t, db, "turns"))

		speeches, err := svc.FindSpeeches(ctx, b.ID)
		require.NoError(t, err)
		assert.Len(t, speeches, 2)
	})

	t.Run("rebuild removes every normalized row", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		doc := fetchedDocument(t, db, "https://example.com/a")
		ctx := context.Background()

		require.NoError(t, sqlite.NewProceedingService(db).ReplaceDocument(ctx, sampleExtraction(doc.ID, "2024-01-01"), time.Now()))

		n, err := sqlite.NewDocumentService(db).ResetProcessed(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, 0, countRows(t, db, "speeches"))
		assert.Equal(t, 0, countRows(t, db, "turns"))
	})
}
