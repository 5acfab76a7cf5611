package etree_test

import (
	"sync"
	"testing"

	"github.com/fwojciec/hansard"
	"github.com/fwojciec/hansard/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// transcript exercises every nesting case the extractor distinguishes.
// Speech-like nodes in document order:
//
//	0 speech    debate without subdebate
//	1 question  nested subdebates, empty subdebate.2 title
//	2 answer    nested in 1
//	3 quesion   subdebate.1 titled through debateinfo
//	4 speech    no debate ancestor
//	5 speech    petition
//	6 speech    subdebate titled through para
//	7 speech    nested in an interjection of 6
const transcript = `<?xml version="1.0" encoding="UTF-8"?>
<hansard version="2.2">
  <session.header>
    <date>2009-06-04</date>
    <parliament.no>42</parliament.no>
    <chamber>REPS</chamber>
  </session.header>
  <chamber.xscript>
    <debate>
      <debateinfo><title>PRIVATE MEMBERS' BUSINESS</title></debateinfo>
      <speech>
        <talk.start>
          <talker><name.id>AAA</name.id><name role="metadata">Smith, Jane</name></talker>
          <para>Madam Speaker, I rise today.</para>
        </talk.start>
        <interjection>
          <talk.start><talker><name.id>BBB</name.id></talker><para>Hear, hear!</para></talk.start>
        </interjection>
        <para>As I was
          saying.</para>
        <continue>
          <talk.start><talker><name.id>CCC</name.id></talker><para>Unknown member continues.</para></talk.start>
        </continue>
      </speech>
      <subdebate.1>
        <subdebateinfo><title>Second Reading</title></subdebateinfo>
        <subdebate.2>
          <subdebateinfo><title></title></subdebateinfo>
          <question>
            <talk.start><talker><name.id>BBB</name.id></talker><para>My question is to the minister.</para></talk.start>
            <answer>
              <talk.start><talker><name.id>AAA</name.id></talker><para>I thank the member.</para></talk.start>
            </answer>
          </question>
        </subdebate.2>
      </subdebate.1>
      <subdebate.1>
        <debateinfo><title>Older Style</title></debateinfo>
        <quesion>
          <talk.start><talker><name.id>UNKNOWN1</name.id></talker><para>Typo question.</para></talk.start>
        </quesion>
      </subdebate.1>
    </debate>
    <speech>
      <talk.start><talker><name.id>AAA</name.id></talker><para>Orphan.</para></talk.start>
    </speech>
    <petition.group>
      <petition.groupinfo><title>PETITIONS</title></petition.groupinfo>
      <petition>
        <petitioninfo><title>Climate Change</title></petitioninfo>
        <speech>
          <talk.start><talker><name.id>CCC</name.id></talker><para>I present.</para></talk.start>
        </speech>
      </petition>
    </petition.group>
    <debate>
      <debateinfo><title>ADJOURNMENT</title></debateinfo>
      <subdebate.1>
        <subdebateinfo><para>Para Title</para></subdebateinfo>
        <speech>
          <talk.start><talker><name.id>AAA</name.id></talker><para>Speech with nested interjected speech.</para></talk.start>
          <interjection>
            <speech>
              <talk.start><talker><name.id>BBB</name.id></talker><para>Point of order!</para></talk.start>
            </speech>
          </interjection>
        </speech>
      </subdebate.1>
    </debate>
  </chamber.xscript>
</hansard>`

func displayURL(id string) string {
	return `https://parlinfo.aph.gov.au/parlInfo/search/display/display.w3p;query=Id:%22` + id + `%22`
}

func testDocument() *hansard.Document {
	return &hansard.Document{ID: 7, URL: displayURL("chamber/hansardr/2009-06-04/0000")}
}

func newTestExtractor(overrides hansard.OverrideTable) *etree.Extractor {
	return etree.NewExtractor(hansard.NewRosterSet("aaa", "bbb"), overrides)
}

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("reads header and normalizes house", func(t *testing.T) {
		t.Parallel()

		ext, err := newTestExtractor(nil).Extract(testDocument(), []byte(transcript))
		require.NoError(t, err)

		assert.Equal(t, int64(7), ext.DocumentID)
		assert.Equal(t, "2009-06-04", ext.Date)
		assert.Equal(t, "House of Reps", ext.House)
		assert.Empty(t, ext.Skip)
	})

	t.Run("accounts for every speech-like node", func(t *testing.T) {
		t.Parallel()

		ext, err := newTestExtractor(nil).Extract(testDocument(), []byte(transcript))
		require.NoError(t, err)

		assert.Equal(t, 8, ext.Matched())
		require.Len(t, ext.Speeches, 6)
		require.Len(t, ext.Discards, 2)

		var ordinals []int
		for _, s := range ext.Speeches {
			ordinals = append(ordinals, s.Ordinal)
		}
		assert.Equal(t, []int{0, 1, 3, 4, 5, 6}, ordinals)
	})

	t.Run("speech without subdebate has empty subdebate titles", func(t *testing.T) {
		t.Parallel()

		ext, err := newTestExtractor(nil).Extract(testDocument(), []byte(transcript))
		require.NoError(t, err)

		s := ext.Speeches[0]
		assert.Equal(t, hansard.DebateKey{
			Date: "2009-06-04", House: "House of Reps",
			Title: "PRIVATE MEMBERS' BUSINESS", Subdebate1: "", Subdebate2: "",
		}, s.Debate)
		assert.Equal(t, hansard.SpeechTypeSpeech, s.Type)
	})

	t.Run("answer nested in question yields one merged speech", func(t *testing.T) {
		t.Parallel()

		ext, err := newTestExtractor(nil).Extract(testDocument(), []byte(transcript))
		require.NoError(t, err)

		q := ext.Speeches[1]
		assert.Equal(t, 1, q.Ordinal)
		assert.Equal(t, hansard.SpeechTypeQuestion, q.Type)
		assert.Equal(t, "Second Reading", q.Debate.Subdebate1)
		assert.Equal(t, hansard.UntitledSubdebate, q.Debate.Subdebate2)

		require.Len(t, q.Turns, 2)
		assert.Equal(t, "bbb", q.Turns[0].SpeakerID)
		assert.Equal(t, "My question is to the minister.", q.Turns[0].Text)
		assert.Equal(t, "aaa", q.Turns[1].SpeakerID)
		assert.Equal(t, "I thank the member.", q.Turns[1].Text)
		assert.Equal(t, []string{"aaa", "bbb"}, q.Speakers)

		assert.Equal(t, hansard.Discard{
			Ordinal: 2, Tag: "answer", Reason: hansard.DiscardNested, Enclosing: 1,
		}, ext.Discards[0])
	})

	t.Run("interjection is a turn and interjector, not a speech", func(t *testing.T) {
		t.Parallel()

		ext, err := newTestExtractor(nil).Extract(testDocument(), []byte(transcript))
		require.NoError(t, err)

		s := ext.Speeches[0]
		require.Len(t, s.Turns, 4)

		assert.Equal(t, hansard.Turn{Sequence: 1, SpeakerID: "bbb", Interjection: true, Text: "Hear, hear!", Raw: s.Turns[1].Raw}, s.Turns[1])
		assert.Contains(t, s.Turns[1].Raw, "<interjection>")
		assert.Equal(t, []string{"bbb"}, s.Interjectors)

		// Content after an interjection resumes the interrupted speaker.
		assert.Equal(t, "aaa", s.Turns[2].SpeakerID)
		assert.False(t, s.Turns[2].Interjection)
		assert.Equal(t, "As I was saying.", s.Turns[2].Text)
	})

	t.Run("speech nested in an interjection is folded into the enclosing speech", func(t *testing.T) {
		t.Parallel()

		ext, err := newTestExtractor(nil).Extract(testDocument(), []byte(transcript))
		require.NoError(t, err)

		s := ext.Speeches[5]
		assert.Equal(t, 6, s.Ordinal)
		assert.Equal(t, "Para Title", s.Debate.Subdebate1)
		assert.Equal(t, []string{"aaa"}, s.Speakers)
		assert.Equal(t, []string{"bbb"}, s.Interjectors)
		require.Len(t, s.Turns, 2)
		assert.True(t, s.Turns[1].Interjection)
		assert.Equal(t, "Point of order!", s.Turns[1].Text)

		assert.Equal(t, hansard.Discard{
			Ordinal: 7, Tag: "speech", Reason: hansard.DiscardInterjection, Enclosing: 6,
		}, ext.Discards[1])
	})

	t.Run("unresolved speaker keeps its turn but not its attribution", func(t *testing.T) {
		t.Parallel()

		ext, err := newTestExtractor(nil).Extract(testDocument(), []byte(transcript))
		require.NoError(t, err)

		s := ext.Speeches[0]
		assert.Equal(t, "ccc", s.Turns[3].SpeakerID)
		assert.Equal(t, "Unknown member continues.", s.Turns[3].Text)
		assert.Equal(t, []string{"aaa"}, s.Speakers)

		typo := ext.Speeches[2]
		assert.Equal(t, hansard.SpeechTypeQuestion, typo.Type)
		assert.Equal(t, "Older Style", typo.Debate.Subdebate1)
		assert.Empty(t, typo.Speakers)
		assert.NotNil(t, typo.Speakers)
		assert.Equal(t, "unknown1", typo.Turns[0].SpeakerID)
	})

	t.Run("speech without debate gets placeholder title", func(t *testing.T) {
		t.Parallel()

		ext, err := newTestExtractor(nil).Extract(testDocument(), []byte(transcript))
		require.NoError(t, err)

		assert.Equal(t, hansard.UntitledDebate, ext.Speeches[3].Debate.Title)
		assert.Equal(t, "", ext.Speeches[3].Debate.Subdebate1)
	})

	t.Run("petition titles fill debate and first subdebate", func(t *testing.T) {
		t.Parallel()

		ext, err := newTestExtractor(nil).Extract(testDocument(), []byte(transcript))
		require.NoError(t, err)

		s := ext.Speeches[4]
		assert.Equal(t, "PETITIONS", s.Debate.Title)
		assert.Equal(t, "Climate Change", s.Debate.Subdebate1)
	})

	t.Run("deduplicates debates and links speeches by key", func(t *testing.T) {
		t.Parallel()

		ext, err := newTestExtractor(nil).Extract(testDocument(), []byte(transcript))
		require.NoError(t, err)

		require.Len(t, ext.Debates, 6)
		keys := make(map[hansard.DebateKey]bool)
		for _, d := range ext.Debates {
			assert.False(t, keys[d.Key()], "duplicate debate %v", d.Key())
			keys[d.Key()] = true
		}
		for _, s := range ext.Speeches {
			assert.True(t, keys[s.Debate], "speech %d references unknown debate", s.Ordinal)
		}
	})

	t.Run("content hash tracks content", func(t *testing.T) {
		t.Parallel()

		ext, err := newTestExtractor(nil).Extract(testDocument(), []byte(transcript))
		require.NoError(t, err)

		s := ext.Speeches[0]
		assert.Equal(t, "Madam Speaker, I rise today.\nHear, hear!\nAs I was saying.\nUnknown member continues.", s.Content)
		assert.Len(t, s.ContentHash, 16)
		assert.NotEqual(t, s.ContentHash, ext.Speeches[1].ContentHash)
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()

		x := newTestExtractor(nil)
		first, err := x.Extract(testDocument(), []byte(transcript))
		require.NoError(t, err)
		second, err := x.Extract(testDocument(), []byte(transcript))
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("is safe for concurrent use", func(t *testing.T) {
		t.Parallel()

		x := newTestExtractor(nil)
		want, err := x.Extract(testDocument(), []byte(transcript))
		require.NoError(t, err)

		var wg sync.WaitGroup
		results := make([]*hansard.Extraction, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _ = x.Extract(testDocument(), []byte(transcript))
			}(i)
		}
		wg.Wait()

		for _, got := range results {
			assert.Equal(t, want, got)
		}
	})
}

func TestExtractor_Header(t *testing.T) {
	t.Parallel()

	t.Run("returns EPARSE for missing header", func(t *testing.T) {
		t.Parallel()

		_, err := newTestExtractor(nil).Extract(testDocument(), []byte(`<hansard><chamber.xscript/></hansard>`))
		assert.Equal(t, hansard.EPARSE, hansard.ErrorCode(err))
	})

	t.Run("returns EPARSE for missing date", func(t *testing.T) {
		t.Parallel()

		_, err := newTestExtractor(nil).Extract(testDocument(), []byte(`<hansard><session.header><chamber>SENATE</chamber></session.header></hansard>`))
		assert.Equal(t, hansard.EPARSE, hansard.ErrorCode(err))
	})

	t.Run("returns EPARSE for a landing page", func(t *testing.T) {
		t.Parallel()

		_, err := newTestExtractor(nil).Extract(testDocument(), []byte(`<html><head><title>ParlInfo</title></head><body><p>Hansard</p></body></html>`))
		assert.Equal(t, hansard.EPARSE, hansard.ErrorCode(err))
	})

	t.Run("normalizes senate codes", func(t *testing.T) {
		t.Parallel()

		for _, code := range []string{"SENATE", "SEN"} {
			payload := `<hansard><session.header><date>1990-01-01</date><chamber>` + code + `</chamber></session.header></hansard>`
			ext, err := newTestExtractor(nil).Extract(testDocument(), []byte(payload))
			require.NoError(t, err)
			assert.Equal(t, "Senate", ext.House)
			assert.Empty(t, ext.Speeches)
		}
	})

	t.Run("passes unknown chamber through", func(t *testing.T) {
		t.Parallel()

		payload := `<hansard><session.header><date>1990-01-01</date><chamber> Main Committee </chamber></session.header></hansard>`
		ext, err := newTestExtractor(nil).Extract(testDocument(), []byte(payload))
		require.NoError(t, err)
		assert.Equal(t, "Main Committee", ext.House)
	})
}

func TestExtractor_Overrides(t *testing.T) {
	t.Parallel()

	t.Run("skip excludes the document with its reason", func(t *testing.T) {
		t.Parallel()

		overrides := hansard.OverrideTable{
			"chamber/hansards/2010-02-23": hansard.Skip("Duplicate of chamber/hansards/2010-03-09"),
		}
		doc := &hansard.Document{ID: 3, URL: displayURL("chamber/hansards/2010-02-23/0001")}

		ext, err := newTestExtractor(overrides).Extract(doc, []byte(transcript))
		require.NoError(t, err)

		assert.Equal(t, "Duplicate of chamber/hansards/2010-03-09", ext.Skip)
		assert.Empty(t, ext.Debates)
		assert.Empty(t, ext.Speeches)
		assert.Equal(t, int64(3), ext.DocumentID)
	})

	t.Run("skip applies even to unparseable payloads", func(t *testing.T) {
		t.Parallel()

		overrides := hansard.OverrideTable{"chamber/hansards/2010-02-23": hansard.Skip("duplicate")}
		doc := &hansard.Document{ID: 3, URL: displayURL("chamber/hansards/2010-02-23/0001")}

		ext, err := newTestExtractor(overrides).Extract(doc, []byte(`not xml`))
		require.NoError(t, err)
		assert.Equal(t, "duplicate", ext.Skip)
	})

	t.Run("correct date replaces header date", func(t *testing.T) {
		t.Parallel()

		overrides := hansard.OverrideTable{
			"chamber/hansardr/2009-06-04": hansard.CorrectDate("2009-06-03"),
		}

		ext, err := newTestExtractor(overrides).Extract(testDocument(), []byte(transcript))
		require.NoError(t, err)

		assert.Equal(t, "2009-06-03", ext.Date)
		for _, d := range ext.Debates {
			assert.Equal(t, "2009-06-03", d.Date)
		}
		for _, s := range ext.Speeches {
			assert.Equal(t, "2009-06-03", s.Date)
		}
	})
}
