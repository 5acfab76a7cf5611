// Package etree implements hansard.Extractor over parliamentary transcript
// XML using github.com/beevik/etree.
package etree

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/hansard"
)

// Ensure Extractor implements hansard.Extractor at compile time.
var _ hansard.Extractor = (*Extractor)(nil)

// speechTags maps speech-like tags to their speech type. "quest" and
// "quesion" are tagging typos that recur in older transcripts.
var speechTags = map[string]hansard.SpeechType{
	"speech":   hansard.SpeechTypeSpeech,
	"question": hansard.SpeechTypeQuestion,
	"quest":    hansard.SpeechTypeQuestion,
	"quesion":  hansard.SpeechTypeQuestion,
	"answer":   hansard.SpeechTypeAnswer,
}

// houses normalizes chamber codes found in session headers.
var houses = map[string]string{
	"REPS":   "House of Reps",
	"SENATE": "Senate",
	"SEN":    "Senate",
}

// Extractor parses transcripts into debates, speeches and turns. It holds
// only read-only state and is safe for concurrent use; every call parses its
// own tree.
type Extractor struct {
	roster    hansard.Roster
	overrides hansard.OverrideTable
}

// NewExtractor creates an Extractor resolving speakers against roster.
// A nil roster resolves nothing.
func NewExtractor(roster hansard.Roster, overrides hansard.OverrideTable) *Extractor {
	if roster == nil {
		roster = hansard.RosterSet{}
	}
	return &Extractor{roster: roster, overrides: overrides}
}

// Extract parses payload for doc.
func (e *Extractor) Extract(doc *hansard.Document, payload []byte) (*hansard.Extraction, error) {
	override, hasOverride := e.overrides.Lookup(doc.Key())
	if hasOverride && override.Kind == hansard.OverrideSkip {
		return &hansard.Extraction{
			DocumentID: doc.ID,
			Skip:       override.Reason,
			Debates:    []*hansard.Debate{},
			Speeches:   []*hansard.Speech{},
			Discards:   []hansard.Discard{},
		}, nil
	}

	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(payload); err != nil {
		return nil, hansard.Errorf(hansard.EPARSE, "%s: parsing XML: %v", doc.URL, err)
	}

	date, house, err := readHeader(tree)
	if err != nil {
		return nil, hansard.Errorf(hansard.EPARSE, "%s: %v", doc.URL, err)
	}
	if hasOverride && override.Kind == hansard.OverrideCorrectDate {
		date = override.Date
	}

	ext := &hansard.Extraction{
		DocumentID: doc.ID,
		Date:       date,
		House:      house,
		Debates:    []*hansard.Debate{},
		Speeches:   []*hansard.Speech{},
		Discards:   []hansard.Discard{},
	}

	nodes := speechNodes(tree.Root())
	ordinals := make(map[*etree.Element]int, len(nodes))
	for i, n := range nodes {
		ordinals[n] = i
	}

	debates := make(map[hansard.DebateKey]bool)
	for ordinal, node := range nodes {
		anc := ancestryOf(node)

		if anc.enclosing != nil {
			reason := hansard.DiscardNested
			if anc.viaInterjection {
				reason = hansard.DiscardInterjection
			}
			ext.Discards = append(ext.Discards, hansard.Discard{
				Ordinal:   ordinal,
				Tag:       node.Tag,
				Reason:    reason,
				Enclosing: ordinals[anc.enclosing],
			})
			continue
		}

		debate := &hansard.Debate{
			DocumentID: doc.ID,
			Date:       date,
			House:      house,
			Title:      anc.debate,
			Subdebate1: anc.subdebate1,
			Subdebate2: anc.subdebate2,
		}
		key := debate.Key()
		if !debates[key] {
			debates[key] = true
			ext.Debates = append(ext.Debates, debate)
		}

		ext.Speeches = append(ext.Speeches, e.speech(doc.ID, key, ordinal, node))
	}

	if ext.Matched() != len(nodes) {
		return nil, hansard.Errorf(hansard.EINVARIANT, "%s: %d speech-like nodes but %d accounted for", doc.URL, len(nodes), ext.Matched())
	}
	return ext, nil
}

func (e *Extractor) speech(documentID int64, debate hansard.DebateKey, ordinal int, node *etree.Element) *hansard.Speech {
	turns := buildTurns(node)

	texts := make([]string, 0, len(turns))
	for _, t := range turns {
		if t.Text != "" {
			texts = append(texts, t.Text)
		}
	}
	content := strings.Join(texts, "\n")

	speakers, interjectors := speakerSets(node)

	return &hansard.Speech{
		DocumentID:   documentID,
		Debate:       debate,
		Date:         debate.Date,
		House:        debate.House,
		Ordinal:      ordinal,
		Type:         speechTags[node.Tag],
		Content:      content,
		ContentHash:  fmt.Sprintf("%016x", xxhash.Sum64String(content)),
		Speakers:     hansard.Resolve(e.roster, speakers),
		Interjectors: hansard.Resolve(e.roster, interjectors),
		Turns:        turns,
	}
}

// readHeader reads the sitting date and normalized house.
func readHeader(tree *etree.Document) (date, house string, err error) {
	root := tree.Root()
	if root == nil {
		return "", "", fmt.Errorf("no root element")
	}
	header := root.SelectElement("session.header")
	if header == nil {
		return "", "", fmt.Errorf("missing session.header")
	}

	chamber := childText(header, "chamber")
	if chamber == "" {
		return "", "", fmt.Errorf("missing chamber in session.header")
	}
	date = childText(header, "date")
	if date == "" {
		return "", "", fmt.Errorf("missing date in session.header")
	}

	house = chamber
	if h, ok := houses[strings.ToUpper(chamber)]; ok {
		house = h
	}
	return date, house, nil
}

// speechNodes returns every speech-like element in document order.
func speechNodes(root *etree.Element) []*etree.Element {
	var nodes []*etree.Element
	var visit func(*etree.Element)
	visit = func(el *etree.Element) {
		for _, c := range el.ChildElements() {
			if speechTags[c.Tag] != "" {
				nodes = append(nodes, c)
			}
			visit(c)
		}
	}
	if root != nil {
		if speechTags[root.Tag] != "" {
			nodes = append(nodes, root)
		}
		visit(root)
	}
	return nodes
}
