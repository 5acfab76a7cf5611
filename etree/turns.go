package etree

import (
	"slices"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/hansard"
)

// turnBuilder splits a speech-like unit into turns.
//
// A talk.start opens a turn for its talker. An interjection is a turn of its
// own. Any other content continues the current turn; after an interjection
// it resumes the last direct speaker.
type turnBuilder struct {
	turns   []hansard.Turn
	current *turnParts
	last    string
}

type turnParts struct {
	speaker      string
	interjection bool
	text         []string
	raw          strings.Builder
}

func buildTurns(unit *etree.Element) []hansard.Turn {
	b := &turnBuilder{turns: []hansard.Turn{}}
	b.walk(unit)
	b.flush()
	return b.turns
}

func (b *turnBuilder) walk(el *etree.Element) {
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			if strings.TrimSpace(t.Data) == "" {
				continue
			}
			b.append(t.Data, t.Data)
		case *etree.Element:
			b.element(t)
		}
	}
}

func (b *turnBuilder) element(el *etree.Element) {
	switch {
	case el.Tag == "talker":
	case el.Tag == "talk.start":
		b.open(talkerID(el), false)
		b.append(textExcludingTalker(el), rawXML(el))
	case el.Tag == "interjection":
		b.open(interjectorID(el), true)
		b.append(textExcludingTalker(el), rawXML(el))
		b.flush()
	case el.Tag == "continue" || speechTags[el.Tag] != "" || containsTurnMarkers(el):
		b.walk(el)
	default:
		text := textExcludingTalker(el)
		if text == "" {
			return
		}
		b.append(text, rawXML(el))
	}
}

// open starts a new turn, closing the current one.
func (b *turnBuilder) open(speaker string, interjection bool) {
	b.flush()
	b.current = &turnParts{speaker: speaker, interjection: interjection}
	if !interjection {
		b.last = speaker
	}
}

func (b *turnBuilder) append(text, raw string) {
	if b.current == nil {
		b.current = &turnParts{speaker: b.last}
	}
	if text != "" {
		b.current.text = append(b.current.text, text)
	}
	b.current.raw.WriteString(raw)
}

func (b *turnBuilder) flush() {
	if b.current == nil {
		return
	}
	b.turns = append(b.turns, hansard.Turn{
		Sequence:     len(b.turns),
		SpeakerID:    b.current.speaker,
		Interjection: b.current.interjection,
		Text:         collapse(strings.Join(b.current.text, " ")),
		Raw:          b.current.raw.String(),
	})
	b.current = nil
}

// speakerSets collects the direct speakers and interjectors of a unit,
// including those of units nested inside it.
func speakerSets(unit *etree.Element) (speakers, interjectors []string) {
	var visit func(el *etree.Element, inInterjection bool)
	visit = func(el *etree.Element, inInterjection bool) {
		for _, c := range el.ChildElements() {
			switch c.Tag {
			case "talk.start":
				if id := talkerID(c); id != "" {
					if inInterjection {
						interjectors = append(interjectors, id)
					} else {
						speakers = append(speakers, id)
					}
				}
			case "interjection":
				visit(c, true)
				continue
			}
			visit(c, inInterjection)
		}
	}
	visit(unit, false)
	return normalizeIDs(speakers), normalizeIDs(interjectors)
}

// normalizeIDs sorts and deduplicates ids.
func normalizeIDs(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// talkerID returns the lowercased name.id of a talk.start, or "".
func talkerID(talkStart *etree.Element) string {
	talker := talkStart.SelectElement("talker")
	if talker == nil {
		return ""
	}
	id := talker.SelectElement("name.id")
	if id == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(id.Text()))
}

// interjectorID returns the talker of the first talk.start inside an
// interjection, or "".
func interjectorID(interjection *etree.Element) string {
	if ts := firstDescendant(interjection, "talk.start"); ts != nil {
		return talkerID(ts)
	}
	return ""
}

func firstDescendant(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
		if found := firstDescendant(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func containsTurnMarkers(el *etree.Element) bool {
	return firstDescendant(el, "talk.start") != nil || firstDescendant(el, "interjection") != nil
}

// textExcludingTalker returns the collapsed text of el, leaving out talker
// metadata.
func textExcludingTalker(el *etree.Element) string {
	var sb strings.Builder
	writeText(&sb, el, "talker")
	return collapse(sb.String())
}

// collapsedText returns the collapsed text of el and all its descendants.
func collapsedText(el *etree.Element) string {
	var sb strings.Builder
	writeText(&sb, el, "")
	return collapse(sb.String())
}

func writeText(sb *strings.Builder, el *etree.Element, skip string) {
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			sb.WriteString(t.Data)
		case *etree.Element:
			if skip != "" && t.Tag == skip {
				continue
			}
			sb.WriteByte(' ')
			writeText(sb, t, skip)
			sb.WriteByte(' ')
		}
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// rawXML serializes el without its tail.
func rawXML(el *etree.Element) string {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	s, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return s
}
