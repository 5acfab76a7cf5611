package etree

import (
	"github.com/beevik/etree"
	"github.com/fwojciec/hansard"
)

// ancestry is what a speech-like node inherits from its ancestors. It is a
// value: each fold step returns a new ancestry instead of mutating one.
type ancestry struct {
	debate     string
	subdebate1 string
	subdebate2 string

	// enclosing is the nearest speech-like ancestor, if any. When set the
	// fold stops there and the titles are incomplete.
	enclosing *etree.Element

	// viaInterjection reports whether an interjection lies between the node
	// and enclosing.
	viaInterjection bool
}

// foldAncestors applies step to each ancestor of el from the parent upward
// until step reports done or the root is passed.
func foldAncestors(el *etree.Element, acc ancestry, step func(ancestry, *etree.Element) (ancestry, bool)) ancestry {
	for p := el.Parent(); p != nil; p = p.Parent() {
		var done bool
		acc, done = step(acc, p)
		if done {
			break
		}
	}
	return acc
}

// ancestryOf folds the ancestors of a speech-like node. Subdebate and
// petition titles are assigned as they are met, so an outer container
// overrides an inner one at the same level.
func ancestryOf(el *etree.Element) ancestry {
	return foldAncestors(el, ancestry{debate: hansard.UntitledDebate}, func(acc ancestry, p *etree.Element) (ancestry, bool) {
		switch {
		case speechTags[p.Tag] != "":
			acc.enclosing = p
			return acc, true
		case p.Tag == "interjection":
			acc.viaInterjection = true
		case p.Tag == "petition":
			if title := childText(p, "petitioninfo", "title"); title != "" {
				acc.subdebate1 = title
			}
		case p.Tag == "subdebate.1":
			if title, ok := subdebateTitle(p); ok {
				acc.subdebate1 = title
			}
		case p.Tag == "subdebate.2":
			if title, ok := subdebateTitle(p); ok {
				acc.subdebate2 = title
			}
		case p.Tag == "debate":
			if title := childText(p, "debateinfo", "title"); title != "" {
				acc.debate = title
			}
			return acc, true
		case p.Tag == "petition.group":
			if title := childText(p, "petition.groupinfo", "title"); title != "" {
				acc.debate = title
			}
			return acc, true
		}
		return acc, false
	})
}

// subdebateTitle reads the title of a subdebate container. Older documents
// use debateinfo in place of subdebateinfo, and some carry the title in a
// para. A title element with no text yields the untitled placeholder.
func subdebateTitle(sub *etree.Element) (string, bool) {
	info := sub.SelectElement("subdebateinfo")
	if info == nil {
		info = sub.SelectElement("debateinfo")
	}
	if info == nil {
		return hansard.UntitledSubdebate, true
	}
	if title := info.SelectElement("title"); title != nil {
		if text := collapsedText(title); text != "" {
			return text, true
		}
		return hansard.UntitledSubdebate, true
	}
	if para := info.SelectElement("para"); para != nil {
		return collapsedText(para), true
	}
	return "", false
}

// childText returns the collapsed text of the element reached by following
// tags from el, or "" if any step is missing.
func childText(el *etree.Element, tags ...string) string {
	for _, tag := range tags {
		el = el.SelectElement(tag)
		if el == nil {
			return ""
		}
	}
	return collapsedText(el)
}
