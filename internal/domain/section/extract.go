package section

import (
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// Element local names used by the traversal.
const (
	tagSection    = "section"
	tagTemplateID = "templateId"
	tagCode       = "code"
	tagTitle      = "title"
	tagText       = "text"
	tagEntry      = "entry"

	attrRoot       = "root"
	attrCode       = "code"
	attrCodeSystem = "codeSystem"
)

// Extract walks a parsed document and returns one Record per distinct section id, sorted by id.
// Nested sections are reported on their own and excluded from their parent's counts.
// Sections with neither a templateId nor a code are ignored.
func Extract(root *etree.Element, classifier *Classifier) []Record {
	if root == nil {
		return nil
	}
	byID := make(map[string]*Record)
	walk(root, func(sec *etree.Element) {
		id, templateID := identify(sec)
		if id == "" {
			return
		}
		entries, coded := countContent(sec)
		rec, ok := byID[id]
		if !ok {
			rec = &Record{
				ID:         id,
				TemplateID: templateID,
				Title:      directText(sec, tagTitle),
				Kind:       classifier.Classify(templateID),
			}
			byID[id] = rec
		}
		rec.Occurrences++
		rec.Entries += entries
		rec.CodedElements += coded
		rec.NarrativeWords += narrativeWords(sec)
	})

	out := make([]Record, 0, len(byID))
	for _, r := range byID {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func walk(e *etree.Element, visit func(*etree.Element)) {
	if e.Tag == tagSection {
		visit(e)
	}
	for _, c := range e.ChildElements() {
		walk(c, visit)
	}
}

// identify keys a section on its first direct templateId/@root, falling back to its direct code.
func identify(sec *etree.Element) (id, templateID string) {
	for _, c := range sec.ChildElements() {
		if c.Tag == tagTemplateID {
			if root := strings.TrimSpace(c.SelectAttrValue(attrRoot, "")); root != "" {
				return root, root
			}
		}
	}
	for _, c := range sec.ChildElements() {
		if c.Tag == tagCode {
			code := strings.TrimSpace(c.SelectAttrValue(attrCode, ""))
			if code == "" {
				continue
			}
			return "code:" + c.SelectAttrValue(attrCodeSystem, "") + ":" + code, ""
		}
	}
	return "", ""
}

// countContent counts entry elements and coded elements owned by sec.
func countContent(sec *etree.Element) (entries, coded int) {
	var visit func(e *etree.Element)
	visit = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			if c.Tag == tagSection {
				continue
			}
			if c.Tag == tagEntry {
				entries++
			}
			if c.SelectAttr(attrCode) != nil {
				coded++
			}
			visit(c)
		}
	}
	for _, c := range sec.ChildElements() {
		switch c.Tag {
		case tagSection:
			continue
		case tagCode:
			// header code identifies the section; its descendants still count
			visit(c)
			continue
		}
		if c.Tag == tagEntry {
			entries++
		}
		if c.SelectAttr(attrCode) != nil {
			coded++
		}
		visit(c)
	}
	return entries, coded
}

func narrativeWords(sec *etree.Element) int {
	n := 0
	for _, c := range sec.ChildElements() {
		if c.Tag == tagText {
			n += len(strings.Fields(allText(c)))
		}
	}
	return n
}

func directText(sec *etree.Element, tag string) string {
	for _, c := range sec.ChildElements() {
		if c.Tag == tag {
			return strings.Join(strings.Fields(allText(c)), " ")
		}
	}
	return ""
}

// allText concatenates every character data token under e, separated by spaces.
func allText(e *etree.Element) string {
	var b strings.Builder
	var visit func(*etree.Element)
	visit = func(el *etree.Element) {
		for _, tok := range el.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				b.WriteString(t.Data)
				b.WriteByte(' ')
			case *etree.Element:
				visit(t)
			}
		}
	}
	visit(e)
	return b.String()
}
