// Package section parses artifact text into a heading hierarchy and extracts
// identifier-tagged blocks. Parsing is tolerant: a malformed tagged block is
// recorded with its reason and never aborts the scan, so one bad block cannot
// prevent validating the rest of the document.
package section

import (
	"strings"
)

// Section is one node of the heading hierarchy. The implicit root section has
// Level 0 and holds any text appearing before the first heading.
type Section struct {
	Level    int        // Markdown heading level, 0 for the implicit root
	Title    string     // heading text, "" for the root
	Line     int        // 1-based line of the heading, 0 for the root
	Body     []string   // body lines, excluding child headings and their bodies
	Children []*Section // child sections in document order

	parent *Section
}

// Path returns the full heading path from the document root, segments joined
// with " > ". Repeated titles are disambiguated by this path, never by title
// alone.
func (s *Section) Path() string {
	var parts []string
	for cur := s; cur != nil && cur.Level > 0; cur = cur.parent {
		parts = append(parts, cur.Title)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

// BodyText returns the section body as a single string.
func (s *Section) BodyText() string {
	return strings.Join(s.Body, "\n")
}

// Tree is the parsed form of one artifact: the heading hierarchy plus the
// flat, document-ordered list of tagged blocks. Lookup indexes are built once
// at parse time.
type Tree struct {
	Root   *Section
	Blocks []*Block

	byTitle map[string][]*Section
	byLevel map[int][]*Section
	byPath  map[string]*Section
}

// ByTitle returns every section whose heading text matches exactly.
func (t *Tree) ByTitle(title string) []*Section {
	return t.byTitle[title]
}

// ByPath returns the section with the exact heading path, or nil.
func (t *Tree) ByPath(path string) *Section {
	return t.byPath[path]
}

// ByLevel returns every section at the given heading level in document order.
func (t *Tree) ByLevel(level int) []*Section {
	return t.byLevel[level]
}

// Sections returns every section except the implicit root, in document order.
func (t *Tree) Sections() []*Section {
	var out []*Section
	var walk func(*Section)
	walk = func(s *Section) {
		if s.Level > 0 {
			out = append(out, s)
		}
		for _, c := range s.Children {
			walk(c)
		}
	}
	walk(t.Root)
	return out
}

func (t *Tree) index() {
	t.byTitle = make(map[string][]*Section)
	t.byLevel = make(map[int][]*Section)
	t.byPath = make(map[string]*Section)
	for _, s := range t.Sections() {
		t.byTitle[s.Title] = append(t.byTitle[s.Title], s)
		t.byLevel[s.Level] = append(t.byLevel[s.Level], s)
		t.byPath[s.Path()] = s
	}
}
