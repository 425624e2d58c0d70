package section

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/schoolboyqueue/spectrace/internal/ident"
)

var (
	headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)

	// blockPattern matches a tagged block: checkbox, priority token, backticked
	// identifier, optional backticked reference list.
	// Example: - [x] p1 - `spd-app-req-login` (refs: `spd-app-fr-auth`)
	blockPattern = regexp.MustCompile("^- \\[( |x)\\] (p[0-9]+) - `([^`]+)`(?:\\s*\\(refs:\\s*(.+)\\))?\\s*$")

	// phasePattern matches a phase sub-item nested under a tagged block.
	// Example:   - [x] ph-1 - scaffolding
	phasePattern = regexp.MustCompile(`^(\s+)- \[( |x)\] ph-([1-9][0-9]*)(?:\s*-\s*.*)?$`)

	// instPattern matches an instruction sub-item nested under a phase.
	// Example:     - [ ] inst-wire-db - connect the store
	instPattern = regexp.MustCompile(`^(\s+)- \[( |x)\] inst-([a-z0-9][a-z0-9-]*)(?:\s*-\s*.*)?$`)

	refPattern = regexp.MustCompile("`([^`]+)`")

	fencePattern = regexp.MustCompile("^\\s*(```|~~~)")
)

// FenceTracker tracks fenced code regions (``` or ~~~) across a line-by-line
// scan. Every layer that walks raw document text shares this tracker so all
// of them agree on what is opaque fence content. An opener only pairs with a
// matching closer: a ``` line inside a ~~~ block is content, not a toggle.
type FenceTracker struct {
	delim string // open fence delimiter, "" when outside a fence
}

// Step consumes one line and reports whether it belongs to a fenced region:
// true for the delimiter lines themselves and everything between them.
func (f *FenceTracker) Step(line string) bool {
	m := fencePattern.FindStringSubmatch(line)
	if m == nil {
		return f.delim != ""
	}
	switch f.delim {
	case "":
		f.delim = m[1]
	case m[1]:
		f.delim = ""
	}
	return true
}

// Phase is a phase sub-item of a tagged block.
type Phase struct {
	Number       int
	Checked      bool
	Line         int
	Instructions []Instruction
}

// Instruction is an instruction sub-item of a phase.
type Instruction struct {
	Name    string
	Checked bool
	Line    int
}

// Block is one identifier-tagged list item with its qualifier sub-items.
// A block with Malformed set carries the offending raw text and reason; its
// ID field is zero-valued.
type Block struct {
	RawID     string
	ID        ident.Identifier
	Malformed bool
	Reason    string
	Checked   bool
	Priority  int
	Refs      []string // raw identifier strings from the refs trailer
	Phases    []Phase
	Line      int
	Section   *Section
}

// PhaseMap returns the block's phases as a phase-number to instruction-name
// map, the shape consumed by ident.Definition.
func (b *Block) PhaseMap() map[int][]string {
	if len(b.Phases) == 0 {
		return nil
	}
	m := make(map[int][]string, len(b.Phases))
	for _, p := range b.Phases {
		names := make([]string, 0, len(p.Instructions))
		for _, in := range p.Instructions {
			names = append(names, in.Name)
		}
		m[p.Number] = names
	}
	return m
}

// Parse splits raw document text into a heading hierarchy and extracts tagged
// blocks with their enclosing sections. Fenced code regions are treated as
// opaque body text.
func Parse(raw string) *Tree {
	root := &Section{Level: 0}
	tree := &Tree{Root: root}

	stack := []*Section{root}
	current := root
	var fence FenceTracker
	var lastBlock *Block
	var lastPhase *Phase

	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lineNo := i + 1

		if fence.Step(line) {
			current.Body = append(current.Body, line)
			continue
		}

		if m := headingPattern.FindStringSubmatch(line); m != nil {
			level := len(m[1])
			sec := &Section{Level: level, Title: m[2], Line: lineNo}

			// Pop to the nearest ancestor with a smaller level.
			for len(stack) > 1 && stack[len(stack)-1].Level >= level {
				stack = stack[:len(stack)-1]
			}
			parent := stack[len(stack)-1]
			sec.parent = parent
			parent.Children = append(parent.Children, sec)
			stack = append(stack, sec)
			current = sec
			lastBlock, lastPhase = nil, nil
			continue
		}

		current.Body = append(current.Body, line)

		if m := blockPattern.FindStringSubmatch(line); m != nil {
			b := parseBlock(m, lineNo, current)
			tree.Blocks = append(tree.Blocks, b)
			lastBlock, lastPhase = b, nil
			continue
		}

		if lastBlock != nil {
			if m := phasePattern.FindStringSubmatch(line); m != nil {
				n, _ := strconv.Atoi(m[3])
				lastBlock.Phases = append(lastBlock.Phases, Phase{
					Number:  n,
					Checked: m[2] == "x",
					Line:    lineNo,
				})
				lastPhase = &lastBlock.Phases[len(lastBlock.Phases)-1]
				continue
			}
			if m := instPattern.FindStringSubmatch(line); m != nil && lastPhase != nil {
				lastPhase.Instructions = append(lastPhase.Instructions, Instruction{
					Name:    m[3],
					Checked: m[2] == "x",
					Line:    lineNo,
				})
				continue
			}
			// Any other non-blank, non-indented line ends the block scope.
			if strings.TrimSpace(line) != "" && !strings.HasPrefix(line, " ") {
				lastBlock, lastPhase = nil, nil
			}
		}
	}

	tree.index()
	return tree
}

func parseBlock(m []string, lineNo int, sec *Section) *Block {
	b := &Block{
		RawID:   m[3],
		Checked: m[1] == "x",
		Line:    lineNo,
		Section: sec,
	}
	b.Priority, _ = strconv.Atoi(strings.TrimPrefix(m[2], "p"))

	if m[4] != "" {
		for _, rm := range refPattern.FindAllStringSubmatch(m[4], -1) {
			b.Refs = append(b.Refs, rm[1])
		}
	}

	id, err := ident.Parse(m[3])
	if err != nil {
		b.Malformed = true
		b.Reason = err.Error()
		return b
	}
	if id.IsQualified() {
		// A definition declares the base item; qualifiers belong to
		// references and sub-items.
		b.Malformed = true
		b.Reason = fmt.Sprintf("tagged block %q must declare a base identifier, not a qualified reference", m[3])
		return b
	}
	b.ID = id
	return b
}
