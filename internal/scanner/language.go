// Package scanner walks a source tree for trace tags linking code back to
// design identifiers. Comment recognition is table-driven per file extension;
// unconfigured extensions are skipped, never guessed.
package scanner

// Language describes the comment syntax of one file extension: single-line
// prefixes, one block delimiter pair, and an optional in-block continuation
// marker stripped from the start of block-comment lines.
type Language struct {
	LinePrefixes []string `koanf:"line_prefixes" json:"line_prefixes" yaml:"line_prefixes"`
	BlockStart   string   `koanf:"block_start" json:"block_start,omitempty" yaml:"block_start,omitempty"`
	BlockEnd     string   `koanf:"block_end" json:"block_end,omitempty" yaml:"block_end,omitempty"`
	Continuation string   `koanf:"continuation" json:"continuation,omitempty" yaml:"continuation,omitempty"`
}

// DefaultLanguages returns the built-in language table, keyed by extension
// without the dot. Project configuration may extend or override it.
func DefaultLanguages() map[string]Language {
	cStyle := Language{
		LinePrefixes: []string{"//"},
		BlockStart:   "/*",
		BlockEnd:     "*/",
		Continuation: "*",
	}
	hashStyle := Language{LinePrefixes: []string{"#"}}

	return map[string]Language{
		"go":   cStyle,
		"c":    cStyle,
		"h":    cStyle,
		"cpp":  cStyle,
		"hpp":  cStyle,
		"java": cStyle,
		"js":   cStyle,
		"jsx":  cStyle,
		"ts":   cStyle,
		"tsx":  cStyle,
		"rs":   cStyle,
		"cs":   cStyle,
		"py": {
			LinePrefixes: []string{"#"},
			BlockStart:   `"""`,
			BlockEnd:     `"""`,
		},
		"rb":  hashStyle,
		"sh":  hashStyle,
		"yml": hashStyle,
		"tf":  hashStyle,
		"sql": {LinePrefixes: []string{"--"}},
		"lua": {LinePrefixes: []string{"--"}},
	}
}
