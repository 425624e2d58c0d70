package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/schoolboyqueue/spectrace/internal/ident"
	"github.com/schoolboyqueue/spectrace/internal/report"
)

// Tag markers. A tag only counts inside a recognized comment, preventing
// false positives from code that merely contains identifier-shaped strings.
const (
	excludeBegin = "@trace-exclude-begin"
	excludeEnd   = "@trace-exclude-end"
)

// tagPattern matches inline and paired trace tags:
//
//	@spd-req:spd-app-req-login:ph-1
//	@spd-flow-begin:spd-app-flow-login:ph-2 ... @spd-flow-end:spd-app-flow-login:ph-2
//
// The prefix before the colon must equal {kind}-{semkind} of the tagged
// identifier; mismatches are malformed.
var tagPattern = regexp.MustCompile(`@([a-z][a-z0-9]*-[a-z][a-z0-9]*?)(-begin|-end)?:([a-z0-9:\-]+)`)

// Tag is one trace tag extracted from a source comment.
type Tag struct {
	ID    ident.Identifier
	Raw   string
	File  string
	Line  int
	Style string // "inline", "begin", or "end"
}

// Result is everything one tree scan produced.
type Result struct {
	Tags         []Tag
	Malformed    []report.TraceEntry
	FilesScanned int
	FilesSkipped int
}

// Scanner scans source trees using a language table. MaxFileBytes guards
// against pathological inputs: oversized files are counted and skipped, never
// fatal.
type Scanner struct {
	Languages    map[string]Language
	MaxFileBytes int64
	ExcludeDirs  []string
}

// New creates a scanner with the default language table, a 1 MiB per-file
// limit, and the usual tool directories excluded.
func New() *Scanner {
	return &Scanner{
		Languages:    DefaultLanguages(),
		MaxFileBytes: 1 << 20,
		ExcludeDirs:  []string{".git", "node_modules", "vendor", ".spectrace"},
	}
}

// ScanTree walks root and extracts trace tags from every file with a
// configured extension. Files are visited in lexical walk order; results are
// sorted, so scan order never shows in the output.
func (s *Scanner) ScanTree(root string) (*Result, error) {
	res := &Result{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}
		if d.IsDir() {
			for _, ex := range s.ExcludeDirs {
				if d.Name() == ex {
					return filepath.SkipDir
				}
			}
			return nil
		}

		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		lang, ok := s.Languages[ext]
		if !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if s.MaxFileBytes > 0 && info.Size() > s.MaxFileBytes {
			res.FilesSkipped++
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		if s.scanFile(path, filepath.ToSlash(rel), lang, res) {
			res.FilesScanned++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(res.Tags, func(i, j int) bool {
		if res.Tags[i].File != res.Tags[j].File {
			return res.Tags[i].File < res.Tags[j].File
		}
		return res.Tags[i].Line < res.Tags[j].Line
	})
	sortEntries(res.Malformed)
	return res, nil
}

// scanFile extracts tags from one file and reports whether the file was
// actually read. Scanning state per file: inside a block comment, inside an
// exclusion region, and the stack of open paired tags.
func (s *Scanner) scanFile(path, rel string, lang Language, res *Result) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		// A file that stats but does not read (permissions, race with a
		// delete) is skipped, never scanned.
		res.FilesSkipped++
		return false
	}

	inBlock := false
	excluded := false
	type openTag struct {
		id   string
		line int
	}
	var open []openTag

	for i, line := range strings.Split(string(data), "\n") {
		lineNo := i + 1
		comment, nextInBlock := commentPortion(line, lang, inBlock)
		inBlock = nextInBlock
		if comment == "" {
			continue
		}

		if strings.Contains(comment, excludeBegin) {
			excluded = true
			continue
		}
		if strings.Contains(comment, excludeEnd) {
			excluded = false
			continue
		}
		if excluded {
			continue
		}

		for _, m := range tagPattern.FindAllStringSubmatch(comment, -1) {
			prefix, style, rawID := m[1], strings.TrimPrefix(m[2], "-"), m[3]
			if style == "" {
				style = "inline"
			}

			id, err := ident.Parse(rawID)
			if err != nil {
				res.Malformed = append(res.Malformed, report.TraceEntry{
					ID: rawID, File: rel, Line: lineNo,
					Note: fmt.Sprintf("unparseable tag: %v", err),
				})
				continue
			}
			if prefix != id.Kind+"-"+id.SemKind {
				res.Malformed = append(res.Malformed, report.TraceEntry{
					ID: rawID, File: rel, Line: lineNo,
					Note: fmt.Sprintf("tag prefix @%s does not match identifier kind %s-%s", prefix, id.Kind, id.SemKind),
				})
				continue
			}

			switch style {
			case "end":
				if len(open) == 0 || open[len(open)-1].id != rawID {
					res.Malformed = append(res.Malformed, report.TraceEntry{
						ID: rawID, File: rel, Line: lineNo,
						Note: "end tag without matching begin",
					})
					continue
				}
				open = open[:len(open)-1]
			case "begin":
				open = append(open, openTag{id: rawID, line: lineNo})
				res.Tags = append(res.Tags, Tag{ID: id, Raw: rawID, File: rel, Line: lineNo, Style: style})
			default:
				res.Tags = append(res.Tags, Tag{ID: id, Raw: rawID, File: rel, Line: lineNo, Style: style})
			}
		}
	}

	for _, o := range open {
		res.Malformed = append(res.Malformed, report.TraceEntry{
			ID: o.id, File: rel, Line: o.line,
			Note: "begin tag never closed",
		})
	}
	return true
}

// commentPortion returns the part of a line that is inside a recognized
// comment, and whether a block comment continues past this line.
func commentPortion(line string, lang Language, inBlock bool) (string, bool) {
	if inBlock {
		if lang.BlockEnd != "" {
			if idx := strings.Index(line, lang.BlockEnd); idx >= 0 {
				return stripContinuation(line[:idx], lang), false
			}
		}
		return stripContinuation(line, lang), true
	}

	// Line comment wins when it appears before a block opener.
	lineIdx := -1
	for _, p := range lang.LinePrefixes {
		if idx := strings.Index(line, p); idx >= 0 && (lineIdx < 0 || idx < lineIdx) {
			lineIdx = idx + len(p)
		}
	}

	blockIdx := -1
	if lang.BlockStart != "" {
		blockIdx = strings.Index(line, lang.BlockStart)
	}

	if lineIdx >= 0 && (blockIdx < 0 || lineIdx <= blockIdx) {
		return line[lineIdx:], false
	}
	if blockIdx >= 0 {
		rest := line[blockIdx+len(lang.BlockStart):]
		if lang.BlockEnd != "" {
			if idx := strings.Index(rest, lang.BlockEnd); idx >= 0 {
				return rest[:idx], false
			}
		}
		return rest, true
	}
	return "", false
}

func stripContinuation(line string, lang Language) string {
	if lang.Continuation == "" {
		return line
	}
	trimmed := strings.TrimSpace(line)
	return strings.TrimPrefix(trimmed, lang.Continuation)
}

func sortEntries(entries []report.TraceEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].File != entries[j].File {
			return entries[i].File < entries[j].File
		}
		if entries[i].Line != entries[j].Line {
			return entries[i].Line < entries[j].Line
		}
		return entries[i].ID < entries[j].ID
	})
}
