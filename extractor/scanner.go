package extractor

import (
	"cmp"
	"slices"
)

type span struct {
	start, end int
}

// balancedSpans returns the bounds of every balanced {...} substring of s,
// in one pass over the text. String literals and escapes are honored once
// a brace is open, nesting depth is not limited. Braces that are never
// closed produce no span. A raw newline inside a string cannot be valid
// JSON, so it drops all open candidates and the scan continues at depth 0.
func balancedSpans(s string) []span {
	var (
		spans    []span
		open     []int
		inString bool
		escaped  bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if len(open) == 0 {
			if c == '{' {
				open = append(open, i)
			}
			continue
		}
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			case c == '\n':
				open = open[:0]
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			open = append(open, i)
		case '}':
			last := len(open) - 1
			spans = append(spans, span{start: open[last], end: i + 1})
			open = open[:last]
		}
	}

	slices.SortFunc(spans, func(a, b span) int {
		return cmp.Compare(a.start, b.start)
	})
	return spans
}

// ScanObjects returns top level JSON object substrings of s.
// A candidate that is not valid JSON is skipped and the objects nested
// in it are considered instead, so objects inside broken text are found.
func ScanObjects(s string, valid func(string) bool) []string {
	var res []string
	pos := 0
	for _, sp := range balancedSpans(s) {
		if sp.start < pos {
			continue
		}
		if obj := s[sp.start:sp.end]; valid(obj) {
			res = append(res, obj)
			pos = sp.end
		}
	}
	return res
}
