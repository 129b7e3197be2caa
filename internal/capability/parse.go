package capability

import (
	"errors"
	"strings"
)

// Pair is one vocabulary line.
type Pair struct {
	Source      string `json:"source"`
	Translation string `json:"translation"`
}

// Fragment is one line of a sentence breakdown.
type Fragment struct {
	Source      string `json:"source"`
	Translation string `json:"translation"`
	Notes       string `json:"notes,omitempty"`
}

// Analysis is the parsed output of the sentence analyzer.
type Analysis struct {
	Translation string     `json:"translation"`
	Fragments   []Fragment `json:"fragments"`
}

var ErrNoTranslation = errors.New("analysis has no translation line")

// separators in the order they are tried; "(->)" must win over "->".
var separators = []string{"(->)", "->", "→"}

// ParseVocabulary extracts word pairs from extractor output. Lines without a
// separator are skipped; repeated German tokens keep their first occurrence.
func ParseVocabulary(output string) []Pair {
	var pairs []Pair
	seen := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		src, dst, ok := splitLine(line)
		if !ok {
			continue
		}
		key := strings.ToLower(src)
		if seen[key] {
			continue
		}
		seen[key] = true
		pairs = append(pairs, Pair{Source: src, Translation: dst})
	}
	return pairs
}

// MergeVocabulary concatenates pair lists, dropping case-insensitive repeats.
func MergeVocabulary(lists ...[]Pair) []Pair {
	var out []Pair
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, p := range list {
			key := strings.ToLower(p.Source)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, p)
		}
	}
	return out
}

// FormatVocabulary renders pairs back into extractor line format.
func FormatVocabulary(pairs []Pair) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p.Source)
		b.WriteString(" -> ")
		b.WriteString(p.Translation)
	}
	return b.String()
}

// ParseAnalysis splits analyzer output into the translation line and the
// per-fragment lines.
func ParseAnalysis(output string) (Analysis, error) {
	var a Analysis
	for _, line := range strings.Split(output, "\n") {
		line = cleanLine(line)
		if line == "" {
			continue
		}
		src, rest, ok := splitLine(line)
		if !ok {
			if a.Translation == "" && len(a.Fragments) == 0 {
				a.Translation = line
			}
			continue
		}
		if a.Translation == "" {
			return Analysis{}, ErrNoTranslation
		}
		tr, notes := splitNotes(rest)
		a.Fragments = append(a.Fragments, Fragment{Source: src, Translation: tr, Notes: notes})
	}
	if a.Translation == "" {
		return Analysis{}, ErrNoTranslation
	}
	return a, nil
}

func splitLine(line string) (string, string, bool) {
	line = cleanLine(line)
	for _, sep := range separators {
		if i := strings.Index(line, sep); i > 0 {
			src := strings.TrimSpace(line[:i])
			dst := strings.TrimSpace(line[i+len(sep):])
			if src == "" || dst == "" {
				return "", "", false
			}
			return src, dst, true
		}
	}
	return "", "", false
}

// splitNotes separates "is lying (verb, present)" into translation and notes.
func splitNotes(s string) (string, string) {
	if !strings.HasSuffix(s, ")") {
		return s, ""
	}
	depth := 0
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1 : len(s)-1])
			}
		}
	}
	return s, ""
}

// cleanLine strips whitespace and list markers the model sometimes adds.
func cleanLine(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "-*• ")
	return strings.TrimSpace(line)
}
