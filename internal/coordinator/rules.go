package coordinator

import (
	"context"
	"strings"
	"unicode"

	"lichtblick/internal/capability"
)

const (
	// ShortInputWords is the word count below which unpunctuated input
	// counts as a phrase.
	ShortInputWords = 5
	// MinSentenceWords is the fewest words a sentence can have; shorter input
	// is a phrase even with "!" or "?" ("Hund?", "Danke!").
	MinSentenceWords = 3
)

const clarifyingQuestion = "I'm not sure which German text you'd like to work on. Could you share a word or sentence you want to study?"

var (
	analysisCues   = []string{"analy", "break", "grammar", "grammatik", "explain this", "explain the sentence"}
	vocabularyCues = []string{"vocab", "words", "wort", "wörter"}
)

// RuleDecider is a deterministic Decider that pins the routing guidance:
// phrases get vocabulary, sentences get analysis, quoted sentences or
// explicit vocabulary requests add vocabulary on top.
type RuleDecider struct{}

func (RuleDecider) Decide(_ context.Context, text string, caps []capability.Descriptor) (Decision, error) {
	target := quoted(text)
	if target == "" {
		target = strings.TrimSpace(text)
	}
	if !hasLetter(target) {
		return Decision{Commentary: clarifyingQuestion}, nil
	}

	lower := strings.ToLower(text)
	var names []string
	if IsShort(target) {
		names = []string{capability.VocabularyExtraction}
	} else {
		names = []string{capability.SentenceAnalysis}
		asksAnalysis := containsAny(lower, analysisCues)
		asksVocabulary := containsAny(lower, vocabularyCues)
		if asksVocabulary || (target != strings.TrimSpace(text) && !asksAnalysis) {
			names = []string{capability.VocabularyExtraction, capability.SentenceAnalysis}
		}
	}

	exposed := make(map[string]bool, len(caps))
	for _, c := range caps {
		exposed[c.Name] = true
	}
	var d Decision
	for _, n := range names {
		if exposed[n] {
			d.Invocations = append(d.Invocations, Invocation{Name: n, Input: target})
		}
	}
	if len(d.Invocations) == 0 {
		d.Commentary = clarifyingQuestion
	}
	return d, nil
}

// IsShort reports whether text is a phrase: fewer than MinSentenceWords
// words, or fewer than ShortInputWords words without sentence-ending
// punctuation.
func IsShort(text string) bool {
	text = strings.TrimSpace(text)
	n := len(strings.Fields(text))
	if n < MinSentenceWords {
		return true
	}
	return n < ShortInputWords && !endsSentence(text)
}

func endsSentence(text string) bool {
	text = strings.TrimRight(text, "\"'“”„«»)")
	return strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?")
}

// quoted returns the first quoted segment of text, if any.
func quoted(text string) string {
	pairs := [][2]string{{"„", "“"}, {"“", "”"}, {"»", "«"}, {"«", "»"}, {`"`, `"`}}
	for _, p := range pairs {
		start := strings.Index(text, p[0])
		if start < 0 {
			continue
		}
		rest := text[start+len(p[0]):]
		end := strings.Index(rest, p[1])
		if end <= 0 {
			continue
		}
		if q := strings.TrimSpace(rest[:end]); q != "" {
			return q
		}
	}
	return ""
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
