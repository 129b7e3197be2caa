package chunker

import (
	"strings"
	"unicode"
)

// DefaultMaxWords bounds a chunk when Options.MaxWords is unset.
const DefaultMaxWords = 300

// Options controls how text is chunked.
type Options struct {
	MaxWords int
}

// Chunk is a run of whole sentences from a reading text.
type Chunk struct {
	Index     int
	Text      string
	WordCount int
}

// ChunkText groups sentences into chunks of at most MaxWords words so each
// vocabulary request sees complete sentences. A sentence longer than MaxWords
// is split on word boundaries.
func ChunkText(text string, opts Options) []Chunk {
	if opts.MaxWords <= 0 {
		opts.MaxWords = DefaultMaxWords
	}

	var (
		chunks []Chunk
		words  []string
	)
	flush := func() {
		if len(words) == 0 {
			return
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Text: strings.Join(words, " "), WordCount: len(words)})
		words = nil
	}

	for _, sentence := range Sentences(text) {
		sw := strings.Fields(sentence)
		if len(words)+len(sw) > opts.MaxWords {
			flush()
		}
		for len(sw) > opts.MaxWords {
			words = sw[:opts.MaxWords]
			flush()
			sw = sw[opts.MaxWords:]
		}
		words = append(words, sw...)
	}
	flush()
	return chunks
}

// Sentences splits text after '.', '!' or '?' when followed by whitespace,
// and at blank lines. Whitespace inside a sentence is collapsed.
func Sentences(text string) []string {
	var (
		out []string
		cur []string
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
			cur = nil
		}
	}

	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		for _, w := range strings.Fields(para) {
			cur = append(cur, w)
			if endsSentence(w) {
				flush()
			}
		}
		flush()
	}
	return out
}

func endsSentence(word string) bool {
	word = strings.TrimRightFunc(word, func(r rune) bool {
		return strings.ContainsRune(`"'“”«»)`, r)
	})
	if word == "" {
		return false
	}
	last := rune(word[len(word)-1])
	if last != '.' && last != '!' && last != '?' {
		return false
	}
	// "z.B." and similar abbreviations stay inside the sentence
	body := strings.TrimRight(word, ".!?")
	return !(strings.Contains(body, ".") || (len([]rune(body)) == 1 && unicode.IsLower([]rune(body)[0])))
}
