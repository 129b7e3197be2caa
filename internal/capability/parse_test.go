package capability

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const katzeAnalysis = `The cat is lying comfortably on the sofa.
Die -> the (feminine nominative singular definite article)
Katze -> cat (feminine noun, nominative case)
liegt -> is lying (third-person singular present of "liegen")
gemütlich -> comfortably (adverb)
auf -> on (preposition, here with the dative)
dem -> the (neuter dative singular definite article)
Sofa -> sofa (neuter noun, dative case)`

func TestParseAnalysisCoversEveryToken(t *testing.T) {
	sentence := "Die Katze liegt gemütlich auf dem Sofa."

	a, err := ParseAnalysis(katzeAnalysis)
	require.NoError(t, err)
	assert.Equal(t, "The cat is lying comfortably on the sofa.", a.Translation)

	tokens := strings.Fields(strings.TrimSuffix(sentence, "."))
	require.Len(t, a.Fragments, len(tokens))
	for i, tok := range tokens {
		assert.Equal(t, tok, a.Fragments[i].Source)
	}
	assert.Equal(t, Fragment{Source: "liegt", Translation: "is lying", Notes: `third-person singular present of "liegen"`}, a.Fragments[2])
}

func TestParseAnalysisLegacyArrowAndMarkers(t *testing.T) {
	out := "I am going to school.\n\n- Ich (->) I (pronoun (subject))\n* gehe (->) am going\n"
	a, err := ParseAnalysis(out)
	require.NoError(t, err)
	assert.Equal(t, "I am going to school.", a.Translation)
	assert.Equal(t, []Fragment{
		{Source: "Ich", Translation: "I", Notes: "pronoun (subject)"},
		{Source: "gehe", Translation: "am going"},
	}, a.Fragments)
}

func TestParseAnalysisWithoutTranslation(t *testing.T) {
	_, err := ParseAnalysis("Die -> the (article)")
	assert.ErrorIs(t, err, ErrNoTranslation)

	_, err = ParseAnalysis("   \n")
	assert.ErrorIs(t, err, ErrNoTranslation)
}

func TestParseVocabulary(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []Pair
	}{
		{
			name:   "plain arrows",
			output: "der -> the\nHund -> dog",
			want:   []Pair{{"der", "the"}, {"Hund", "dog"}},
		},
		{
			name:   "legacy arrows with padding",
			output: "  der (->) the  \nHund (->) dog   ",
			want:   []Pair{{"der", "the"}, {"Hund", "dog"}},
		},
		{
			name:   "case-insensitive repeats keep first",
			output: "Der -> the\nder -> the\nHund -> dog",
			want:   []Pair{{"Der", "the"}, {"Hund", "dog"}},
		},
		{
			name:   "commentary lines skipped",
			output: "Here are your words:\n- Katze -> cat\n\nGreat job!",
			want:   []Pair{{"Katze", "cat"}},
		},
		{
			name:   "empty sides skipped",
			output: "-> nothing\nHund ->",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseVocabulary(tt.output))
		})
	}
}

func TestMergeAndFormatVocabulary(t *testing.T) {
	merged := MergeVocabulary(
		[]Pair{{"der", "the"}, {"Hund", "dog"}},
		[]Pair{{"hund", "dog"}, {"bellt", "barks"}},
	)
	assert.Equal(t, []Pair{{"der", "the"}, {"Hund", "dog"}, {"bellt", "barks"}}, merged)
	assert.Equal(t, "der -> the\nHund -> dog\nbellt -> barks", FormatVocabulary(merged))
}
