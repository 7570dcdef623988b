// Package quality enforces the content rules every question must pass
// before it reaches a learner: short stories, no "true or false" framing,
// phonetic help for loanwords, and age-appropriate vocabulary.
package quality

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/tanukilabs/questrun/internal/types"
)

// MaxStorySentences caps how long a narrative lead-in may run.
const MaxStorySentences = 2

// phonetics maps known loanwords to the parenthetical spelling injected
// after their first appearance in a story or question.
var phonetics = map[string]string{
	"onigiri":    "oh-nee-ghee-ree",
	"torii":      "toh-ree-ee",
	"shinkansen": "shin-kahn-sen",
	"bento":      "ben-toh",
	"sakura":     "sah-koo-rah",
	"kimono":     "kee-moh-noh",
	"origami":    "oh-ree-gah-mee",
	"matcha":     "mah-chah",
	"sensei":     "sen-say",
	"ramen":      "rah-men",
	"mochi":      "moh-chee",
	"tanuki":     "tah-noo-kee",
}

// simplifications maps harder words to easier ones, applied for readers
// below the advanced level.
var simplifications = map[string]string{
	"delicious":     "yummy",
	"purchase":      "buy",
	"frequently":    "often",
	"approximately": "about",
	"enormous":      "huge",
	"difficult":     "hard",
	"assist":        "help",
	"locate":        "find",
	"consume":       "eat",
	"observe":       "see",
}

var trueFalsePattern = regexp.MustCompile(`(?i)true\s+or\s+false[:,.?!]?\s*`)

// CapStory truncates a story to at most MaxStorySentences sentences.
func CapStory(story string) string {
	count := 0
	for i, r := range story {
		if r == '.' || r == '!' || r == '?' {
			count++
			if count == MaxStorySentences {
				return strings.TrimSpace(story[:i+1])
			}
		}
	}
	return strings.TrimSpace(story)
}

// StripTrueFalse removes "true or false" framing from a question and
// re-capitalizes whatever remains.
func StripTrueFalse(question string) string {
	cleaned := trueFalsePattern.ReplaceAllString(question, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return cleaned
	}
	runes := []rune(cleaned)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// InjectPhonetics appends a parenthetical phonetic spelling after the
// first occurrence of each known loanword, unless one is already present.
func InjectPhonetics(text string) string {
	lower := strings.ToLower(text)
	for word, spelling := range phonetics {
		idx := indexWord(lower, word)
		if idx < 0 {
			continue
		}
		rest := text[idx+len(word):]
		if strings.HasPrefix(strings.TrimLeft(rest, " "), "(") {
			continue
		}
		text = text[:idx+len(word)] + " (" + spelling + ")" + rest
		lower = strings.ToLower(text)
	}
	return text
}

// SimplifyVocabulary swaps harder words for easier ones. Advanced readers
// get the text unchanged.
func SimplifyVocabulary(text string, level types.ReadingLevel) string {
	if level == types.ReadingAdvanced {
		return text
	}
	for hard, easy := range simplifications {
		text = replaceWord(text, hard, easy)
	}
	return text
}

// CleanQuestion applies every rule to a story/question pair in the fixed
// order: cap, strip framing, simplify, then inject phonetics last so the
// parentheticals are never themselves rewritten.
func CleanQuestion(story, question string, level types.ReadingLevel) (string, string) {
	story = CapStory(story)
	question = StripTrueFalse(question)
	story = SimplifyVocabulary(story, level)
	question = SimplifyVocabulary(question, level)
	story = InjectPhonetics(story)
	question = InjectPhonetics(question)
	return story, question
}

// indexWord finds word in lower-cased text at a word boundary, or -1.
func indexWord(lower, word string) int {
	from := 0
	for {
		idx := strings.Index(lower[from:], word)
		if idx < 0 {
			return -1
		}
		idx += from
		beforeOK := idx == 0 || !isWordRune(rune(lower[idx-1]))
		afterIdx := idx + len(word)
		afterOK := afterIdx >= len(lower) || !isWordRune(rune(lower[afterIdx]))
		if beforeOK && afterOK {
			return idx
		}
		from = idx + len(word)
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// replaceWord substitutes every word-boundary occurrence of hard with
// easy, preserving a leading capital.
func replaceWord(text, hard, easy string) string {
	lower := strings.ToLower(text)
	for {
		idx := indexWord(lower, hard)
		if idx < 0 {
			return text
		}
		replacement := easy
		if unicode.IsUpper(rune(text[idx])) {
			replacement = strings.ToUpper(easy[:1]) + easy[1:]
		}
		text = text[:idx] + replacement + text[idx+len(hard):]
		lower = strings.ToLower(text)
	}
}
