package synthesis

import (
	"strings"
	"unicode"
)

// Kind is the shape of a user input.
type Kind string

const (
	KindQuestion  Kind = "question"
	KindRequest   Kind = "request"
	KindStatement Kind = "statement"
	KindGeneral   Kind = "general"
)

var questionWords = map[string]bool{
	"what": true, "who": true, "when": true, "where": true, "why": true,
	"how": true, "which": true, "can": true, "could": true, "should": true,
	"would": true, "is": true, "are": true, "do": true, "does": true,
	"did": true, "will": true,
}

var requestWords = map[string]bool{
	"please": true, "help": true, "explain": true, "tell": true, "show": true,
	"give": true, "create": true, "make": true, "write": true, "generate": true,
}

// statementWords is the word count above which unpunctuated input is still
// treated as a statement.
const statementWords = 10

// Classify returns the Kind of input. Only the leading word decides between
// question and request, so "island" is not a question.
func Classify(input string) Kind {
	text := strings.ToLower(strings.TrimSpace(input))
	words := strings.Fields(text)
	if len(words) == 0 {
		return KindGeneral
	}

	first := strings.TrimFunc(words[0], func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	// "what's" counts as "what".
	if i := strings.IndexByte(first, '\''); i > 0 {
		first = first[:i]
	}
	switch {
	case questionWords[first]:
		return KindQuestion
	case requestWords[first]:
		return KindRequest
	case strings.HasSuffix(text, "."), len(words) > statementWords:
		return KindStatement
	default:
		return KindGeneral
	}
}
