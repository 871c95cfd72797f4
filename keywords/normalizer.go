// Package keywords turns free text into controlled-vocabulary keywords: the
// sentence is lower-cased and split on whitespace, phrases are mapped through
// a synonym table, stop words are dropped, and only vocabulary terms survive.
package keywords

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

type Normalizer struct {
	// phrase -> canonical term. Vocabulary entries map to themselves.
	phrases   map[string]string
	maxPhrase int

	stemmed    map[string]string
	stopWords  map[string]struct{}
	vocabulary map[string]struct{}
}

// New builds a Normalizer. Tables are copied, so later changes to t have no
// effect.
func New(t Tables) *Normalizer {
	n := &Normalizer{
		phrases:    make(map[string]string),
		maxPhrase:  1,
		stopWords:  make(map[string]struct{}, len(t.StopWords)),
		vocabulary: make(map[string]struct{}, len(t.Vocabulary)),
	}

	for _, v := range t.Vocabulary {
		n.vocabulary[v] = struct{}{}
		n.addPhrase(v, v)
	}

	// Synonyms win over the identity mapping of vocabulary entries
	for k, v := range t.Synonyms {
		n.addPhrase(k, v)
	}

	for _, w := range t.StopWords {
		n.stopWords[w] = struct{}{}
	}

	if t.Stem {
		n.stemmed = make(map[string]string)

		// Sorted so that two phrases sharing a stem resolve the same way on
		// every run
		keys := make([]string, 0, len(n.phrases))
		for k := range n.phrases {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			if strings.Contains(k, " ") {
				continue
			}
			if stem := english.Stem(k, false); n.stemmed[stem] == "" {
				n.stemmed[stem] = n.phrases[k]
			}
		}
	}

	return n
}

func (n *Normalizer) addPhrase(phrase, canonical string) {
	n.phrases[phrase] = canonical
	if words := len(strings.Fields(phrase)); words > n.maxPhrase {
		n.maxPhrase = words
	}
}

// Extract returns the vocabulary keywords found in sentence, in order of
// appearance. Repeats are kept.
func (n *Normalizer) Extract(sentence string) []string {
	out := make([]string, 0)
	for _, term := range n.Normalize(sentence) {
		if _, ok := n.vocabulary[term]; ok {
			out = append(out, term)
		}
	}

	return out
}

// Normalize is Extract without the final vocabulary filter.
func (n *Normalizer) Normalize(sentence string) []string {
	tokens := Tokenize(sentence)
	out := make([]string, 0, len(tokens))

	for i := 0; i < len(tokens); {
		if canonical, width := n.longestPhrase(tokens[i:]); width > 0 {
			out = append(out, canonical)
			i += width
			continue
		}

		token := tokens[i]
		i++

		if n.stemmed != nil {
			if canonical, ok := n.stemmed[english.Stem(token, false)]; ok {
				out = append(out, canonical)
				continue
			}
		}

		if _, ok := n.stopWords[token]; ok {
			continue
		}

		out = append(out, token)
	}

	return out
}

// longestPhrase finds the longest run of leading tokens that is a known
// phrase. width is 0 if there is none.
func (n *Normalizer) longestPhrase(tokens []string) (canonical string, width int) {
	limit := n.maxPhrase
	if len(tokens) < limit {
		limit = len(tokens)
	}

	for width = limit; width > 0; width-- {
		if canonical, ok := n.phrases[strings.Join(tokens[:width], " ")]; ok {
			return canonical, width
		}
	}

	return "", 0
}

// Tokenize lower-cases s, splits it on whitespace and trims punctuation from
// the ends of each token. Tokens that are pure punctuation are dropped.
func Tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}

	return out
}
