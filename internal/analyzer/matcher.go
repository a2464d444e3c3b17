// Package analyzer finds where a keyword is mentioned in page text. The
// excerpts give a relevance model the passages that matter most when the
// full page text has to be truncated.
package analyzer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TermMatch represents the occurrences of one term within a page.
type TermMatch struct {
	Term      string   `json:"term"`
	Count     int      `json:"count"`
	Sentences []string `json:"sentences"`
}

// KeywordTerms expands a keyword into the terms worth searching for: the
// full phrase, then each word of three or more letters, then a naive
// singular of each plural word. Duplicates are dropped.
func KeywordTerms(keyword string) []string {
	phrase := strings.Join(strings.Fields(strings.ToLower(keyword)), " ")
	if phrase == "" {
		return nil
	}

	terms := []string{phrase}
	seen := map[string]struct{}{phrase: {}}
	add := func(t string) {
		if utf8.RuneCountInString(t) < 3 {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}

	words := strings.FieldsFunc(phrase, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		add(w)
	}
	for _, w := range words {
		if strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
			add(strings.TrimSuffix(w, "s"))
		}
	}
	return terms
}

// FindTermMatches scans content for each term, case-insensitively, and
// returns a TermMatch for every term that occurs. At most maxSentences
// sentences are kept per term; zero keeps all of them.
func FindTermMatches(content string, terms []string, maxSentences int) []TermMatch {
	if content == "" || len(terms) == 0 {
		return nil
	}

	lowerContent := strings.ToLower(strings.Join(strings.Fields(content), " "))
	sentences := splitIntoSentences(content)

	results := make([]TermMatch, 0, len(terms))
	for _, term := range terms {
		lowerTerm := strings.ToLower(strings.TrimSpace(term))
		if lowerTerm == "" {
			continue
		}
		count := strings.Count(lowerContent, lowerTerm)
		if count == 0 {
			continue
		}

		var matched []string
		for _, s := range sentences {
			if strings.Contains(s.lower, lowerTerm) {
				matched = append(matched, s.original)
				if maxSentences > 0 && len(matched) == maxSentences {
					break
				}
			}
		}

		results = append(results, TermMatch{
			Term:      term,
			Count:     count,
			Sentences: matched,
		})
	}
	return results
}

type sentence struct {
	original string
	lower    string
}

// splitIntoSentences splits on '.', '!' and '?' and keeps the delimiter with
// its sentence. Runs of whitespace inside a sentence are collapsed.
func splitIntoSentences(text string) []sentence {
	if text == "" {
		return nil
	}

	out := make([]sentence, 0, max(1, len(text)/50))
	emit := func(raw string) {
		s := strings.Join(strings.Fields(raw), " ")
		if s == "" {
			return
		}
		out = append(out, sentence{original: s, lower: strings.ToLower(s)})
	}

	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			end := i + utf8.RuneLen(r)
			emit(text[start:end])
			start = end
		}
	}
	if start < len(text) {
		emit(text[start:])
	}
	return out
}
