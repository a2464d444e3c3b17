package analyzer

import (
	"reflect"
	"strings"
	"testing"
)

func TestKeywordTerms(t *testing.T) {
	tests := []struct {
		keyword string
		want    []string
	}{
		{"Hair Powder", []string{"hair powder", "hair", "powder"}},
		{"  contact   lenses ", []string{"contact lenses", "contact", "lenses", "lense"}},
		{"glass", []string{"glass"}},
		{"uv lamp", []string{"uv lamp", "lamp"}},
		{"", nil},
	}

	for _, tc := range tests {
		got := KeywordTerms(tc.keyword)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("KeywordTerms(%q) = %v, want %v", tc.keyword, got, tc.want)
		}
	}
}

func TestFindTermMatches(t *testing.T) {
	content := "Our hair powder adds volume. Pomade gives shine!\n\nTry the HAIR   POWDER with a comb? Combs sold separately."

	matches := FindTermMatches(content, []string{"hair powder", "comb", "wax"}, 0)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(matches), matches)
	}

	if matches[0].Term != "hair powder" || matches[0].Count != 2 {
		t.Errorf("unexpected first match: %+v", matches[0])
	}
	want := []string{"Our hair powder adds volume.", "Try the HAIR POWDER with a comb?"}
	if !reflect.DeepEqual(matches[0].Sentences, want) {
		t.Errorf("sentences = %q, want %q", matches[0].Sentences, want)
	}

	if matches[1].Term != "comb" || matches[1].Count != 2 || len(matches[1].Sentences) != 2 {
		t.Errorf("unexpected comb match: %+v", matches[1])
	}
}

func TestFindTermMatches_MaxSentences(t *testing.T) {
	content := strings.Repeat("Hair powder is great. ", 10)
	matches := FindTermMatches(content, []string{"powder"}, 3)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Count != 10 || len(matches[0].Sentences) != 3 {
		t.Errorf("expected count 10 with 3 sentences, got %+v", matches[0])
	}
}

func TestFindTermMatches_Empty(t *testing.T) {
	if got := FindTermMatches("", []string{"x"}, 0); got != nil {
		t.Errorf("expected nil for empty content, got %v", got)
	}
	if got := FindTermMatches("text", nil, 0); got != nil {
		t.Errorf("expected nil for no terms, got %v", got)
	}
}

func TestSplitIntoSentences_Unicode(t *testing.T) {
	got := splitIntoSentences("Crème brûlée. Déjà vu!  Naïve")
	want := []string{"Crème brûlée.", "Déjà vu!", "Naïve"}
	if len(got) != len(want) {
		t.Fatalf("expected %d sentences, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].original != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i].original, want[i])
		}
	}
}
