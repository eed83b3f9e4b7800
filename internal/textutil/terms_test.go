package textutil

import (
	"math"
	"slices"
	"testing"
)

func TestTokenizeDropsShortWordsAndStopwords(t *testing.T) {
	got := Tokenize("The Episode: Why Congress CAVED on the Budget (Part 2)")
	want := []string{"congress", "caved", "budget", "part"}
	if !slices.Equal(got, want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
	if got := Tokenize("a of to"); len(got) != 0 {
		t.Fatalf("expected no tokens, got %v", got)
	}
}

func TestNewFingerprintCountsRepeats(t *testing.T) {
	fp := NewFingerprint("border border crisis")
	if fp["border"] != 2 || fp["crisis"] != 1 || len(fp) != 2 {
		t.Fatalf("unexpected fingerprint %v", fp)
	}
	if NewFingerprint("the and") != nil {
		t.Fatal("expected nil fingerprint for stopword-only text")
	}
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		test func(float64) bool
	}{
		{"identical", "Border crisis deepens", "Border crisis deepens", func(s float64) bool { return math.Abs(s-1) < 1e-9 }},
		{"disjoint", "apple banana cherry", "dog elephant frog", func(s float64) bool { return s == 0 }},
		{"partial", "quick brown fox", "slow brown cat", func(s float64) bool { return s > 0 && s < 1 }},
		{"empty side", "", "border crisis", func(s float64) bool { return s == 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TitleSimilarity(tc.a, tc.b); !tc.test(got) {
				t.Fatalf("TitleSimilarity(%q, %q) = %v", tc.a, tc.b, got)
			}
		})
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := NewFingerprint("senate vote on border funding")
	b := NewFingerprint("border funding vote fails")
	if CosineSimilarity(a, b) != CosineSimilarity(b, a) {
		t.Fatal("expected symmetric similarity")
	}
}

func TestTitleSimilarityIgnoresCaseAndAccents(t *testing.T) {
	got := TitleSimilarity("Café Politics: The Résumé", "cafe politics resume")
	if math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected folded titles to match exactly, got %v", got)
	}
}

func TestWordCountAndCollapse(t *testing.T) {
	if n := WordCount("  one\ttwo\nthree  "); n != 3 {
		t.Fatalf("WordCount = %d", n)
	}
	if got := CollapseWhitespace("  a \n\n b\tc "); got != "a b c" {
		t.Fatalf("CollapseWhitespace = %q", got)
	}
}
