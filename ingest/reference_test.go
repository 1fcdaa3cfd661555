package ingest

import (
	"context"
	"errors"
	"testing"
)

func TestNormalizeProductCode(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Product  ABC", "product abc"},
		{"product abc", "product abc"},
		{"  SpeakerX-200 ", "speakerx-200"},
		{"A\tB\nC", "a b c"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := normalizeProductCode(tc.in); got != tc.want {
			t.Fatalf("normalizeProductCode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"abc", "abc", 1},
		{"", "", 1},
		{"abcdefghij", "abcdefghiX", 0.9},
		{"abcd", "wxyz", 0},
	}
	for _, tc := range cases {
		got := similarity(tc.a, tc.b)
		if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("similarity(%q, %q) = %f, want %f", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSimilarityAgainstThreshold(t *testing.T) {
	// One edit in a 20-rune code scores 0.95 and clears the threshold; the
	// same edit in a 5-rune code scores 0.8 and does not.
	long := similarity("wireless speaker 200", "wireless speaker 20x")
	if long < FuzzyMatchThreshold {
		t.Fatalf("expected %f to clear threshold %f", long, FuzzyMatchThreshold)
	}
	short := similarity("ws200", "ws20x")
	if short >= FuzzyMatchThreshold {
		t.Fatalf("expected %f to miss threshold %f", short, FuzzyMatchThreshold)
	}
}

func TestResolveProductNumericCodes(t *testing.T) {
	r := NewReferenceResolver()

	id, err := r.ResolveProduct(context.Background(), 1, "4006381333931", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "4006381333931" {
		t.Fatalf("expected passthrough, got %q", id)
	}

	id, err = r.ResolveProduct(context.Background(), 1, "12345678", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "0000012345678" {
		t.Fatalf("expected zero-padded EAN, got %q", id)
	}
}

func TestResolveProductRejectsBadFormats(t *testing.T) {
	r := NewReferenceResolver()

	cases := []string{
		"",
		"   ",
		"12345678901234", // 14 digits
		"CG-1001",        // non-numeric while disallowed
	}
	for _, code := range cases {
		_, err := r.ResolveProduct(context.Background(), 1, code, false)
		if !errors.Is(err, ErrProductCodeFormat) {
			t.Fatalf("code %q: expected ErrProductCodeFormat, got %v", code, err)
		}
	}
}
