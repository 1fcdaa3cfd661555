package ingest

import "testing"

func TestNormalizeProductId_PadsNumericCodes(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"4006381333931", "4006381333931"},
		{"12345678", "0000012345678"},
		{"1", "0000000000001"},
		{"  96385074  ", "0000096385074"},
	}
	for _, tc := range cases {
		got, err := NormalizeProductId(tc.in, false)
		if err != nil {
			t.Fatalf("NormalizeProductId(%q) error: %v", tc.in, err)
		}
		if got != tc.expected {
			t.Fatalf("NormalizeProductId(%q) expected %s, got %s", tc.in, tc.expected, got)
		}
	}
}

func TestNormalizeProductId_RejectsBadCodes(t *testing.T) {
	if _, err := NormalizeProductId("", false); err == nil {
		t.Fatal("expected error for empty code")
	}
	if _, err := NormalizeProductId("12345678901234", false); err == nil {
		t.Fatal("expected error for code longer than 13 digits")
	}
	if _, err := NormalizeProductId("CG-1001", false); err == nil {
		t.Fatal("expected error for non-numeric code when not allowed")
	}
	got, err := NormalizeProductId("CG-1001", true)
	if err != nil {
		t.Fatalf("NormalizeProductId allowed non-numeric error: %v", err)
	}
	if got != "CG-1001" {
		t.Fatalf("expected pass-through, got %s", got)
	}
}

func TestIsValidEAN(t *testing.T) {
	cases := []struct {
		id    string
		valid bool
	}{
		{"4006381333931", true},
		{"0000012345678", true},
		{"400638133393", false},
		{"4006381333931X", false},
		{"CG-1001", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsValidEAN(tc.id); got != tc.valid {
			t.Fatalf("IsValidEAN(%q) expected %v, got %v", tc.id, tc.valid, got)
		}
	}
}
