package ingest

import (
	"errors"
	"testing"
)

func TestDetectVendor_KnownLayouts(t *testing.T) {
	cases := []struct {
		name   string
		input  DetectionInput
		vendor string
	}{
		{
			name: "german single sheet",
			input: DetectionInput{
				FileName:   "Mediamart_Abverkauf_2024-03.xlsx",
				SheetNames: []string{"Abverkauf"},
				Headers:    []string{"Artikelnummer", "Filiale", "Datum", "Menge", "Umsatz"},
			},
			vendor: VendorMediamart,
		},
		{
			name: "uk sell through",
			input: DetectionInput{
				FileName:   "TH_Sales_Week_02.xlsx",
				SheetNames: []string{"Sell Through"},
				Headers:    []string{"SKU", "Branch", "Week Ending", "Units", "Revenue"},
			},
			vendor: VendorTechhouse,
		},
		{
			name: "polish sheet per store",
			input: DetectionInput{
				FileName:   "raport_sprzedazy_marzec.xlsx",
				SheetNames: []string{"Sklep Warszawa", "Sklep Krakow"},
				Headers:    []string{"Kod produktu", "Data", "Ilość", "Wartość"},
			},
			vendor: VendorElektrosfera,
		},
		{
			name: "south african outlet codes",
			input: DetectionInput{
				FileName:   "Cape_Gadgets_March.xlsx",
				SheetNames: []string{"Sales Export"},
				Headers:    []string{"Outlet", "Item Code", "Date", "Sold"},
			},
			vendor: VendorCapegadgets,
		},
		{
			name: "nordic daily sales",
			input: DetectionInput{
				FileName:   "nordicline_daily_2024_03.xlsx",
				SheetNames: []string{"Daily Sales"},
				Headers:    []string{"EAN", "Store ID", "Day", "Quantity", "Net Sales"},
			},
			vendor: VendorNordicline,
		},
	}
	for _, tc := range cases {
		detection, err := DetectVendor(tc.input)
		if err != nil {
			t.Fatalf("%s: DetectVendor error: %v", tc.name, err)
		}
		if detection.Vendor != tc.vendor {
			t.Fatalf("%s: expected vendor %s, got %s (confidence %.2f)", tc.name, tc.vendor, detection.Vendor, detection.Confidence)
		}
		if detection.Confidence < DetectionThreshold {
			t.Fatalf("%s: confidence %.2f below threshold", tc.name, detection.Confidence)
		}
	}
}

func TestDetectVendor_FullMatchScoresOne(t *testing.T) {
	detection, err := DetectVendor(DetectionInput{
		FileName:   "mediamart_export.xlsx",
		SheetNames: []string{"Abverkauf"},
		Headers:    []string{"Artikelnummer", "Filiale", "Menge"},
	})
	if err != nil {
		t.Fatalf("DetectVendor error: %v", err)
	}
	if detection.Confidence < 0.999 {
		t.Fatalf("expected full confidence, got %.4f", detection.Confidence)
	}
}

func TestDetectVendor_UnknownFileFails(t *testing.T) {
	_, err := DetectVendor(DetectionInput{
		FileName:   "quarterly_budget.xlsx",
		SheetNames: []string{"Summary"},
		Headers:    []string{"Account", "Amount"},
	})
	if err == nil {
		t.Fatal("expected detection to fail for unknown layout")
	}
	if !errors.Is(err, ErrVendorNotDetected) {
		t.Fatalf("expected ErrVendorNotDetected, got %v", err)
	}
}

func TestDetectVendor_ErrorNamesBestCandidate(t *testing.T) {
	// Filename alone gives mediamart 0.4, below the 0.5 threshold.
	_, err := DetectVendor(DetectionInput{
		FileName:   "mediamart.xlsx",
		SheetNames: []string{"Tab1"},
		Headers:    []string{"Col A", "Col B"},
	})
	var detErr *DetectionError
	if !errors.As(err, &detErr) {
		t.Fatalf("expected *DetectionError, got %v", err)
	}
	if detErr.Best != VendorMediamart {
		t.Fatalf("expected best candidate %s, got %s", VendorMediamart, detErr.Best)
	}
	if detErr.BestScore >= DetectionThreshold {
		t.Fatalf("best score %.2f should be below threshold", detErr.BestScore)
	}
}

func TestKeywordScore(t *testing.T) {
	cases := []struct {
		keywords  []string
		haystacks []string
		expected  float64
	}{
		{[]string{"sku", "branch"}, []string{"SKU", "Branch", "Units"}, 1.0},
		{[]string{"sku", "branch"}, []string{"SKU"}, 0.5},
		{[]string{"sku"}, []string{"Units"}, 0.0},
		{nil, []string{"anything"}, 0.0},
	}
	for _, tc := range cases {
		if got := keywordScore(tc.keywords, tc.haystacks); got != tc.expected {
			t.Fatalf("keywordScore(%v, %v) expected %.2f, got %.2f", tc.keywords, tc.haystacks, tc.expected, got)
		}
	}
}
