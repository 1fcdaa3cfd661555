package ingest

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/salesfacts_backend/utils"
	"github.com/shopspring/decimal"
)

func validCandidate() *Candidate {
	return &Candidate{
		RowNumber:       2,
		TenantId:        "t1",
		ResellerId:      7,
		ProductCode:     "4006381333931",
		ProductId:       "4006381333931",
		StoreIdentifier: "Berlin Mitte",
		StoreId:         3,
		SaleDate:        time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
		Quantity:        3,
		SalesAmount:     decimal.RequireFromString("100.00"),
		Currency:        "EUR",
		SalesAmountBase: decimal.RequireFromString("100.00"),
		Year:            2024,
		Month:           3,
		Quarter:         1,
	}
}

func tenantCtx(tenantId string) context.Context {
	return utils.SetTenantIdInContext(context.Background(), tenantId)
}

func mediamartProfile(t *testing.T) VendorProfile {
	t.Helper()
	profile, ok := GetVendorProfile(VendorMediamart)
	if !ok {
		t.Fatal("mediamart profile missing")
	}
	return profile
}

func TestValidate_AcceptsValidCandidate(t *testing.T) {
	engine := NewValidationEngine(mediamartProfile(t))
	valid, rowErrs, stats := engine.Validate(tenantCtx("t1"), []*Candidate{validCandidate()})
	if len(valid) != 1 || len(rowErrs) != 0 {
		t.Fatalf("expected clean pass, got %d valid %d errors: %+v", len(valid), len(rowErrs), rowErrs)
	}
	if stats.Passed != 1 || stats.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestValidate_FirstFailingLayerWins(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Candidate)
		message string
	}{
		{"missing product", func(c *Candidate) { c.ProductId = "" }, "missing product id"},
		{"missing store", func(c *Candidate) { c.StoreId = 0 }, "missing store"},
		{"zero quantity", func(c *Candidate) { c.Quantity = 0 }, "quantity is zero"},
		{"short ean", func(c *Candidate) { c.ProductId = "12345" }, "not a valid EAN-13"},
		{"bad currency", func(c *Candidate) { c.Currency = "EU" }, "not a valid ISO 4217 code"},
		{"negative non-return", func(c *Candidate) { c.Quantity = -2; c.IsReturn = false }, "negative quantity"},
		{"negative amount", func(c *Candidate) { c.SalesAmount = decimal.RequireFromString("-1") }, "negative sales amount"},
		{"month range", func(c *Candidate) { c.Month = 13 }, "month 13 out of range"},
		{"quarter range", func(c *Candidate) { c.Quarter = 5 }, "quarter 5 out of range"},
		{"year range", func(c *Candidate) { c.Year = 1999 }, "year 1999 out of range"},
	}
	engine := NewValidationEngine(mediamartProfile(t))
	for _, tc := range cases {
		cand := validCandidate()
		tc.mutate(cand)
		valid, rowErrs, _ := engine.Validate(tenantCtx("t1"), []*Candidate{cand})
		if len(valid) != 0 || len(rowErrs) != 1 {
			t.Fatalf("%s: expected 1 rejection, got %d valid %d errors", tc.name, len(valid), len(rowErrs))
		}
		if rowErrs[0].Kind != ErrKindValidation {
			t.Fatalf("%s: expected validation error, got %s", tc.name, rowErrs[0].Kind)
		}
		if !contains(rowErrs[0].Message, tc.message) {
			t.Fatalf("%s: expected message containing %q, got %q", tc.name, tc.message, rowErrs[0].Message)
		}
	}
}

func TestValidate_TenantMismatchAlwaysRejects(t *testing.T) {
	engine := NewValidationEngine(mediamartProfile(t))

	// Even a row that passes every other layer is dropped when its tenant
	// differs from the upload's tenant.
	cand := validCandidate()
	valid, rowErrs, _ := engine.Validate(tenantCtx("t2"), []*Candidate{cand})
	if len(valid) != 0 || len(rowErrs) != 1 {
		t.Fatalf("expected tenant rejection, got %d valid %d errors", len(valid), len(rowErrs))
	}
	if !contains(rowErrs[0].Message, "does not match upload tenant") {
		t.Fatalf("unexpected message: %q", rowErrs[0].Message)
	}

	// The tenant check also overrides an earlier-layer failure message.
	bad := validCandidate()
	bad.ProductId = ""
	_, rowErrs, _ = engine.Validate(tenantCtx("t2"), []*Candidate{bad})
	if !contains(rowErrs[0].Message, "does not match upload tenant") {
		t.Fatalf("tenant mismatch should take precedence, got %q", rowErrs[0].Message)
	}
}

func TestValidate_ReturnsMayBeNegative(t *testing.T) {
	engine := NewValidationEngine(mediamartProfile(t))
	cand := validCandidate()
	cand.Quantity = -3
	cand.IsReturn = true
	valid, rowErrs, _ := engine.Validate(tenantCtx("t1"), []*Candidate{cand})
	if len(valid) != 1 || len(rowErrs) != 0 {
		t.Fatalf("return row should pass, got %d valid %d errors: %+v", len(valid), len(rowErrs), rowErrs)
	}
}

func TestValidate_Uuid4AllowedForInternalCatalogs(t *testing.T) {
	profile, ok := GetVendorProfile(VendorCapegadgets)
	if !ok {
		t.Fatal("capegadgets profile missing")
	}
	engine := NewValidationEngine(profile)
	cand := validCandidate()
	cand.ProductId = "8b7e6f7e-2f3a-4f6d-9d2a-1c5b8a9e0f4d"
	valid, rowErrs, _ := engine.Validate(tenantCtx("t1"), []*Candidate{cand})
	if len(valid) != 1 {
		t.Fatalf("uuid4 product id should pass for this vendor: %+v", rowErrs)
	}

	// The same id fails for a strictly numeric vendor.
	strict := NewValidationEngine(mediamartProfile(t))
	valid, rowErrs, _ = strict.Validate(tenantCtx("t1"), []*Candidate{cand})
	if len(valid) != 0 || len(rowErrs) != 1 {
		t.Fatal("uuid4 product id should fail for numeric-only vendor")
	}
}

func contains(haystack, needle string) bool {
	return len(needle) == 0 || (len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0)
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
