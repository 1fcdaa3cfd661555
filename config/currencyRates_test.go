package config

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDefaultRateTable(t *testing.T) {
	table := DefaultRateTable()
	cases := map[string]string{
		"EUR": "1",
		"GBP": "1.17",
		"PLN": "0.23",
		"ZAR": "0.05",
	}
	for currency, want := range cases {
		rate, ok := table.Rate(currency)
		if !ok {
			t.Fatalf("missing rate for %s", currency)
		}
		if rate.String() != want {
			t.Fatalf("rate for %s = %s, want %s", currency, rate.String(), want)
		}
	}
	if _, ok := table.Rate("USD"); ok {
		t.Fatal("unexpected rate for USD")
	}
}

func TestRateLookupNormalizesSymbol(t *testing.T) {
	table := DefaultRateTable()
	rate, ok := table.Rate(" gbp ")
	if !ok || rate.String() != "1.17" {
		t.Fatalf("expected normalized lookup to hit, got %v %s", ok, rate.String())
	}
}

func TestRateConversion(t *testing.T) {
	table := DefaultRateTable()
	rate, _ := table.Rate("GBP")
	got := decimal.NewFromInt(100).Mul(rate).Round(2)
	if got.String() != "117" {
		t.Fatalf("100 GBP = %s EUR, want 117", got.String())
	}
}

func TestWithOverridesDoesNotMutateReceiver(t *testing.T) {
	base := DefaultRateTable()
	merged := base.WithOverrides(map[string]decimal.Decimal{
		"gbp": decimal.NewFromFloat(1.25),
		"SEK": decimal.NewFromFloat(0.09),
	})

	rate, _ := merged.Rate("GBP")
	if rate.String() != "1.25" {
		t.Fatalf("override not applied, got %s", rate.String())
	}
	if _, ok := merged.Rate("SEK"); !ok {
		t.Fatal("new currency from overrides missing")
	}

	rate, _ = base.Rate("GBP")
	if rate.String() != "1.17" {
		t.Fatalf("receiver mutated, GBP now %s", rate.String())
	}
	if _, ok := base.Rate("SEK"); ok {
		t.Fatal("receiver mutated with new currency")
	}
}

func TestRateTableEqual(t *testing.T) {
	base := DefaultRateTable()

	if !base.Equal(DefaultRateTable()) {
		t.Fatal("fresh tables with identical rates must compare equal")
	}
	if !base.Equal(base.WithOverrides(nil)) {
		t.Fatal("a copy without overrides must compare equal")
	}

	overridden := base.WithOverrides(map[string]decimal.Decimal{"GBP": decimal.NewFromFloat(1.25)})
	if base.Equal(overridden) {
		t.Fatal("tables with different rates must not compare equal")
	}
	extra := base.WithOverrides(map[string]decimal.Decimal{"SEK": decimal.NewFromFloat(0.09)})
	if base.Equal(extra) {
		t.Fatal("tables with different currency sets must not compare equal")
	}
	if base.Equal(nil) {
		t.Fatal("nil is never equal to a populated table")
	}
}

func TestLoadRateTableMergesEnv(t *testing.T) {
	t.Setenv("CURRENCY_RATES_JSON", `{"PLN":"0.25","NOK":"0.085"}`)
	table := LoadRateTable()

	rate, _ := table.Rate("PLN")
	if rate.String() != "0.25" {
		t.Fatalf("env override not applied, PLN = %s", rate.String())
	}
	rate, ok := table.Rate("NOK")
	if !ok || rate.String() != "0.085" {
		t.Fatalf("env-added currency missing, got %v %s", ok, rate.String())
	}
	// untouched defaults survive the merge
	rate, _ = table.Rate("GBP")
	if rate.String() != "1.17" {
		t.Fatalf("default lost in merge, GBP = %s", rate.String())
	}
}

func TestLoadRateTableIgnoresBadEnv(t *testing.T) {
	t.Setenv("CURRENCY_RATES_JSON", "not-json")
	table := LoadRateTable()
	rate, ok := table.Rate("EUR")
	if !ok || rate.String() != "1" {
		t.Fatal("malformed env must fall back to defaults")
	}
}
