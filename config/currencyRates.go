package config

import (
	"encoding/json"
	"log"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// RateTable is a static multiplicative currency lookup (vendor currency -> base EUR).
// Rates are configuration data, not a live feed: conversion is deterministic and
// one-directional. Per-tenant overrides are layered on top via WithOverrides.
type RateTable struct {
	rates map[string]decimal.Decimal
}

// Shipped defaults. Overridable via CURRENCY_RATES_JSON, e.g.
//
//	CURRENCY_RATES_JSON={"EUR":"1.0","GBP":"1.17","PLN":"0.23","ZAR":"0.05"}
func defaultRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"EUR": decimal.NewFromFloat(1.0),
		"GBP": decimal.NewFromFloat(1.17),
		"PLN": decimal.NewFromFloat(0.23),
		"ZAR": decimal.NewFromFloat(0.05),
	}
}

func DefaultRateTable() *RateTable {
	return &RateTable{rates: defaultRates()}
}

// LoadRateTable merges CURRENCY_RATES_JSON over the shipped defaults.
// A malformed env value is logged and ignored.
func LoadRateTable() *RateTable {
	table := DefaultRateTable()

	raw := strings.TrimSpace(os.Getenv("CURRENCY_RATES_JSON"))
	if raw == "" {
		return table
	}

	var parsed map[string]string
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		log.Printf("invalid CURRENCY_RATES_JSON, using defaults: %v", err)
		return table
	}
	for symbol, rateStr := range parsed {
		rate, err := decimal.NewFromString(rateStr)
		if err != nil {
			log.Printf("invalid rate for %s in CURRENCY_RATES_JSON: %v", symbol, err)
			continue
		}
		table.rates[strings.ToUpper(strings.TrimSpace(symbol))] = rate
	}
	return table
}

func (t *RateTable) Rate(currency string) (decimal.Decimal, bool) {
	if t == nil {
		return decimal.Zero, false
	}
	rate, ok := t.rates[strings.ToUpper(strings.TrimSpace(currency))]
	return rate, ok
}

// Equal reports whether both tables hold the same rates. Callers that
// rebuild a table per run (override reloads) compare by value, not by
// pointer, to decide whether anything actually changed.
func (t *RateTable) Equal(other *RateTable) bool {
	if t == nil || other == nil {
		return t == other
	}
	if len(t.rates) != len(other.rates) {
		return false
	}
	for symbol, rate := range t.rates {
		otherRate, ok := other.rates[symbol]
		if !ok || !rate.Equal(otherRate) {
			return false
		}
	}
	return true
}

// WithOverrides returns a copy with tenant-specific rates layered on top.
// The receiver is never mutated; a RateTable is shared between workers.
func (t *RateTable) WithOverrides(overrides map[string]decimal.Decimal) *RateTable {
	merged := make(map[string]decimal.Decimal, len(t.rates)+len(overrides))
	for k, v := range t.rates {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return &RateTable{rates: merged}
}
