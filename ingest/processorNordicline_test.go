package ingest

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
)

func nordiclineCandidates(t *testing.T, rows [][]interface{}) []*Candidate {
	t.Helper()
	header := []interface{}{"EAN", "Store ID", "Day", "Quantity", "Net Sales"}
	wb := buildWorkbook(t, []sheetData{{
		name: "Daily Sales",
		rows: append([][]interface{}{header}, rows...),
	}})
	defer wb.Close()

	p := newNordiclineProcessor("t1", 11, config.DefaultRateTable())
	raw, err := p.ExtractRows(wb)
	if err != nil {
		t.Fatalf("ExtractRows error: %v", err)
	}
	var cands []*Candidate
	for _, row := range raw {
		cand, rowErr := p.TransformRow(context.Background(), row)
		if rowErr != nil {
			t.Fatalf("TransformRow error: %+v", rowErr)
		}
		cands = append(cands, cand)
	}
	return p.PostProcess(cands)
}

func TestNordiclineMonthlyAggregation(t *testing.T) {
	cands := nordiclineCandidates(t, [][]interface{}{
		{"6411234567897", "HEL-01", "2024-01-03", "2", "20.00"},
		{"6411234567897", "HEL-01", "2024-01-17", "3", "30.00"},
		{"6411234567897", "HEL-01", "2024-02-01", "1", "10.00"},
		{"6411234567897", "TKU-02", "2024-01-05", "4", "40.00"},
	})
	if len(cands) != 3 {
		t.Fatalf("expected 3 aggregated candidates, got %d", len(cands))
	}

	jan := cands[0]
	if jan.StoreIdentifier != "HEL-01" {
		t.Fatalf("unexpected first group: %+v", jan)
	}
	if jan.Quantity != 5 {
		t.Fatalf("expected summed quantity 5, got %d", jan.Quantity)
	}
	if jan.SalesAmount.String() != "50" {
		t.Fatalf("expected summed amount 50, got %s", jan.SalesAmount.String())
	}
	expected := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !jan.SaleDate.Equal(expected) {
		t.Fatalf("expected sale date %s, got %s", expected, jan.SaleDate)
	}
	if jan.Month != 1 || jan.Quarter != 1 {
		t.Fatalf("unexpected calendar on aggregate: month %d quarter %d", jan.Month, jan.Quarter)
	}
}

func TestNordiclineNetReturnMonth(t *testing.T) {
	cands := nordiclineCandidates(t, [][]interface{}{
		{"6411234567897", "HEL-01", "2024-01-03", "3", "30.00"},
		{"6411234567897", "HEL-01", "2024-01-10", "-7", "70.00"},
	})
	if len(cands) != 1 {
		t.Fatalf("expected 1 aggregated candidate, got %d", len(cands))
	}
	if cands[0].Quantity != -4 {
		t.Fatalf("expected net quantity -4, got %d", cands[0].Quantity)
	}
	if !cands[0].IsReturn {
		t.Fatal("expected net-negative month to be flagged as return")
	}
}

func TestNordiclineAggregateKeepsFirstRowNumber(t *testing.T) {
	cands := nordiclineCandidates(t, [][]interface{}{
		{"6411234567897", "HEL-01", "2024-01-20", "1", "10.00"},
		{"6411234567897", "HEL-01", "2024-01-03", "1", "10.00"},
	})
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	if cands[0].RowNumber != 2 {
		t.Fatalf("expected first source row 2, got %d", cands[0].RowNumber)
	}
}
