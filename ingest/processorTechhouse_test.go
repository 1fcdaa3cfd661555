package ingest

import (
	"context"
	"testing"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
)

func TestTechhouseHeaderOnSecondRow(t *testing.T) {
	wb := buildWorkbook(t, []sheetData{{
		name: "Sell Through",
		rows: [][]interface{}{
			{"TechHouse Ltd - Weekly Sell Through"},
			{"SKU", "Branch", "Week Ending", "Units", "Revenue"},
			{"5012345678900", "Leeds", "12/01/2024", "8", "1039.20"},
		},
	}})
	defer wb.Close()

	p := newTechhouseProcessor("t1", 3, config.DefaultRateTable())
	rows, err := p.ExtractRows(wb)
	if err != nil {
		t.Fatalf("ExtractRows error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 data row, got %d", len(rows))
	}
	if rows[0].RowNumber != 3 {
		t.Fatalf("expected workbook row 3, got %d", rows[0].RowNumber)
	}
	if rows[0].Fields[FieldProductCode] != "5012345678900" {
		t.Fatalf("unexpected fields: %+v", rows[0].Fields)
	}
}

func TestTechhouseParenthesisReturns(t *testing.T) {
	wb := buildWorkbook(t, []sheetData{{
		name: "Sell Through",
		rows: [][]interface{}{
			{"TechHouse Ltd - Weekly Sell Through"},
			{"SKU", "Branch", "Week Ending", "Units", "Revenue"},
			{"5012345678900", "Leeds", "12/01/2024", "(10)", "(129.90)"},
		},
	}})
	defer wb.Close()

	p := newTechhouseProcessor("t1", 3, config.DefaultRateTable())
	rows, err := p.ExtractRows(wb)
	if err != nil {
		t.Fatalf("ExtractRows error: %v", err)
	}

	cand, rowErr := p.TransformRow(context.Background(), rows[0])
	if rowErr != nil {
		t.Fatalf("TransformRow error: %+v", rowErr)
	}
	if cand.Quantity != -10 {
		t.Fatalf("expected quantity -10, got %d", cand.Quantity)
	}
	if !cand.IsReturn {
		t.Fatal("expected return flag")
	}
	// Refund magnitude stays non-negative; the sign lives in quantity.
	if cand.SalesAmount.String() != "129.9" {
		t.Fatalf("expected amount 129.9, got %s", cand.SalesAmount.String())
	}
	if cand.Currency != "GBP" {
		t.Fatalf("expected GBP, got %s", cand.Currency)
	}
	// 129.90 GBP * 1.17 = 151.98 EUR
	if cand.SalesAmountBase.String() != "151.98" {
		t.Fatalf("expected base amount 151.98, got %s", cand.SalesAmountBase.String())
	}
}
