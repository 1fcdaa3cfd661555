package ingest

import (
	"context"
	"fmt"
	"testing"

	"bitbucket.org/mmdatafocus/salesfacts_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type sheetData struct {
	name string
	rows [][]interface{}
}

func buildWorkbook(t *testing.T, sheets []sheetData) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.name); err != nil {
				t.Fatalf("SetSheetName(%q): %v", sheet.name, err)
			}
		} else {
			if _, err := f.NewSheet(sheet.name); err != nil {
				t.Fatalf("NewSheet(%q): %v", sheet.name, err)
			}
		}
		for r := range sheet.rows {
			cell := fmt.Sprintf("A%d", r+1)
			if err := f.SetSheetRow(sheet.name, cell, &sheet.rows[r]); err != nil {
				t.Fatalf("SetSheetRow(%q, %s): %v", sheet.name, cell, err)
			}
		}
	}
	return f
}

// fakeReference is an in-memory ReferenceClient for processor and router
// tests.
type fakeReference struct {
	prices   map[string]decimal.Decimal
	products map[string]string
	stores   map[string]*models.Store
	nextId   int
}

func newFakeReference() *fakeReference {
	return &fakeReference{
		prices:   map[string]decimal.Decimal{},
		products: map[string]string{},
		stores:   map[string]*models.Store{},
	}
}

func (f *fakeReference) GetOrCreateStore(_ context.Context, tenantId string, resellerId int, input models.NewStore) (*models.Store, error) {
	if store, ok := f.stores[input.StoreIdentifier]; ok {
		return store, nil
	}
	f.nextId++
	store := &models.Store{
		ID:              f.nextId,
		TenantId:        tenantId,
		ResellerId:      resellerId,
		StoreIdentifier: input.StoreIdentifier,
		Type:            input.Type,
	}
	f.stores[input.StoreIdentifier] = store
	return store, nil
}

func (f *fakeReference) ResolveProduct(_ context.Context, _ int, productCode string, allowNonNumeric bool) (string, error) {
	if id, ok := f.products[productCode]; ok {
		return id, nil
	}
	return NormalizeProductId(productCode, allowNonNumeric)
}

func (f *fakeReference) ListPrice(_ context.Context, _ int, productCode string) (decimal.Decimal, bool, error) {
	price, ok := f.prices[productCode]
	return price, ok, nil
}
