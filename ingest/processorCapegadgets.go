package ingest

import (
	"context"
	"strings"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
	"bitbucket.org/mmdatafocus/salesfacts_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// onlineStoreCode is the outlet code this vendor uses for web sales.
const onlineStoreCode = "ON"

// capegadgetsProcessor handles the South African layout: a leading outlet
// code column instead of a store name (code "ON" means the webshop),
// alphanumeric internal item codes, and no revenue column. Amounts are
// derived as quantity times the reseller's list price.
type capegadgetsProcessor struct {
	baseProcessor
	prices ReferenceClient
}

func newCapegadgetsProcessor(tenantId string, resellerId int, rates *config.RateTable, prices ReferenceClient) *capegadgetsProcessor {
	profile, _ := GetVendorProfile(VendorCapegadgets)
	return &capegadgetsProcessor{
		baseProcessor: baseProcessor{
			profile:    profile,
			tenantId:   tenantId,
			resellerId: resellerId,
			rates:      rates,
		},
		prices: prices,
	}
}

func storeFromOutletCode(code string) (identifier string, storeType models.StoreType) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == onlineStoreCode {
		return code, models.StoreTypeOnline
	}
	return code, models.StoreTypePhysical
}

func (p *capegadgetsProcessor) ExtractStores(wb *excelize.File) ([]models.NewStore, error) {
	rows, err := p.ExtractRows(wb)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var stores []models.NewStore
	for _, row := range rows {
		identifier, storeType := storeFromOutletCode(row.Fields[FieldStoreCode])
		if identifier == "" || seen[identifier] {
			continue
		}
		seen[identifier] = true
		stores = append(stores, models.NewStore{
			StoreIdentifier: identifier,
			Type:            storeType,
		})
	}
	return stores, nil
}

func (p *capegadgetsProcessor) TransformRow(ctx context.Context, raw RawRow) (*Candidate, *RowError) {
	candidate, rowErr := p.transformCommon(raw)
	if rowErr != nil {
		return nil, rowErr
	}
	candidate.StoreIdentifier, candidate.StoreType = storeFromOutletCode(raw.Fields[FieldStoreCode])
	if candidate.StoreIdentifier == "" {
		return nil, &RowError{
			RowNumber: raw.RowNumber,
			Kind:      ErrKindTransform,
			Message:   "missing outlet code",
			Sample:    raw.sample(),
		}
	}

	price, found, err := p.prices.ListPrice(ctx, p.resellerId, candidate.ProductCode)
	if err != nil {
		return nil, &RowError{
			RowNumber: raw.RowNumber,
			Kind:      ErrKindTransform,
			Message:   "list price lookup failed: " + err.Error(),
			Sample:    raw.sample(),
		}
	}
	if !found {
		return nil, &RowError{
			RowNumber: raw.RowNumber,
			Kind:      ErrKindTransform,
			Message:   "no list price for item code " + candidate.ProductCode,
			Sample:    raw.sample(),
		}
	}

	quantity := candidate.Quantity
	if quantity < 0 {
		quantity = -quantity
	}
	candidate.SalesAmount = price.Mul(decimal.NewFromInt(quantity)).Round(2)
	base, convErr := p.convertToBase(candidate.SalesAmount)
	if convErr != nil {
		return nil, &RowError{
			RowNumber: raw.RowNumber,
			Kind:      ErrKindTransform,
			Message:   convErr.Error(),
			Sample:    raw.sample(),
		}
	}
	candidate.SalesAmountBase = base
	return candidate, nil
}
