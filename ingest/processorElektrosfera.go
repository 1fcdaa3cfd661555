package ingest

import (
	"context"
	"errors"
	"strings"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
	"bitbucket.org/mmdatafocus/salesfacts_backend/models"
	"github.com/xuri/excelize/v2"
)

// elektrosferaProcessor handles the Polish sheet-per-store layout: every
// sheet is one store and the sheet name is the store identifier, so rows
// carry no store column of their own. Sheets whose headers match none of
// the profile's aliases (summary tabs and the like) are skipped.
type elektrosferaProcessor struct {
	baseProcessor
}

func newElektrosferaProcessor(tenantId string, resellerId int, rates *config.RateTable) *elektrosferaProcessor {
	profile, _ := GetVendorProfile(VendorElektrosfera)
	return &elektrosferaProcessor{baseProcessor{
		profile:    profile,
		tenantId:   tenantId,
		resellerId: resellerId,
		rates:      rates,
	}}
}

func (p *elektrosferaProcessor) ExtractRows(wb *excelize.File) ([]RawRow, error) {
	var all []RawRow
	matched := 0
	for _, sheet := range wb.GetSheetList() {
		rows, err := p.extractSheetRows(wb, sheet)
		if err != nil {
			if errors.Is(err, errNoMappedColumns) {
				continue
			}
			return nil, err
		}
		matched++
		store := strings.TrimSpace(sheet)
		for i := range rows {
			rows[i].StoreIdentifier = store
			rows[i].StoreType = models.StoreTypePhysical
		}
		all = append(all, rows...)
	}
	if matched == 0 {
		return nil, ErrSheetMissing
	}
	return all, nil
}

func (p *elektrosferaProcessor) ExtractStores(wb *excelize.File) ([]models.NewStore, error) {
	rows, err := p.ExtractRows(wb)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var stores []models.NewStore
	for _, row := range rows {
		if row.StoreIdentifier == "" || seen[row.StoreIdentifier] {
			continue
		}
		seen[row.StoreIdentifier] = true
		stores = append(stores, models.NewStore{
			StoreIdentifier: row.StoreIdentifier,
			Type:            models.StoreTypePhysical,
		})
	}
	return stores, nil
}

func (p *elektrosferaProcessor) TransformRow(_ context.Context, raw RawRow) (*Candidate, *RowError) {
	return p.transformCommon(raw)
}
