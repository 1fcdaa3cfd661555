package ingest

import (
	"context"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
)

// mediamartProcessor handles the German-language layout: single "Abverkauf"
// sheet, decimal-comma EUR amounts, no vendor quirks beyond localization.
type mediamartProcessor struct {
	baseProcessor
}

func newMediamartProcessor(tenantId string, resellerId int, rates *config.RateTable) *mediamartProcessor {
	profile, _ := GetVendorProfile(VendorMediamart)
	return &mediamartProcessor{baseProcessor{
		profile:    profile,
		tenantId:   tenantId,
		resellerId: resellerId,
		rates:      rates,
	}}
}

func (p *mediamartProcessor) TransformRow(_ context.Context, raw RawRow) (*Candidate, *RowError) {
	return p.transformCommon(raw)
}
