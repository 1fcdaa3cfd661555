package ingest

import (
	"context"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
)

// techhouseProcessor handles the UK layout: headers on row 2, GBP amounts,
// returns encoded as parenthesised quantities ("(10)" means -10). The
// parenthesis handling itself lives in the shared quantity parser, gated
// by the profile flag.
type techhouseProcessor struct {
	baseProcessor
}

func newTechhouseProcessor(tenantId string, resellerId int, rates *config.RateTable) *techhouseProcessor {
	profile, _ := GetVendorProfile(VendorTechhouse)
	return &techhouseProcessor{baseProcessor{
		profile:    profile,
		tenantId:   tenantId,
		resellerId: resellerId,
		rates:      rates,
	}}
}

func (p *techhouseProcessor) TransformRow(_ context.Context, raw RawRow) (*Candidate, *RowError) {
	return p.transformCommon(raw)
}
