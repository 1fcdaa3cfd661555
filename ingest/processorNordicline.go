package ingest

import (
	"context"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
)

// nordiclineProcessor handles the Nordic daily-sales layout. Rows arrive at
// day granularity but facts are stored monthly, so PostProcess collapses
// each (product, store, year, month) group into a single candidate dated
// the first of the month with summed quantity and amounts.
type nordiclineProcessor struct {
	baseProcessor
}

func newNordiclineProcessor(tenantId string, resellerId int, rates *config.RateTable) *nordiclineProcessor {
	profile, _ := GetVendorProfile(VendorNordicline)
	return &nordiclineProcessor{baseProcessor{
		profile:    profile,
		tenantId:   tenantId,
		resellerId: resellerId,
		rates:      rates,
	}}
}

func (p *nordiclineProcessor) TransformRow(_ context.Context, raw RawRow) (*Candidate, *RowError) {
	return p.transformCommon(raw)
}

type monthlyKey struct {
	productCode string
	store       string
	year        int
	month       int
}

func (p *nordiclineProcessor) PostProcess(cands []*Candidate) []*Candidate {
	grouped := map[monthlyKey]*Candidate{}
	order := []monthlyKey{}
	for _, cand := range cands {
		key := monthlyKey{
			productCode: cand.ProductCode,
			store:       cand.StoreIdentifier,
			year:        cand.Year,
			month:       cand.Month,
		}
		agg, ok := grouped[key]
		if !ok {
			merged := *cand
			merged.SaleDate = time.Date(cand.Year, time.Month(cand.Month), 1, 0, 0, 0, 0, time.UTC)
			grouped[key] = &merged
			order = append(order, key)
			continue
		}
		agg.Quantity += cand.Quantity
		agg.SalesAmount = agg.SalesAmount.Add(cand.SalesAmount)
		agg.SalesAmountBase = agg.SalesAmountBase.Add(cand.SalesAmountBase)
		// error attribution points at the group's first source row
		if cand.RowNumber < agg.RowNumber {
			agg.RowNumber = cand.RowNumber
			agg.Sample = cand.Sample
		}
	}

	out := make([]*Candidate, 0, len(order))
	for _, key := range order {
		agg := grouped[key]
		agg.IsReturn = agg.Quantity < 0
		out = append(out, agg)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RowNumber < out[j].RowNumber })
	return out
}
