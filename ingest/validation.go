package ingest

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/salesfacts_backend/utils"
	"github.com/go-playground/validator/v10"
)

// Validation runs in four ordered layers and reports the first failing
// layer per row:
//
//	1. required   - every canonical field is present
//	2. format     - product id, currency code shape
//	3. business   - value ranges and return semantics
//	4. tenant     - the row belongs to the upload's tenant, always checked
//
// The tenant layer is unconditional: a cross-tenant row is dropped even if
// earlier layers already failed.
type ValidationEngine struct {
	validate *validator.Validate
	profile  VendorProfile
}

type ValidationStats struct {
	Checked int
	Passed  int
	Failed  int
}

func NewValidationEngine(profile VendorProfile) *ValidationEngine {
	return &ValidationEngine{
		validate: validator.New(),
		profile:  profile,
	}
}

// Validate filters candidates to the valid subset. Rejected rows become
// RowErrors; the batch always continues.
func (e *ValidationEngine) Validate(ctx context.Context, cands []*Candidate) ([]*Candidate, []RowError, ValidationStats) {
	tenantId, _ := utils.GetTenantIdFromContext(ctx)

	var valid []*Candidate
	var rowErrs []RowError
	stats := ValidationStats{Checked: len(cands)}

	for _, cand := range cands {
		msg := e.firstFailure(cand)

		// cross-tenant rows are rejected regardless of other outcomes
		if cand.TenantId != tenantId {
			msg = fmt.Sprintf("row tenant %q does not match upload tenant %q", cand.TenantId, tenantId)
		}

		if msg != "" {
			stats.Failed++
			rowErrs = append(rowErrs, RowError{
				RowNumber: cand.RowNumber,
				Kind:      ErrKindValidation,
				Message:   msg,
				Sample:    cand.Sample,
			})
			continue
		}
		stats.Passed++
		valid = append(valid, cand)
	}
	return valid, rowErrs, stats
}

func (e *ValidationEngine) firstFailure(cand *Candidate) string {
	if msg := e.checkRequired(cand); msg != "" {
		return msg
	}
	if msg := e.checkFormat(cand); msg != "" {
		return msg
	}
	return e.checkBusiness(cand)
}

func (e *ValidationEngine) checkRequired(cand *Candidate) string {
	switch {
	case cand.TenantId == "":
		return "missing tenant id"
	case cand.ResellerId <= 0:
		return "missing reseller id"
	case cand.ProductId == "":
		return "missing product id"
	case cand.StoreId <= 0:
		return "missing store"
	case cand.SaleDate.IsZero():
		return "missing sale date"
	case cand.Quantity == 0:
		return "quantity is zero"
	case cand.Currency == "":
		return "missing currency"
	}
	return ""
}

func (e *ValidationEngine) checkFormat(cand *Candidate) string {
	if !IsValidEAN(cand.ProductId) {
		// resellers with internal catalogs may map to uuid4 product ids
		if !e.profile.AllowNonNumericCodes || e.validate.Var(cand.ProductId, "uuid4") != nil {
			return fmt.Sprintf("product id %q is not a valid EAN-13", cand.ProductId)
		}
	}
	if err := e.validate.Var(cand.Currency, "iso4217"); err != nil {
		return fmt.Sprintf("currency %q is not a valid ISO 4217 code", cand.Currency)
	}
	return ""
}

func (e *ValidationEngine) checkBusiness(cand *Candidate) string {
	switch {
	case cand.Quantity < 0 && !cand.IsReturn:
		return "negative quantity on a non-return row"
	case cand.SalesAmount.IsNegative():
		return "negative sales amount"
	case cand.SalesAmountBase.IsNegative():
		return "negative base currency amount"
	case cand.Month < 1 || cand.Month > 12:
		return fmt.Sprintf("month %d out of range", cand.Month)
	case cand.Quarter < 1 || cand.Quarter > 4:
		return fmt.Sprintf("quarter %d out of range", cand.Quarter)
	case cand.Year < 2000 || cand.Year > 2100:
		return fmt.Sprintf("year %d out of range", cand.Year)
	}
	return ""
}
