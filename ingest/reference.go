package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"bitbucket.org/mmdatafocus/salesfacts_backend/models"
	"bitbucket.org/mmdatafocus/salesfacts_backend/utils"
	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
)

// FuzzyMatchThreshold is the minimum normalized similarity for accepting a
// free-text product code against a known mapping.
const FuzzyMatchThreshold = 0.85

var (
	// ErrProductUnmapped: the code resolved to no known product; the row is
	// reported and skipped, never invented.
	ErrProductUnmapped = errors.New("product code not mapped")

	// ErrProductCodeFormat: a non-numeric code from a vendor whose profile
	// only permits numeric codes.
	ErrProductCodeFormat = errors.New("product code format not allowed")
)

// ReferenceClient resolves vendor-file identifiers against reference data.
// Processors and the orchestrator depend on this interface so tests can
// substitute an in-memory fake.
type ReferenceClient interface {
	GetOrCreateStore(ctx context.Context, tenantId string, resellerId int, input models.NewStore) (*models.Store, error)
	ResolveProduct(ctx context.Context, resellerId int, productCode string, allowNonNumeric bool) (string, error)
	ListPrice(ctx context.Context, resellerId int, productCode string) (decimal.Decimal, bool, error)
}

// ReferenceResolver is the database-backed ReferenceClient. It keeps
// per-reseller caches for the lifetime of the resolver (one worker
// process), with the redis list cache as a second tier shared between
// workers.
type ReferenceResolver struct {
	mu       sync.Mutex
	stores   map[storeCacheKey]*models.Store
	mappings map[int]map[string]*models.ProductMapping
	prices   map[int]map[string]decimal.Decimal
}

type storeCacheKey struct {
	tenantId   string
	resellerId int
	identifier string
}

func NewReferenceResolver() *ReferenceResolver {
	return &ReferenceResolver{
		stores:   map[storeCacheKey]*models.Store{},
		mappings: map[int]map[string]*models.ProductMapping{},
		prices:   map[int]map[string]decimal.Decimal{},
	}
}

// normalizeProductCode lowercases and collapses internal whitespace so
// "Product  ABC" and "product abc" resolve identically.
func normalizeProductCode(code string) string {
	return strings.ToLower(strings.Join(strings.Fields(code), " "))
}

// similarity is 1 - levenshtein/maxlen, in [0,1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

func (r *ReferenceResolver) GetOrCreateStore(ctx context.Context, tenantId string, resellerId int, input models.NewStore) (*models.Store, error) {
	key := storeCacheKey{tenantId: tenantId, resellerId: resellerId, identifier: input.StoreIdentifier}

	r.mu.Lock()
	if store, ok := r.stores[key]; ok {
		r.mu.Unlock()
		return store, nil
	}
	r.mu.Unlock()

	if err := r.primeStores(ctx, tenantId, resellerId); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if store, ok := r.stores[key]; ok {
		r.mu.Unlock()
		return store, nil
	}
	r.mu.Unlock()

	store, err := models.FindOrCreateStore(ctx, tenantId, resellerId, input)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.stores[key] = store
	r.mu.Unlock()
	utils.RemoveRedisList[models.Store](resellerId)
	return store, nil
}

// primeStores loads the reseller's store list once, redis first, database
// on miss.
func (r *ReferenceResolver) primeStores(ctx context.Context, tenantId string, resellerId int) error {
	cached, err := utils.RetrieveRedisList[models.Store](resellerId)
	if err != nil {
		return err
	}
	if cached == nil {
		cached, err = models.GetStoresByReseller(ctx, tenantId, resellerId)
		if err != nil {
			return err
		}
		if len(cached) > 0 {
			utils.StoreRedisList[models.Store](cached, resellerId)
		}
	}
	r.mu.Lock()
	for _, store := range cached {
		key := storeCacheKey{tenantId: store.TenantId, resellerId: store.ResellerId, identifier: store.StoreIdentifier}
		if _, ok := r.stores[key]; !ok {
			r.stores[key] = store
		}
	}
	r.mu.Unlock()
	return nil
}

// ResolveProduct canonicalizes a vendor product code to a product id.
// Numeric codes are zero-padded to EAN-13 directly. Free-text codes go
// through the reseller's mapping table: exact normalized match first, then
// fuzzy match against known codes; an accepted fuzzy match is persisted so
// the next file resolves it exactly. Codes below the similarity threshold
// return ErrProductUnmapped.
func (r *ReferenceResolver) ResolveProduct(ctx context.Context, resellerId int, productCode string, allowNonNumeric bool) (string, error) {
	code := strings.TrimSpace(productCode)
	if code == "" {
		return "", fmt.Errorf("%w: empty code", ErrProductCodeFormat)
	}
	if isAllDigits(code) {
		id, err := NormalizeProductId(code, allowNonNumeric)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrProductCodeFormat, err)
		}
		return id, nil
	}
	if !allowNonNumeric {
		return "", fmt.Errorf("%w: %q", ErrProductCodeFormat, code)
	}

	byCode, err := r.primeMappings(ctx, resellerId)
	if err != nil {
		return "", err
	}

	normalized := normalizeProductCode(code)
	r.mu.Lock()
	if mapping, ok := byCode[normalized]; ok {
		r.mu.Unlock()
		return mapping.CanonicalProductId, nil
	}

	var best *models.ProductMapping
	bestScore := 0.0
	for known, mapping := range byCode {
		if score := similarity(normalized, known); score > bestScore {
			bestScore = score
			best = mapping
		}
	}
	r.mu.Unlock()

	if best == nil || bestScore < FuzzyMatchThreshold {
		return "", fmt.Errorf("%w: %q", ErrProductUnmapped, code)
	}

	accepted, err := models.CreateProductMapping(ctx, &models.ProductMapping{
		ResellerId:         resellerId,
		ProductCode:        code,
		CanonicalProductId: best.CanonicalProductId,
		MatchConfidence:    decimal.NewFromFloat(bestScore).Round(3),
	})
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	byCode[normalized] = accepted
	r.mu.Unlock()
	utils.RemoveRedisList[models.ProductMapping](resellerId)
	return accepted.CanonicalProductId, nil
}

func (r *ReferenceResolver) primeMappings(ctx context.Context, resellerId int) (map[string]*models.ProductMapping, error) {
	r.mu.Lock()
	if byCode, ok := r.mappings[resellerId]; ok {
		r.mu.Unlock()
		return byCode, nil
	}
	r.mu.Unlock()

	cached, err := utils.RetrieveRedisList[models.ProductMapping](resellerId)
	if err != nil {
		return nil, err
	}
	if cached == nil {
		cached, err = models.GetProductMappingsByReseller(ctx, resellerId)
		if err != nil {
			return nil, err
		}
		if len(cached) > 0 {
			utils.StoreRedisList[models.ProductMapping](cached, resellerId)
		}
	}

	byCode := make(map[string]*models.ProductMapping, len(cached))
	for _, mapping := range cached {
		byCode[normalizeProductCode(mapping.ProductCode)] = mapping
	}
	r.mu.Lock()
	r.mappings[resellerId] = byCode
	r.mu.Unlock()
	return byCode, nil
}

func (r *ReferenceResolver) ListPrice(ctx context.Context, resellerId int, productCode string) (decimal.Decimal, bool, error) {
	r.mu.Lock()
	byCode, ok := r.prices[resellerId]
	r.mu.Unlock()
	if !ok {
		loaded, err := models.GetProductPricesByReseller(ctx, resellerId)
		if err != nil {
			return decimal.Zero, false, err
		}
		byCode = make(map[string]decimal.Decimal, len(loaded))
		for _, price := range loaded {
			byCode[normalizeProductCode(price.ProductCode)] = price.ListPrice
		}
		r.mu.Lock()
		r.prices[resellerId] = byCode
		r.mu.Unlock()
	}
	price, found := byCode[normalizeProductCode(productCode)]
	return price, found, nil
}
