package ingest

import (
	"fmt"
	"sync"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
)

// Router hands out the processor variant for a detected vendor. Instances
// are cached per (vendor, reseller) because processors carry reseller
// scoped state; the cache makes repeat uploads from the same reseller
// cheap for the worker pool.
type Router struct {
	mu        sync.Mutex
	instances map[routerKey]routerEntry
	reference ReferenceClient
}

type routerKey struct {
	vendor     string
	tenantId   string
	resellerId int
}

type routerEntry struct {
	proc  Processor
	rates *config.RateTable
}

func NewRouter(reference ReferenceClient) *Router {
	return &Router{
		instances: map[routerKey]routerEntry{},
		reference: reference,
	}
}

// ProcessorFor returns the cached processor for the vendor/reseller pair,
// constructing one on first use. A changed rate table (tenant overrides
// reloaded per upload) invalidates the cached instance. Unknown vendors
// are a programming error upstream (detection only yields registered
// vendors) but still fail cleanly.
func (r *Router) ProcessorFor(vendor, tenantId string, resellerId int, rates *config.RateTable) (Processor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := routerKey{vendor: vendor, tenantId: tenantId, resellerId: resellerId}
	// Rate tables are rebuilt from overrides on every run, so cache hits
	// require value equality, not pointer identity.
	if entry, ok := r.instances[key]; ok && entry.rates.Equal(rates) {
		return entry.proc, nil
	}

	var proc Processor
	switch vendor {
	case VendorMediamart:
		proc = newMediamartProcessor(tenantId, resellerId, rates)
	case VendorTechhouse:
		proc = newTechhouseProcessor(tenantId, resellerId, rates)
	case VendorElektrosfera:
		proc = newElektrosferaProcessor(tenantId, resellerId, rates)
	case VendorCapegadgets:
		proc = newCapegadgetsProcessor(tenantId, resellerId, rates, r.reference)
	case VendorNordicline:
		proc = newNordiclineProcessor(tenantId, resellerId, rates)
	default:
		return nil, fmt.Errorf("no processor registered for vendor %q", vendor)
	}
	r.instances[key] = routerEntry{proc: proc, rates: rates}
	return proc, nil
}
