package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/backend-gudang/internal/obs"
)

// NoMatchReason explains why a lookup produced no record.
type NoMatchReason string

// No-match reasons surfaced to the scan workflow.
const (
	ReasonNoCatalogEntry NoMatchReason = "no_catalog_entry"
	ReasonNoManualMatch  NoMatchReason = "no_fuzzy_match"
)

// MatchedBy names the field the lookup matched on.
type MatchedBy string

// Match fields.
const (
	MatchedByCode      MatchedBy = "code"
	MatchedByManualRef MatchedBy = "manual_ref"
)

// Resolution is the tagged result of a catalog lookup. It is a first-class
// value: a miss is not an error, it drives the pending-state workflow.
type Resolution struct {
	Matched   bool
	Product   Product
	MatchedBy MatchedBy
	Reason    NoMatchReason
}

// Resolver looks up scanned codes against the catalog store. Lookups are
// exact only; there is no fuzzy or external fallback.
type Resolver struct {
	Store Store
}

// ByCode resolves a scanned code by exact match.
func (r Resolver) ByCode(ctx context.Context, code string) (Resolution, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Resolution{Reason: ReasonNoCatalogEntry}, nil
	}
	product, ok, err := r.Store.FindByCode(ctx, code)
	if err != nil {
		return Resolution{}, fmt.Errorf("find by code: %w", err)
	}
	if !ok {
		obs.CountCatalogLookup("miss")
		return Resolution{Reason: ReasonNoCatalogEntry}, nil
	}
	obs.CountCatalogLookup(string(MatchedByCode))
	return Resolution{Matched: true, Product: product, MatchedBy: MatchedByCode}, nil
}

// ByManualRef resolves an operator-entered reference, case-insensitively.
func (r Resolver) ByManualRef(ctx context.Context, ref string) (Resolution, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Resolution{Reason: ReasonNoManualMatch}, nil
	}
	product, ok, err := r.Store.FindByRef(ctx, ref)
	if err != nil {
		return Resolution{}, fmt.Errorf("find by ref: %w", err)
	}
	if !ok {
		obs.CountCatalogLookup("miss")
		return Resolution{Reason: ReasonNoManualMatch}, nil
	}
	obs.CountCatalogLookup(string(MatchedByManualRef))
	return Resolution{Matched: true, Product: product, MatchedBy: MatchedByManualRef}, nil
}
