// Package catalog resolves scanned codes against the product catalogs and
// manages the ordered price-rule table.
package catalog

import (
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-gudang/internal/pricing"
)

// Name discriminates the two parallel catalogs: the primary-brand catalog and
// the generic overstock catalog.
type Name string

// Catalog names.
const (
	Primary   Name = "primary"
	Overstock Name = "overstock"
)

// Key identifies a catalog record for counter increments.
type Key struct {
	Catalog Name   `json:"catalog"`
	Code    string `json:"code"`
}

// Product is a normalized catalog record.
type Product struct {
	ID           uuid.UUID      `json:"id"`
	Catalog      Name           `json:"catalog"`
	Code         string         `json:"code,omitempty"`
	ManualRef    string         `json:"manualRef,omitempty"`
	Manufacturer string         `json:"manufacturer"`
	Style        string         `json:"style"`
	Size         string         `json:"size,omitempty"`
	BasePrice    *pricing.Money `json:"basePrice,omitempty"`
}

// Description renders the display name used for pricing and summaries:
// manufacturer, style, and size joined and trimmed.
func (p Product) Description() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{p.Manufacturer, p.Style, p.Size} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}

// PriceRule is one row of the ordered fallback price table.
type PriceRule struct {
	ID       uuid.UUID     `json:"id"`
	Keyword  string        `json:"keyword"`
	Amount   pricing.Money `json:"amount"`
	Position int           `json:"position"`
}

// Rules converts ordered rows into the pricing engine's rule table.
func Rules(rows []PriceRule) []pricing.Rule {
	out := make([]pricing.Rule, 0, len(rows))
	for _, row := range rows {
		out = append(out, pricing.Rule{Keyword: row.Keyword, Amount: row.Amount})
	}
	return out
}
