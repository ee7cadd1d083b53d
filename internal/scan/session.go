// Package scan implements the scan-session reconciliation workflow: a
// tracking scan binds a session to a CRM deal, SKU and machine scans
// accumulate priced entries, and finishing the batch appends one aggregated
// note to the deal.
package scan

import (
	"github.com/noah-isme/backend-gudang/internal/catalog"
	"github.com/noah-isme/backend-gudang/internal/pricing"
	"github.com/noah-isme/backend-gudang/internal/summary"
)

// Entry is one resolved scan contribution. Entries are immutable once
// appended; they leave the session only through undo or finish.
type Entry struct {
	Description  string        `json:"description"`
	Size         string        `json:"size,omitempty"`
	Flaw         pricing.Flaw  `json:"flaw"`
	SerialNumber string        `json:"serialNumber,omitempty"`
	UnitPrice    pricing.Money `json:"unitPrice"`
	Quantity     int           `json:"quantity"`
	CatalogKey   *catalog.Key  `json:"catalogKey,omitempty"`
	IsMachine    bool          `json:"isMachine,omitempty"`
	IsManual     bool          `json:"isManual,omitempty"`
}

// PendingKind discriminates the in-progress sub-workflow.
type PendingKind string

// Pending sub-workflow kinds.
const (
	PendingManualReference PendingKind = "manual_reference"
	PendingNewProduct      PendingKind = "new_product"
)

// Pending records an unresolved scan awaiting operator input. At most one is
// open per session; it blocks ordinary SKU submission until resolved or
// cancelled.
type Pending struct {
	Kind         PendingKind  `json:"kind"`
	ScannedCode  string       `json:"scannedCode"`
	ManualRef    string       `json:"manualRef,omitempty"`
	Flaw         pricing.Flaw `json:"flaw"`
	SerialNumber string       `json:"serialNumber,omitempty"`
	Quantity     int          `json:"quantity"`
}

// Session is the aggregate root persisted between operations. The zero value
// is a fresh session awaiting its first tracking scan.
type Session struct {
	DealID  string   `json:"dealId,omitempty"`
	Entries []Entry  `json:"entries,omitempty"`
	Pending *Pending `json:"pending,omitempty"`
}

// Total returns the running batch total across all entries.
func (s *Session) Total() pricing.Money {
	var total pricing.Money
	for _, e := range s.Entries {
		total += e.UnitPrice * pricing.Money(e.Quantity)
	}
	return total
}

func (s *Session) reset(dealID string) {
	s.DealID = dealID
	s.Entries = nil
	s.Pending = nil
}

func summaryEntries(entries []Entry) []summary.Entry {
	out := make([]summary.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, summary.Entry{
			Description:  e.Description,
			Size:         e.Size,
			Flaw:         e.Flaw,
			SerialNumber: e.SerialNumber,
			UnitPrice:    e.UnitPrice,
			Quantity:     e.Quantity,
		})
	}
	return out
}
