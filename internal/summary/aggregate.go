// Package summary renders the aggregated note text appended to a CRM deal
// when a scan batch is finalized.
package summary

import (
	"fmt"
	"strings"

	"github.com/noah-isme/backend-gudang/internal/pricing"
)

// Entry is one priced scan contribution to a batch summary.
type Entry struct {
	Description  string
	Size         string
	Flaw         pricing.Flaw
	SerialNumber string
	UnitPrice    pricing.Money
	Quantity     int
}

type groupKey struct {
	description string
	size        string
	flaw        pricing.Flaw
	serial      string
}

type group struct {
	key      groupKey
	count    int
	subtotal pricing.Money
}

// Summarize groups entries by (description, size, flaw, serial) and renders
// one line per group plus a grand total. Groups appear in first-occurrence
// order. The grand total is computed as a flat sum over all entries and is
// always equal to the sum of the rendered subtotals.
func Summarize(entries []Entry) string {
	groups := make(map[groupKey]*group, len(entries))
	order := make([]groupKey, 0, len(entries))
	var grandTotal pricing.Money

	for _, e := range entries {
		qty := e.Quantity
		if qty < 1 {
			qty = 1
		}
		lineTotal := e.UnitPrice * pricing.Money(qty)
		grandTotal += lineTotal

		key := groupKey{
			description: e.Description,
			size:        e.Size,
			flaw:        e.Flaw,
			serial:      e.SerialNumber,
		}
		g, ok := groups[key]
		if !ok {
			g = &group{key: key}
			groups[key] = g
			order = append(order, key)
		}
		g.count += qty
		g.subtotal += lineTotal
	}

	var b strings.Builder
	for _, key := range order {
		g := groups[key]
		fmt.Fprintf(&b, "%d × %s", g.count, g.key.description)
		if g.key.size != "" {
			fmt.Fprintf(&b, " Size: %s", g.key.size)
		}
		if label := g.key.flaw.Label(); label != "" {
			fmt.Fprintf(&b, " [Flaw: %s]", label)
		}
		if g.key.serial != "" {
			fmt.Fprintf(&b, " Serial: %s", g.key.serial)
		}
		fmt.Fprintf(&b, " — Subtotal: %s\n", pricing.FormatMoney(g.subtotal))
	}
	fmt.Fprintf(&b, "Total Price: %s", pricing.FormatMoney(grandTotal))
	return b.String()
}
