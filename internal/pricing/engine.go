package pricing

import (
	"fmt"
	"strings"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// Flaw classifies a defect recorded at scan time.
type Flaw string

// Known flaw codes. FlawNone is the no-defect sentinel.
const (
	FlawNone        Flaw = "none"
	FlawMissingPart Flaw = "flaw"
	FlawDamaged     Flaw = "damaged"
	FlawTorn        Flaw = "torn"
)

var flawLabels = map[Flaw]string{
	FlawMissingPart: "Missing Part",
	FlawDamaged:     "Damaged",
	FlawTorn:        "Torn Packaging",
}

// Valid reports whether the flaw code is one of the known values.
func (f Flaw) Valid() bool {
	if f == FlawNone {
		return true
	}
	_, ok := flawLabels[f]
	return ok
}

// Label returns the human readable label rendered on summary lines.
// The no-defect sentinel has no label.
func (f Flaw) Label() string {
	return flawLabels[f]
}

// Rule maps a name keyword to a fallback price. Rules are matched in table
// order and the first case-insensitive substring hit wins, so specific
// keywords must be listed ahead of generic ones they would otherwise shadow.
type Rule struct {
	Keyword string
	Amount  Money
}

// machineKeywords identifies durable serialized devices by name. Flawed
// machines keep half their value; flawed supplies price to zero.
var machineKeywords = []string{
	"embroidery machine",
	"sewing machine",
	"quilting machine",
	"serger",
	"longarm",
}

// IsMachineClass reports whether the product name belongs to the machine family.
func IsMachineClass(name string) bool {
	lowered := strings.ToLower(name)
	for _, kw := range machineKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// Price computes the unit price for a product. A stored catalog price is
// authoritative; without one the ordered rule table decides. Non-none flaws
// halve machine-class prices and zero out everything else. Halving uses
// integer division, so an odd minor-unit amount floors to the cent below
// (999 halves to 499).
func Price(name string, flaw Flaw, stored *Money, rules []Rule) Money {
	if strings.TrimSpace(name) == "" {
		return 0
	}

	if stored != nil {
		if flaw == FlawNone {
			return *stored
		}
		if IsMachineClass(name) {
			return *stored / 2
		}
		return 0
	}

	lowered := strings.ToLower(name)
	for _, rule := range rules {
		kw := strings.ToLower(strings.TrimSpace(rule.Keyword))
		if kw == "" || !strings.Contains(lowered, kw) {
			continue
		}
		if flaw == FlawNone {
			return rule.Amount
		}
		if IsMachineClass(kw) {
			return rule.Amount / 2
		}
		return 0
	}
	return 0
}

// FormatMoney renders a minor-unit amount as a dollar string, e.g. "$20.00".
func FormatMoney(m Money) string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s$%d.%02d", sign, m/100, m%100)
}
