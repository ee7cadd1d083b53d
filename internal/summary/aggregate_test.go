package summary

import (
	"strings"
	"testing"

	"github.com/noah-isme/backend-gudang/internal/pricing"
)

func TestSummarizeGroupsAndTotals(t *testing.T) {
	entries := []Entry{
		{Description: "Brother Thread White", UnitPrice: 500, Quantity: 2},
		{Description: "Juki Sewing Machine TL-2010Q", SerialNumber: "SN123", UnitPrice: 40_000, Quantity: 1},
		{Description: "Brother Thread White", UnitPrice: 500, Quantity: 3},
	}
	got := Summarize(entries)

	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), got)
	}
	if lines[0] != "5 × Brother Thread White — Subtotal: $25.00" {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
	if lines[1] != "1 × Juki Sewing Machine TL-2010Q Serial: SN123 — Subtotal: $400.00" {
		t.Fatalf("unexpected second line: %q", lines[1])
	}
	if lines[2] != "Total Price: $425.00" {
		t.Fatalf("unexpected total line: %q", lines[2])
	}
}

func TestSummarizeFlawAndSizeSegments(t *testing.T) {
	entries := []Entry{
		{Description: "Quilting Needle", Size: "90/14", Flaw: pricing.FlawDamaged, UnitPrice: 0, Quantity: 1},
	}
	got := Summarize(entries)
	if !strings.Contains(got, "1 × Quilting Needle Size: 90/14 [Flaw: Damaged] — Subtotal: $0.00") {
		t.Fatalf("unexpected summary: %q", got)
	}
}

func TestSummarizeGrandTotalMatchesSubtotals(t *testing.T) {
	entries := []Entry{
		{Description: "A", UnitPrice: 137, Quantity: 3},
		{Description: "B", Flaw: pricing.FlawTorn, UnitPrice: 0, Quantity: 2},
		{Description: "A", UnitPrice: 137, Quantity: 1},
		{Description: "C", Size: "L", UnitPrice: 999, Quantity: 5},
	}
	got := Summarize(entries)

	var fromGroups pricing.Money
	for _, line := range strings.Split(got, "\n") {
		if idx := strings.Index(line, "Subtotal: $"); idx >= 0 {
			fromGroups += parseDollars(t, line[idx+len("Subtotal: $"):])
		}
	}
	idx := strings.Index(got, "Total Price: $")
	if idx < 0 {
		t.Fatalf("missing total line: %q", got)
	}
	total := parseDollars(t, got[idx+len("Total Price: $"):])
	if total != fromGroups {
		t.Fatalf("grand total %d does not match grouped sum %d", total, fromGroups)
	}

	var flat pricing.Money
	for _, e := range entries {
		flat += e.UnitPrice * pricing.Money(e.Quantity)
	}
	if total != flat {
		t.Fatalf("grand total %d does not match flat sum %d", total, flat)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if got := Summarize(nil); got != "Total Price: $0.00" {
		t.Fatalf("unexpected empty summary: %q", got)
	}
}

func parseDollars(t *testing.T, s string) pricing.Money {
	t.Helper()
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 || len(parts[1]) < 2 {
		t.Fatalf("malformed amount %q", s)
	}
	var dollars, cents int64
	for _, r := range parts[0] {
		dollars = dollars*10 + int64(r-'0')
	}
	for _, r := range parts[1][:2] {
		cents = cents*10 + int64(r-'0')
	}
	return dollars*100 + cents
}
