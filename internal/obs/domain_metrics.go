package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ScanOperationsTotal counts scan-session operations by outcome.
	ScanOperationsTotal *prometheus.CounterVec
	// NoteDeliveriesTotal counts CRM note delivery outcomes from the worker.
	NoteDeliveriesTotal *prometheus.CounterVec
	// InventoryIncrementsTotal counts inventory counter upserts by outcome.
	InventoryIncrementsTotal *prometheus.CounterVec
	// CatalogLookupsTotal counts catalog resolutions by match channel.
	CatalogLookupsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ScanOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_operations_total",
			Help:      "Count of scan-session operations by result.",
		}, []string{"operation", "result"})
		NoteDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crm_note_deliveries_total",
			Help:      "Count of CRM note delivery outcomes.",
		}, []string{"result"})
		InventoryIncrementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_increments_total",
			Help:      "Count of inventory counter upserts by result.",
		}, []string{"result"})
		CatalogLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_lookups_total",
			Help:      "Count of catalog resolutions by match channel.",
		}, []string{"matched_by"})

		mustRegisterCollector(reg, ScanOperationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ScanOperationsTotal = v
			}
		})
		mustRegisterCollector(reg, NoteDeliveriesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				NoteDeliveriesTotal = v
			}
		})
		mustRegisterCollector(reg, InventoryIncrementsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				InventoryIncrementsTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogLookupsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogLookupsTotal = v
			}
		})
	})
}

// CountScanOperation records one scan operation outcome. Safe to call before
// MustRegisterDomainMetrics; the sample is simply dropped.
func CountScanOperation(operation, result string) {
	if ScanOperationsTotal == nil {
		return
	}
	ScanOperationsTotal.WithLabelValues(operation, result).Inc()
}

// CountNoteDelivery records one CRM note delivery outcome.
func CountNoteDelivery(result string) {
	if NoteDeliveriesTotal == nil {
		return
	}
	NoteDeliveriesTotal.WithLabelValues(result).Inc()
}

// CountInventoryIncrement records one inventory upsert outcome.
func CountInventoryIncrement(result string) {
	if InventoryIncrementsTotal == nil {
		return
	}
	InventoryIncrementsTotal.WithLabelValues(result).Inc()
}

// CountCatalogLookup records one catalog resolution by its match channel.
func CountCatalogLookup(matchedBy string) {
	if CatalogLookupsTotal == nil {
		return
	}
	CatalogLookupsTotal.WithLabelValues(matchedBy).Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
