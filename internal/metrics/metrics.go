// Package metrics exposes prometheus counters for billing operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

var Module = fx.Provide(New)

type Metrics struct {
	InvoicesGenerated    prometheus.Counter
	InvoiceFailures      prometheus.Counter
	SettlementsProcessed prometheus.Counter
	WithdrawalsExecuted  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		InvoicesGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "liblend",
			Subsystem: "billing",
			Name:      "invoices_generated_total",
			Help:      "Invoices persisted by the composer.",
		}),
		InvoiceFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "liblend",
			Subsystem: "billing",
			Name:      "invoice_failures_total",
			Help:      "Per-tenant composition failures.",
		}),
		SettlementsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "liblend",
			Subsystem: "billing",
			Name:      "settlements_processed_total",
			Help:      "Billing records settled via bulk transfer.",
		}),
		WithdrawalsExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "liblend",
			Subsystem: "billing",
			Name:      "withdrawals_executed_total",
			Help:      "Single-tenant automatic withdrawals executed.",
		}),
	}
}
