// Business-level Prometheus collectors. HTTP traffic metrics live in the
// middleware package; these count the domain events dashboards actually watch:
// claim intake volume per channel, inspection throughput, and how fast
// customers burn through their PDI credits.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// claimsCreated counts accepted claim submissions by intake channel.
	claimsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claims_created_total",
			Help: "Total number of insurance claims created.",
		},
		[]string{"source"},
	)

	// claimStatusChanges counts review transitions by target status.
	claimStatusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claim_status_changes_total",
			Help: "Total number of claim status transitions.",
		},
		[]string{"status"},
	)

	// inspectionsCreated counts persisted PDI reports.
	inspectionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pdi_inspections_created_total",
			Help: "Total number of PDI inspection reports created.",
		},
	)

	// pdiCreditsConsumed counts package credits deducted by report creation.
	pdiCreditsConsumed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pdi_credits_consumed_total",
			Help: "Total number of PDI package credits consumed.",
		},
	)

	// accountsProvisioned counts customer accounts auto-created during
	// walk-in claim or inspection intake.
	accountsProvisioned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "customer_accounts_provisioned_total",
			Help: "Total number of customer accounts auto-provisioned.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		claimsCreated,
		claimStatusChanges,
		inspectionsCreated,
		pdiCreditsConsumed,
		accountsProvisioned,
	)
}
