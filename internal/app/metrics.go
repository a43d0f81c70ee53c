package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gear_http_requests_total",
		Help: "HTTP requests served, by method and status code.",
	}, []string{"method", "status"})

	claimsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gear_claims_submitted_total",
		Help: "Claims created through wizard submissions.",
	})

	claimsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gear_claims_deleted_total",
		Help: "Claims removed through the table's delete affordance.",
	})

	draftsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gear_drafts_opened_total",
		Help: "Wizard drafts opened.",
	})
)
