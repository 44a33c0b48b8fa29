package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AuditRecords = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "docgate", Name: "audit_records_total", Help: "Number of audit records successfully persisted."},
	)
	AuditFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "docgate", Name: "audit_failures_total", Help: "Number of audit writes that failed and were swallowed."},
	)
	GatewayOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docgate", Name: "gateway_operations_total", Help: "Number of gateway operations by operation and outcome."},
		[]string{"op", "outcome"},
	)
	SoftDeletedDocuments = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "docgate", Name: "documents_soft_deleted_total", Help: "Number of documents marked deleted through the gateway."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(AuditRecords)
	reg.MustRegister(AuditFailures)
	reg.MustRegister(GatewayOps)
	reg.MustRegister(SoftDeletedDocuments)
}
