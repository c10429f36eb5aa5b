// Package metrics define las métricas Prometheus del servicio. Viven en un
// paquete propio para evitar ciclos de import entre el service y HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AuthOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studytrack_auth_operations_total",
		Help: "Operaciones de auth por operación y resultado (ok|denied|error)",
	}, []string{"op", "result"})

	NotifierFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studytrack_notifier_failures_total",
		Help: "Envíos de email best-effort que fallaron, por tipo de mail",
	}, []string{"kind"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "studytrack_http_request_duration_seconds",
		Help:    "Duración de requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

// Register registra las métricas en el registry dado (o el default si es nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		AuthOperationsTotal,
		NotifierFailuresTotal,
		HTTPRequestDuration,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// ObserveAuthOp incrementa el contador de operaciones de auth.
func ObserveAuthOp(op, result string) {
	AuthOperationsTotal.WithLabelValues(op, result).Inc()
}
