package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BatchesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mqspout_batches_delivered_total",
		Help: "Batches handed to the spout by the queue client.",
	})
	BatchesAcked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mqspout_batches_acked_total",
		Help: "Batches acknowledged by the processing loop.",
	})
	BatchesRetried = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mqspout_batches_retried_total",
		Help: "Failed batches re-queued for another delivery attempt.",
	})
	BatchesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mqspout_batches_failed_total",
		Help: "Batches that reached a terminal failure.",
	})
	PendingBatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mqspout_pending_batches",
		Help: "Batches currently awaiting a terminal outcome.",
	})
)

func Expose(port int) {
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), nil)
	}()
}
