// Package metrics exposes the node's runtime counters as Prometheus
// metrics, adapted from the teacher's cli/server/metrics.go pattern of
// package-level collectors registered in init() and updated by small
// setter functions. No component in this module calls those setters, so
// every value stays at zero unless a caller sets it.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "relaynode"

var (
	connectionsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Currently registered connections by network and direction.",
		},
		[]string{"network", "direction"},
	)

	objectStoreSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "object_store_size",
			Help:      "Number of objects currently held in the object store.",
		},
	)

	powHashRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pow_hashes_per_second",
			Help:      "Most recently measured proof-of-work search rate.",
		},
	)

	bytesIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_in_total",
			Help:      "Bytes read from peer connections, by message command.",
		},
		[]string{"command"},
	)

	bytesOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_out_total",
			Help:      "Bytes written to peer connections, by message command.",
		},
		[]string{"command"},
	)

	objectsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_expired_total",
			Help:      "Objects dropped from the store for exceeding their expiry time.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		connectionsGauge,
		objectStoreSize,
		powHashRate,
		bytesIn,
		bytesOut,
		objectsExpired,
	)
}

// SetConnections reports the current count of connections for a given
// network ("ip"/"i2p") and direction ("inbound"/"outbound").
func SetConnections(network, direction string, n int) {
	connectionsGauge.WithLabelValues(network, direction).Set(float64(n))
}

// SetObjectStoreSize reports the object store's current object count.
func SetObjectStoreSize(n int) {
	objectStoreSize.Set(float64(n))
}

// SetPoWHashRate reports the PoW worker's most recent hashes/second
// measurement.
func SetPoWHashRate(rate float64) {
	powHashRate.Set(rate)
}

// AddBytesIn accounts bytes read for a wire message command.
func AddBytesIn(command string, n int) {
	bytesIn.WithLabelValues(command).Add(float64(n))
}

// AddBytesOut accounts bytes written for a wire message command.
func AddBytesOut(command string, n int) {
	bytesOut.WithLabelValues(command).Add(float64(n))
}

// AddObjectsExpired accounts objects dropped by age-based expiry.
func AddObjectsExpired(n int) {
	objectsExpired.Add(float64(n))
}
