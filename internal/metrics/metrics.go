// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons.
const (
	DropNotIP     = "not_ip"
	DropTransport = "transport"
)

var (
	// FramesTotal counts frames received from the capture source.
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunwatch_frames_total",
			Help: "Total number of frames received",
		},
		[]string{"interface"},
	)

	// FrameBytesTotal counts raw bytes received from the capture source.
	FrameBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunwatch_frame_bytes_total",
			Help: "Total number of raw bytes received",
		},
		[]string{"interface"},
	)

	// DropsTotal counts frames or layers that failed to decode.
	DropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunwatch_drops_total",
			Help: "Total number of frames dropped during decoding",
		},
		[]string{"reason"},
	)

	// PacketsTotal counts decoded packets by protocol.
	PacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunwatch_packets_total",
			Help: "Total number of decoded packets by protocol",
		},
		[]string{"protocol"},
	)

	// AppsTotal counts classified application payloads.
	AppsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunwatch_apps_total",
			Help: "Total number of classified application payloads",
		},
		[]string{"app"},
	)

	// SinkErrorsTotal counts failed event log writes.
	SinkErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunwatch_sink_errors_total",
			Help: "Total number of event log write failures",
		},
		[]string{"layer"},
	)

	// Clients tracks distinct tunnel clients seen.
	Clients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tunwatch_clients",
			Help: "Number of distinct tunnel clients seen",
		},
	)

	// Endpoints tracks distinct (client, remote) pairs seen.
	Endpoints = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tunwatch_endpoints",
			Help: "Number of distinct client/remote endpoint pairs seen",
		},
	)
)
