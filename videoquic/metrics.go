package videoquic

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shardfec/shardfec/frame"
)

const namespace = "shardfec"

// Reasons for DatagramsDropped.
const (
	DropLoss    = "loss"
	DropInvalid = "invalid"
)

// Metrics are the transport counters of one process.
type Metrics struct {
	FramesSent          prometheus.Counter
	FramesReceived      prometheus.Counter
	FramesLost          prometheus.Counter
	DatagramsSent       prometheus.Counter
	DatagramsReceived   prometheus.Counter
	DatagramsDropped    *prometheus.CounterVec
	PacketsLost         prometheus.Gauge
	ShardsReconstructed prometheus.Counter
	ReconstructFailures prometheus.Counter
	OversizeDatagrams   prometheus.Counter
	Redundancy          prometheus.Gauge
}

// NewMetrics registers the counters on reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}
	return &Metrics{
		FramesSent:        counter("frames_sent_total", "Frames packetized and sent."),
		FramesReceived:    counter("frames_received_total", "Frames fully reassembled."),
		FramesLost:        counter("frames_lost_total", "Frames that could not be reassembled."),
		DatagramsSent:     counter("datagrams_sent_total", "Shard datagrams handed to the connection."),
		DatagramsReceived: counter("datagrams_received_total", "Shard datagrams read from the connection."),
		DatagramsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_dropped_total",
			Help:      "Datagrams dropped by simulated loss or rejected as invalid.",
		}, []string{"reason"}),
		PacketsLost: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "packets_lost",
			Help:      "Packet counter values never seen; late arrivals take theirs back.",
		}),
		ShardsReconstructed: counter("shards_reconstructed_total", "Data shard packets recovered from parity."),
		ReconstructFailures: counter("reconstruct_failures_total", "Column reconstructions that failed."),
		OversizeDatagrams:   counter("oversize_datagrams_total", "Datagrams rejected as larger than the path allows."),
		Redundancy: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "redundancy_percent",
			Help:      "Parity percentage currently used by the sender.",
		}),
	}
}

// observe adds an assembler stats delta.
func (m *Metrics) observe(d frame.Stats) {
	m.FramesReceived.Add(float64(d.FramesDelivered))
	m.FramesLost.Add(float64(d.FramesLost))
	// PacketsLost shrinks when a late packet fills a gap.
	m.PacketsLost.Add(float64(int64(d.PacketsLost)))
	m.ShardsReconstructed.Add(float64(d.ShardsReconstructed))
	m.ReconstructFailures.Add(float64(d.ReconstructFailures))
}
