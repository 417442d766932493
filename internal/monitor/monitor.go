// Package monitor drives captured frames through decoding, classification and
// aggregation.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tunwatch/internal/analysis"
	"tunwatch/internal/capture"
	"tunwatch/internal/classify"
	"tunwatch/internal/decode"
	"tunwatch/internal/eventlog"
	"tunwatch/internal/metrics"
	"tunwatch/internal/models"
)

// Options configure a Monitor.
type Options struct {
	// Subnet holds the tunnel client addresses.
	Subnet netip.Prefix
	Logger *logrus.Entry
}

// Monitor is the single producer feeding an Aggregator.
type Monitor struct {
	src    capture.Source
	stats  *analysis.Aggregator
	sink   eventlog.Sink
	subnet netip.Prefix
	log    *logrus.Entry
	iface  string
}

// New creates a Monitor. A nil sink discards events.
func New(src capture.Source, stats *analysis.Aggregator, sink eventlog.Sink, opts Options) *Monitor {
	if sink == nil {
		sink = eventlog.Nop{}
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Monitor{
		src:    src,
		stats:  stats,
		sink:   sink,
		subnet: opts.Subnet,
		log:    log.WithField("component", "monitor"),
		iface:  src.Interface(),
	}
}

// Run receives frames until ctx is cancelled or the source fails. The source
// is closed on return. Cancellation closes the source, and the resulting
// ErrClosed from Recv ends Run with a nil error.
func (m *Monitor) Run(ctx context.Context) error {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			m.log.Debug("stop requested, closing source")
		case <-done:
		}
		m.src.Close()
	}()
	defer func() {
		close(done)
		wg.Wait()
	}()

	m.log.WithFields(logrus.Fields{
		"interface": m.iface,
		"mode":      m.src.Mode().String(),
		"subnet":    m.subnet.String(),
	}).Info("capture started")

	for {
		frame, err := m.src.Recv()
		if err != nil {
			if errors.Is(err, capture.ErrClosed) {
				m.log.Info("capture stopped")
				return nil
			}
			return fmt.Errorf("monitor: %w", err)
		}
		m.ProcessFrame(frame)
	}
}

// ProcessFrame runs one frame through the pipeline. Frames that fail to
// decode at the network layer are dropped entirely. TCP or UDP segments
// that fail to decode are logged at the network layer only.
func (m *Monitor) ProcessFrame(frame capture.Frame) {
	metrics.FramesTotal.WithLabelValues(m.iface).Inc()
	metrics.FrameBytesTotal.WithLabelValues(m.iface).Add(float64(len(frame.Data)))

	ts := frame.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, l3 := capture.SplitLinkLayer(frame.Data)
	ip, err := decode.IP(l3)
	if err != nil {
		metrics.DropsTotal.WithLabelValues(metrics.DropNotIP).Inc()
		return
	}

	m.emitNetwork(ts, ip)

	pkt := analysis.Packet{Length: ip.TotalLen}
	switch {
	case ip.Protocol == decode.ProtoTCP:
		tcp, err := decode.TCP(ip.Payload)
		if err != nil {
			metrics.DropsTotal.WithLabelValues(metrics.DropTransport).Inc()
			return
		}
		pkt.Protocol = "TCP"
		pkt.DstPort, pkt.HasPort = tcp.DstPort, true
		pkt.SYN = tcp.Flags.SYN()
		m.emitTransport(ts, ip, "TCP", tcp.SrcPort, tcp.DstPort)
		m.emitApp(ts, tcp.SrcPort, tcp.DstPort, tcp.Payload)

	case ip.Protocol == decode.ProtoUDP:
		udp, err := decode.UDP(ip.Payload)
		if err != nil {
			metrics.DropsTotal.WithLabelValues(metrics.DropTransport).Inc()
			return
		}
		pkt.Protocol = "UDP"
		pkt.DstPort, pkt.HasPort = udp.DstPort, true
		m.emitTransport(ts, ip, "UDP", udp.SrcPort, udp.DstPort)
		m.emitApp(ts, udp.SrcPort, udp.DstPort, udp.Payload)

	case ip.IsICMP():
		pkt.Protocol = "ICMP"

	default:
		pkt.Protocol = ip.Name()
	}
	metrics.PacketsTotal.WithLabelValues(pkt.Protocol).Inc()

	client, remote, ok := analysis.Attribute(ip.Src, ip.Dst, m.subnet)
	if !ok {
		return
	}
	pkt.Client, pkt.Remote = client, remote
	m.stats.AddPacket(pkt)
}

func (m *Monitor) emitNetwork(ts time.Time, ip decode.IPHeader) {
	ev := models.NetworkEvent{
		Timestamp: ts,
		Protocol:  ip.Name(),
		SrcIP:     ip.Src,
		DstIP:     ip.Dst,
		IPProto:   ip.Protocol,
		Length:    ip.TotalLen,
	}
	if ip.IsICMP() {
		ev.Protocol = "ICMP"
		if icmp, err := decode.ICMP(ip.Payload); err == nil {
			label := "ICMP"
			if ip.Version == 6 {
				label = "ICMPv6"
			}
			ev.Info = fmt.Sprintf("%s type=%d code=%d", label, icmp.Type, icmp.Code)
		}
	}
	m.sinkErr("network", m.sink.Network(ev))
}

func (m *Monitor) emitTransport(ts time.Time, ip decode.IPHeader, proto string, srcPort, dstPort uint16) {
	m.sinkErr("transport", m.sink.Transport(models.TransportEvent{
		Timestamp: ts,
		Protocol:  proto,
		SrcIP:     ip.Src,
		SrcPort:   srcPort,
		DstIP:     ip.Dst,
		DstPort:   dstPort,
		Length:    ip.TotalLen,
	}))
}

func (m *Monitor) emitApp(ts time.Time, srcPort, dstPort uint16, payload []byte) {
	app, ok := classify.Classify(srcPort, dstPort, payload)
	if !ok {
		return
	}
	metrics.AppsTotal.WithLabelValues(app.Name).Inc()
	m.sinkErr("app", m.sink.App(models.AppEvent{
		Timestamp: ts,
		App:       app.Name,
		Info:      classify.Truncate(app.Info, classify.MaxInfoLen),
	}))
}

func (m *Monitor) sinkErr(layer string, err error) {
	if err == nil {
		return
	}
	metrics.SinkErrorsTotal.WithLabelValues(layer).Inc()
	m.log.WithError(err).WithField("layer", layer).Debug("event log write failed")
}
