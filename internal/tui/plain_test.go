package tui

import (
	"bytes"
	"context"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tunwatch/internal/analysis"
)

var (
	clientA = netip.MustParseAddr("172.31.66.10")
	clientB = netip.MustParseAddr("172.31.66.20")
	web     = netip.MustParseAddr("93.184.216.34")
	dns     = netip.MustParseAddr("1.1.1.1")
)

func sampleStats() *analysis.Aggregator {
	agg := analysis.NewAggregator()
	for range 2 {
		agg.AddPacket(analysis.Packet{Client: clientA, Remote: web, Protocol: "TCP", Length: 100, DstPort: 443, HasPort: true, SYN: true})
	}
	agg.AddPacket(analysis.Packet{Client: clientA, Remote: dns, Protocol: "UDP", Length: 60, DstPort: 53, HasPort: true})
	agg.AddPacket(analysis.Packet{Client: clientB, Remote: dns, Protocol: "ICMP", Length: 84})
	return agg
}

func TestRender(t *testing.T) {
	want := `Traffic summary by protocol
  ICMP:1  TCP:2  UDP:1

Client 172.31.66.10: pkts=3 bytes=260B
  Protocols: TCP:2, UDP:1
  -> 93.184.216.34: pkts=2 bytes=200B conns=2
     ports: 443/HTTPS:2
     protocols: TCP:2
  -> 1.1.1.1: pkts=1 bytes=60B conns=0
     ports: 53/DNS:1
     protocols: UDP:1

Client 172.31.66.20: pkts=1 bytes=84B
  Protocols: ICMP:1
  -> 1.1.1.1: pkts=1 bytes=84B conns=0
     protocols: ICMP:1`

	assert.Equal(t, want, Render(sampleStats().Snapshot()))
}

func TestRenderEmpty(t *testing.T) {
	assert.Equal(t, "Traffic summary by protocol\n  (no data)", Render(analysis.NewAggregator().Snapshot()))
}

func TestRenderLimitsEndpoints(t *testing.T) {
	agg := analysis.NewAggregator()
	for i := range 5 {
		remote := netip.AddrFrom4([4]byte{10, 0, 0, byte(i + 1)})
		for range 5 - i {
			agg.AddPacket(analysis.Packet{Client: clientA, Remote: remote, Protocol: "UDP", Length: 10})
		}
	}
	out := Render(agg.Snapshot())
	assert.Contains(t, out, "-> 10.0.0.1:")
	assert.Contains(t, out, "-> 10.0.0.3:")
	assert.NotContains(t, out, "-> 10.0.0.4:")
}

func TestHumanBytes(t *testing.T) {
	tests := map[int64]string{
		0:          "0B",
		1023:       "1023B",
		1536:       "1.5KB",
		1048576:    "1.0MB",
		5368709120: "5.0GB",
	}
	for in, want := range tests {
		assert.Equal(t, want, HumanBytes(in), "HumanBytes(%d)", in)
	}
}

func TestRateMeter(t *testing.T) {
	var r RateMeter
	start := time.Unix(1700000000, 0)

	bps, pps := r.Update(start, analysis.Snapshot{TotalPackets: 10, TotalBytes: 1000})
	assert.Zero(t, bps)
	assert.Zero(t, pps)

	bps, pps = r.Update(start.Add(2*time.Second), analysis.Snapshot{TotalPackets: 30, TotalBytes: 3000})
	assert.InDelta(t, 8000.0, bps, 1e-9)
	assert.InDelta(t, 10.0, pps, 1e-9)

	bps, pps = r.Update(start.Add(2*time.Second), analysis.Snapshot{TotalPackets: 40, TotalBytes: 4000})
	assert.Zero(t, bps, "zero elapsed time yields no rate")
	assert.Zero(t, pps)
}

func TestFormatBps(t *testing.T) {
	assert.Equal(t, "512.00 bps", formatBps(512))
	assert.Equal(t, "1.50 Kbps", formatBps(1500))
	assert.Equal(t, "2.00 Mbps", formatBps(2e6))
}

func TestRunPlain(t *testing.T) {
	var buf bytes.Buffer
	var seen atomic.Int32

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	err := RunPlain(ctx, &buf, sampleStats(), Options{
		Interval:   10 * time.Millisecond,
		OnSnapshot: func(analysis.Snapshot) { seen.Add(1) },
	})
	assert.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Client 172.31.66.10: pkts=3")
	assert.Contains(t, out, "Rate: ")
	assert.NotContains(t, out, "\x1b[", "no terminal control codes")
	assert.Positive(t, seen.Load())
}
