package analysis

import (
	"net/netip"
	"sync"
)

// Packet is one attributed observation handed to the Aggregator.
type Packet struct {
	Client   netip.Addr
	Remote   netip.Addr
	Protocol string
	Length   int

	// DstPort is only counted when HasPort is set.
	DstPort uint16
	HasPort bool

	// SYN marks a TCP segment carrying the SYN flag, counted as a
	// connection attempt.
	SYN bool
}

type endpointStats struct {
	packets        int64
	bytes          int64
	tcpConnections int64
	ports          *orderedCounter[uint16]
	protocols      *orderedCounter[string]
}

type clientStats struct {
	packets   int64
	bytes     int64
	protocols *orderedCounter[string]
	endpoints map[netip.Addr]*endpointStats
}

// Aggregator tracks per-client and per-endpoint traffic counters.
//
// Records are created on first sight and never evicted, so memory grows with
// the number of distinct clients and remote endpoints observed.
type Aggregator struct {
	mu           sync.Mutex
	totalPackets int64
	totalBytes   int64
	protocols    *orderedCounter[string]
	clients      map[netip.Addr]*clientStats
	endpoints    int
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		protocols: newOrderedCounter[string](),
		clients:   make(map[netip.Addr]*clientStats),
	}
}

// AddPacket updates the counters with one packet.
func (a *Aggregator) AddPacket(p Packet) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cs, ok := a.clients[p.Client]
	if !ok {
		cs = &clientStats{
			protocols: newOrderedCounter[string](),
			endpoints: make(map[netip.Addr]*endpointStats),
		}
		a.clients[p.Client] = cs
	}
	es, ok := cs.endpoints[p.Remote]
	if !ok {
		es = &endpointStats{
			ports:     newOrderedCounter[uint16](),
			protocols: newOrderedCounter[string](),
		}
		cs.endpoints[p.Remote] = es
		a.endpoints++
	}

	length := int64(p.Length)

	a.totalPackets++
	a.totalBytes += length
	a.protocols.add(p.Protocol)

	cs.packets++
	cs.bytes += length
	cs.protocols.add(p.Protocol)

	es.packets++
	es.bytes += length
	es.protocols.add(p.Protocol)
	if p.HasPort {
		es.ports.add(p.DstPort)
	}
	if p.SYN {
		es.tcpConnections++
	}
}

// Snapshot returns a copy of every counter. The copy shares no memory with
// the Aggregator.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := Snapshot{
		TotalPackets: a.totalPackets,
		TotalBytes:   a.totalBytes,
		Protocols:    a.protocols.toMap(),
		Clients:      make(map[netip.Addr]ClientSnapshot, len(a.clients)),
		Endpoints:    a.endpoints,
	}
	for addr, cs := range a.clients {
		c := ClientSnapshot{
			Packets:   cs.packets,
			Bytes:     cs.bytes,
			Protocols: cs.protocols.toMap(),
			Endpoints: make(map[netip.Addr]EndpointSnapshot, len(cs.endpoints)),
		}
		for remote, es := range cs.endpoints {
			e := EndpointSnapshot{
				Packets:        es.packets,
				Bytes:          es.bytes,
				TCPConnections: es.tcpConnections,
			}
			for _, entry := range es.ports.top(topN) {
				e.TopPorts = append(e.TopPorts, PortCount{Port: entry.key, Count: entry.count})
			}
			for _, entry := range es.protocols.top(topN) {
				e.TopProtocols = append(e.TopProtocols, ProtocolCount{Protocol: entry.key, Count: entry.count})
			}
			c.Endpoints[remote] = e
		}
		snap.Clients[addr] = c
	}
	return snap
}

// Attribute picks the client side of a packet. The source wins when it is
// inside subnet; otherwise the destination is tried, which credits return
// traffic to the client. Packets with neither address inside subnet are not
// attributed.
func Attribute(src, dst netip.Addr, subnet netip.Prefix) (client, remote netip.Addr, ok bool) {
	switch {
	case subnet.Contains(src):
		return src, dst, true
	case subnet.Contains(dst):
		return dst, src, true
	default:
		return netip.Addr{}, netip.Addr{}, false
	}
}
