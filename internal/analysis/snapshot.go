package analysis

import (
	"net/netip"
	"sort"
)

// topN is how many ports and protocols are kept per endpoint in a Snapshot.
const topN = 5

// PortCount is a destination port and its hit count.
type PortCount struct {
	Port  uint16
	Count int64
}

// ProtocolCount is a protocol name and its hit count.
type ProtocolCount struct {
	Protocol string
	Count    int64
}

// EndpointSnapshot holds the counters of one client/remote pair.
type EndpointSnapshot struct {
	Packets        int64
	Bytes          int64
	TCPConnections int64
	TopPorts       []PortCount
	TopProtocols   []ProtocolCount
}

// ClientSnapshot holds the counters of one tunnel client.
type ClientSnapshot struct {
	Packets   int64
	Bytes     int64
	Protocols map[string]int64
	Endpoints map[netip.Addr]EndpointSnapshot
}

// Snapshot is a point-in-time copy of the Aggregator.
type Snapshot struct {
	TotalPackets int64
	TotalBytes   int64
	Protocols    map[string]int64
	Clients      map[netip.Addr]ClientSnapshot
	Endpoints    int // endpoint records across all clients
}

// ClientAddrs returns the client addresses ordered by packet count, then by
// address.
func (s Snapshot) ClientAddrs() []netip.Addr {
	addrs := make([]netip.Addr, 0, len(s.Clients))
	for addr := range s.Clients {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		pi, pj := s.Clients[addrs[i]].Packets, s.Clients[addrs[j]].Packets
		if pi != pj {
			return pi > pj
		}
		return addrs[i].Less(addrs[j])
	})
	return addrs
}

// SortedProtocols returns the global protocol totals ordered by name.
func (s Snapshot) SortedProtocols() []ProtocolCount {
	return sortByName(s.Protocols)
}

// EndpointStat pairs a remote address with its counters.
type EndpointStat struct {
	Remote netip.Addr
	EndpointSnapshot
}

// TopEndpoints returns up to n endpoints of a client ordered by packet count.
func (c ClientSnapshot) TopEndpoints(n int) []EndpointStat {
	stats := make([]EndpointStat, 0, len(c.Endpoints))
	for remote, e := range c.Endpoints {
		stats = append(stats, EndpointStat{Remote: remote, EndpointSnapshot: e})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Packets != stats[j].Packets {
			return stats[i].Packets > stats[j].Packets
		}
		return stats[i].Remote.Less(stats[j].Remote)
	})
	if len(stats) > n {
		return stats[:n]
	}
	return stats
}

// TopProtocols returns up to n protocols of a client ordered by count.
func (c ClientSnapshot) TopProtocols(n int) []ProtocolCount {
	stats := sortByName(c.Protocols)
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Count > stats[j].Count
	})
	if len(stats) > n {
		return stats[:n]
	}
	return stats
}

func sortByName(m map[string]int64) []ProtocolCount {
	stats := make([]ProtocolCount, 0, len(m))
	for proto, count := range m {
		stats = append(stats, ProtocolCount{Protocol: proto, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Protocol < stats[j].Protocol
	})
	return stats
}
