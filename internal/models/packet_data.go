package models

import (
	"net/netip"
	"time"
)

// NetworkEvent is one decoded network-layer packet.
type NetworkEvent struct {
	Timestamp time.Time
	Protocol  string // IPv4, IPv6 or ICMP
	SrcIP     netip.Addr
	DstIP     netip.Addr
	IPProto   uint8
	Info      string // ICMP type/code when present
	Length    int
}

// TransportEvent is one decoded TCP or UDP segment.
type TransportEvent struct {
	Timestamp time.Time
	Protocol  string
	SrcIP     netip.Addr
	SrcPort   uint16
	DstIP     netip.Addr
	DstPort   uint16
	Length    int
}

// AppEvent is one classified application payload.
type AppEvent struct {
	Timestamp time.Time
	App       string
	Info      string
}
