package capture

import "encoding/binary"

// EthernetHeaderLen is the length of an untagged Ethernet II header.
const EthernetHeaderLen = 14

const (
	etherTypeIPv4 = 0x0800
	etherTypeIPv6 = 0x86DD
)

// SplitLinkLayer separates a link-layer header from the network-layer
// packet. Detection is a heuristic and the order of checks is fixed:
//
//  1. at least 14 bytes with EtherType IPv4 or IPv6 at [12:14]: the first
//     14 bytes are an Ethernet header;
//  2. an IP version nibble (4 or 6) in the first byte: no header;
//  3. anything else is passed through unchanged.
//
// link is nil when no header was found. Neither slice is copied.
func SplitLinkLayer(frame []byte) (link, network []byte) {
	if len(frame) >= EthernetHeaderLen {
		switch binary.BigEndian.Uint16(frame[12:14]) {
		case etherTypeIPv4, etherTypeIPv6:
			return frame[:EthernetHeaderLen], frame[EthernetHeaderLen:]
		}
	}
	return nil, frame
}
