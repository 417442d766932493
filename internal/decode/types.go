// Package decode implements the network and transport header decoders.
package decode

import (
	"errors"
	"net/netip"
	"strings"
)

// Decoding errors. A frame that fails any of these checks is dropped from
// further processing.
var (
	ErrTooShort  = errors.New("decode: buffer too short")
	ErrVersion   = errors.New("decode: unexpected IP version")
	ErrHeaderLen = errors.New("decode: header length out of range")
	ErrNotIP     = errors.New("decode: not an IPv4 or IPv6 packet")
)

// IP protocol numbers the pipeline acts on.
const (
	ProtoICMP   = 1
	ProtoTCP    = 6
	ProtoUDP    = 17
	ProtoICMPv6 = 58
)

// IPHeader is a decoded IPv4 or IPv6 header. Version tells the two apart.
type IPHeader struct {
	Version  uint8
	Src      netip.Addr
	Dst      netip.Addr
	Protocol uint8 // IPv4 protocol or IPv6 next header

	HeaderLen   int
	DeclaredLen int // total length as carried on the wire
	TotalLen    int // DeclaredLen clamped to the captured bytes

	Payload []byte
}

// Name returns "IPv4" or "IPv6".
func (h IPHeader) Name() string {
	if h.Version == 6 {
		return "IPv6"
	}
	return "IPv4"
}

// IsICMP reports whether the header carries ICMP for its IP version.
func (h IPHeader) IsICMP() bool {
	return (h.Version == 4 && h.Protocol == ProtoICMP) ||
		(h.Version == 6 && h.Protocol == ProtoICMPv6)
}

// TCPFlags holds the nine TCP control bits.
type TCPFlags uint16

const (
	FlagFIN TCPFlags = 1 << iota
	FlagSYN
	FlagRST
	FlagPSH
	FlagACK
	FlagURG
	FlagECE
	FlagCWR
	FlagNS
)

var flagNames = []struct {
	flag TCPFlags
	name string
}{
	{FlagNS, "NS"}, {FlagCWR, "CWR"}, {FlagECE, "ECE"},
	{FlagURG, "URG"}, {FlagACK, "ACK"}, {FlagPSH, "PSH"},
	{FlagRST, "RST"}, {FlagSYN, "SYN"}, {FlagFIN, "FIN"},
}

// Has reports whether every bit of f is set.
func (t TCPFlags) Has(f TCPFlags) bool {
	return t&f == f
}

// SYN reports whether the SYN bit is set.
func (t TCPFlags) SYN() bool {
	return t&FlagSYN != 0
}

func (t TCPFlags) String() string {
	var names []string
	for _, fn := range flagNames {
		if t&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, "|")
}

// TCPHeader is a decoded TCP segment header.
type TCPHeader struct {
	SrcPort   uint16
	DstPort   uint16
	Seq       uint32
	Ack       uint32
	HeaderLen int
	Flags     TCPFlags
	Payload   []byte
}

// UDPHeader is a decoded UDP datagram header.
type UDPHeader struct {
	SrcPort uint16
	DstPort uint16
	Length  uint16 // declared length, header included
	Payload []byte
}

// ICMPInfo is the type/code pair shared by ICMPv4 and ICMPv6.
type ICMPInfo struct {
	Type uint8
	Code uint8
}

// clampedPayload returns data[start:end] with end limited to len(data) and
// never below start.
func clampedPayload(data []byte, start, end int) []byte {
	if end > len(data) {
		end = len(data)
	}
	if end < start {
		end = start
	}
	return data[start:end]
}
