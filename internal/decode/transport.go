package decode

import (
	"encoding/binary"
)

const (
	udpHeaderLen    = 8
	tcpHeaderMinLen = 20
	icmpMinLen      = 4
)

// TCP decodes a TCP header. The data offset must describe a header of at
// least 20 bytes that fits in the buffer.
func TCP(data []byte) (TCPHeader, error) {
	if len(data) < tcpHeaderMinLen {
		return TCPHeader{}, ErrTooShort
	}

	// Data offset (upper 4 bits), reserved, and 9 control bits share bytes 12-13
	offsetFlags := binary.BigEndian.Uint16(data[12:14])
	headerLen := int(offsetFlags>>12) * 4
	if headerLen < tcpHeaderMinLen || headerLen > len(data) {
		return TCPHeader{}, ErrHeaderLen
	}

	return TCPHeader{
		SrcPort:   binary.BigEndian.Uint16(data[0:2]),
		DstPort:   binary.BigEndian.Uint16(data[2:4]),
		Seq:       binary.BigEndian.Uint32(data[4:8]),
		Ack:       binary.BigEndian.Uint32(data[8:12]),
		HeaderLen: headerLen,
		Flags:     TCPFlags(offsetFlags & 0x01FF),
		Payload:   data[headerLen:],
	}, nil
}

// UDP decodes a UDP header. The payload ends at the declared length, or at
// the end of the buffer when the datagram was truncated.
func UDP(data []byte) (UDPHeader, error) {
	if len(data) < udpHeaderLen {
		return UDPHeader{}, ErrTooShort
	}

	length := binary.BigEndian.Uint16(data[4:6])
	return UDPHeader{
		SrcPort: binary.BigEndian.Uint16(data[0:2]),
		DstPort: binary.BigEndian.Uint16(data[2:4]),
		Length:  length,
		Payload: clampedPayload(data, udpHeaderLen, int(length)),
	}, nil
}

// ICMP reads the type and code of an ICMPv4 or ICMPv6 message.
func ICMP(data []byte) (ICMPInfo, error) {
	if len(data) < icmpMinLen {
		return ICMPInfo{}, ErrTooShort
	}
	return ICMPInfo{Type: data[0], Code: data[1]}, nil
}
