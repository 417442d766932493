package decode

import (
	"encoding/binary"
	"net/netip"
)

const (
	ipv4HeaderMinLen = 20
	ipv6HeaderLen    = 40
)

// IP decodes data as IPv4, falling back to IPv6.
func IP(data []byte) (IPHeader, error) {
	if h, err := IPv4(data); err == nil {
		return h, nil
	}
	if h, err := IPv6(data); err == nil {
		return h, nil
	}
	return IPHeader{}, ErrNotIP
}

// IPv4 decodes an IPv4 header.
func IPv4(data []byte) (IPHeader, error) {
	if len(data) < ipv4HeaderMinLen {
		return IPHeader{}, ErrTooShort
	}

	// Version in the upper 4 bits, IHL in 32-bit words in the lower 4 bits
	if data[0]>>4 != 4 {
		return IPHeader{}, ErrVersion
	}
	headerLen := int(data[0]&0x0F) * 4
	if headerLen < ipv4HeaderMinLen || headerLen > len(data) {
		return IPHeader{}, ErrHeaderLen
	}

	// Total Length (2 bytes at offset 2)
	declared := int(binary.BigEndian.Uint16(data[2:4]))

	h := IPHeader{
		Version:     4,
		Protocol:    data[9],
		HeaderLen:   headerLen,
		DeclaredLen: declared,
		TotalLen:    min(declared, len(data)),
		Src:         netip.AddrFrom4([4]byte(data[12:16])),
		Dst:         netip.AddrFrom4([4]byte(data[16:20])),
	}
	h.Payload = clampedPayload(data, headerLen, declared)
	return h, nil
}

// IPv6 decodes the fixed IPv6 header. Extension headers are left in the
// payload.
func IPv6(data []byte) (IPHeader, error) {
	if len(data) < ipv6HeaderLen {
		return IPHeader{}, ErrTooShort
	}
	if data[0]>>4 != 6 {
		return IPHeader{}, ErrVersion
	}

	// Payload Length (2 bytes at offset 4)
	declared := ipv6HeaderLen + int(binary.BigEndian.Uint16(data[4:6]))

	h := IPHeader{
		Version:     6,
		Protocol:    data[6],
		HeaderLen:   ipv6HeaderLen,
		DeclaredLen: declared,
		TotalLen:    min(declared, len(data)),
		Src:         netip.AddrFrom16([16]byte(data[8:24])),
		Dst:         netip.AddrFrom16([16]byte(data[24:40])),
	}
	h.Payload = clampedPayload(data, ipv6HeaderLen, declared)
	return h, nil
}
