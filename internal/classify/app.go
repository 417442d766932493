// Package classify labels transport payloads with an application protocol.
package classify

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"
	"unicode/utf8"
)

// MaxInfoLen bounds the diagnostic handed to the logging sink.
const MaxInfoLen = 300

const (
	httpSniffLen   = 8
	httpHeadMaxLen = 256
	dnsHeaderLen   = 12
	bootpFixedLen  = 240
	ntpPacketLen   = 48
)

var httpMethods = [][]byte{
	[]byte("GET"), []byte("POST"), []byte("PUT"), []byte("DELETE"),
	[]byte("HEAD"), []byte("PATCH"), []byte("OPTIONS"),
}

var httpPorts = []uint16{80, 8080, 8000}

// App is an application protocol match with a short diagnostic string.
// Info is empty when the port identified the protocol but the payload was
// too short to describe.
type App struct {
	Name string
	Info string
}

// Classify checks HTTP, DNS, DHCP and NTP in that order and returns the
// first match. HTTP needs both a payload signature and an HTTP port; the
// others are keyed on ports alone.
func Classify(srcPort, dstPort uint16, payload []byte) (App, bool) {
	if anyPort(srcPort, dstPort, httpPorts...) {
		if info, ok := sniffHTTP(payload); ok {
			return App{Name: "HTTP", Info: info}, true
		}
	}
	if anyPort(srcPort, dstPort, 53) {
		return App{Name: "DNS", Info: sniffDNS(payload)}, true
	}
	if anyPort(srcPort, dstPort, 67, 68) {
		return App{Name: "DHCP", Info: sniffDHCP(payload)}, true
	}
	if anyPort(srcPort, dstPort, 123) {
		return App{Name: "NTP", Info: sniffNTP(payload)}, true
	}
	return App{}, false
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func anyPort(src, dst uint16, ports ...uint16) bool {
	for _, p := range ports {
		if src == p || dst == p {
			return true
		}
	}
	return false
}

func sniffHTTP(payload []byte) (string, bool) {
	head := payload[:min(len(payload), httpSniffLen)]
	if !bytes.HasPrefix(head, []byte("HTTP/")) && !hasMethod(head) {
		return "", false
	}

	block, _, _ := bytes.Cut(payload, []byte("\r\n\r\n"))
	block = block[:min(len(block), httpHeadMaxLen)]
	text := strings.ToValidUTF8(string(block), "")
	// Fields splits on \r and \n too, so line breaks collapse with the rest
	return strings.Join(strings.Fields(text), " "), true
}

func hasMethod(head []byte) bool {
	for _, m := range httpMethods {
		if bytes.HasPrefix(head, m) {
			return true
		}
	}
	return false
}

func sniffDNS(payload []byte) string {
	if len(payload) < dnsHeaderLen {
		return ""
	}
	tid := binary.BigEndian.Uint16(payload[0:2])
	flags := binary.BigEndian.Uint16(payload[2:4])
	qd := binary.BigEndian.Uint16(payload[4:6])
	an := binary.BigEndian.Uint16(payload[6:8])

	qr := flags >> 15 & 0x1
	opcode := flags >> 11 & 0xF
	rcode := flags & 0xF
	return fmt.Sprintf("DNS tid=%d qr=%d opcode=%d rcode=%d qd=%d an=%d", tid, qr, opcode, rcode, qd, an)
}

func sniffDHCP(payload []byte) string {
	if len(payload) < bootpFixedLen {
		return ""
	}
	op := payload[0]
	xid := binary.BigEndian.Uint32(payload[4:8])
	ciaddr := netip.AddrFrom4([4]byte(payload[12:16]))
	yiaddr := netip.AddrFrom4([4]byte(payload[16:20]))
	siaddr := netip.AddrFrom4([4]byte(payload[20:24]))
	return fmt.Sprintf("DHCP op=%d xid=%d yiaddr=%s siaddr=%s ciaddr=%s", op, xid, yiaddr, siaddr, ciaddr)
}

func sniffNTP(payload []byte) string {
	if len(payload) < ntpPacketLen {
		return ""
	}
	version := payload[0] >> 3 & 0x7
	mode := payload[0] & 0x7
	return fmt.Sprintf("NTP v=%d mode=%d", version, mode)
}
