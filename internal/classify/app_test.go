package classify

import (
	"strings"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyHTTPRequest(t *testing.T) {
	payload := []byte("GET / HTTP/1.1\r\nHost: example\r\n\r\n")

	app, ok := Classify(50000, 80, payload)
	require.True(t, ok)
	assert.Equal(t, "HTTP", app.Name)
	assert.Contains(t, app.Info, "GET / HTTP/1.1")
	assert.Equal(t, "GET / HTTP/1.1 Host: example", app.Info)
	assert.NotContains(t, app.Info, "\r")
	assert.NotContains(t, app.Info, "\n")
}

func TestClassifyHTTPResponseOnSourcePort(t *testing.T) {
	payload := []byte("HTTP/1.1 200 OK\r\nContent-Type:   text/html\r\n\r\n<html>")

	app, ok := Classify(8080, 41000, payload)
	require.True(t, ok)
	assert.Equal(t, "HTTP", app.Name)
	assert.Equal(t, "HTTP/1.1 200 OK Content-Type: text/html", app.Info)
}

func TestClassifyHTTPHeaderCappedAt256Bytes(t *testing.T) {
	payload := []byte("POST /upload HTTP/1.1\r\nX-Pad: " + strings.Repeat("a", 600))

	app, ok := Classify(1234, 8000, payload)
	require.True(t, ok)
	assert.Equal(t, "HTTP", app.Name)
	assert.LessOrEqual(t, len(app.Info), 256)
	assert.True(t, strings.HasPrefix(app.Info, "POST /upload HTTP/1.1 X-Pad: aaa"))
}

func TestClassifyHTTPNeedsPort(t *testing.T) {
	_, ok := Classify(50000, 9999, []byte("GET / HTTP/1.1\r\n\r\n"))
	assert.False(t, ok)
}

func TestClassifyHTTPSignatureMissFallsThrough(t *testing.T) {
	// Port 80 without an HTTP signature is not HTTP, and 53 still matches DNS.
	app, ok := Classify(53, 80, make([]byte, 12))
	require.True(t, ok)
	assert.Equal(t, "DNS", app.Name)

	_, ok = Classify(40000, 80, []byte{0x16, 0x03, 0x01})
	assert.False(t, ok)
}

func TestClassifyDNS(t *testing.T) {
	dns := &layers.DNS{
		ID:     0x1234,
		RD:     true,
		OpCode: layers.DNSOpCodeQuery,
		Questions: []layers.DNSQuestion{
			{Name: []byte("example.com"), Type: layers.DNSTypeA, Class: layers.DNSClassIN},
		},
	}
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, dns.SerializeTo(buf, gopacket.SerializeOptions{FixLengths: true}))

	app, ok := Classify(40000, 53, buf.Bytes())
	require.True(t, ok)
	assert.Equal(t, "DNS", app.Name)
	assert.Equal(t, "DNS tid=4660 qr=0 opcode=0 rcode=0 qd=1 an=0", app.Info)
}

func TestClassifyDNSHeaderOnly(t *testing.T) {
	// Response, opcode 2, rcode 3, one question, two answers.
	header := []byte{
		0xAB, 0xCD,
		0x90, 0x03,
		0x00, 0x01,
		0x00, 0x02,
		0x00, 0x00,
		0x00, 0x00,
	}

	app, ok := Classify(53, 40000, header)
	require.True(t, ok)
	assert.Equal(t, "DNS tid=43981 qr=1 opcode=2 rcode=3 qd=1 an=2", app.Info)
}

func TestClassifyDNSTruncated(t *testing.T) {
	app, ok := Classify(40000, 53, []byte{0x12, 0x34})
	require.True(t, ok)
	assert.Equal(t, App{Name: "DNS"}, app)
}

func TestClassifyDHCP(t *testing.T) {
	bootp := make([]byte, 240)
	bootp[0] = 1
	copy(bootp[4:8], []byte{0x12, 0x34, 0x56, 0x78})
	copy(bootp[16:20], []byte{10, 0, 0, 100})
	copy(bootp[20:24], []byte{10, 0, 0, 1})

	app, ok := Classify(68, 67, bootp)
	require.True(t, ok)
	assert.Equal(t, "DHCP", app.Name)
	assert.Equal(t, "DHCP op=1 xid=305419896 yiaddr=10.0.0.100 siaddr=10.0.0.1 ciaddr=0.0.0.0", app.Info)

	app, ok = Classify(67, 5000, bootp[:100])
	require.True(t, ok)
	assert.Equal(t, App{Name: "DHCP"}, app)
}

func TestClassifyNTP(t *testing.T) {
	ntp := make([]byte, 48)
	ntp[0] = 0<<6 | 4<<3 | 3

	app, ok := Classify(123, 123, ntp)
	require.True(t, ok)
	assert.Equal(t, "NTP v=4 mode=3", app.Info)

	app, ok = Classify(40000, 123, ntp[:47])
	require.True(t, ok)
	assert.Equal(t, App{Name: "NTP"}, app)
}

func TestClassifyPriority(t *testing.T) {
	// DNS outranks DHCP and NTP when ports overlap.
	app, ok := Classify(53, 123, make([]byte, 48))
	require.True(t, ok)
	assert.Equal(t, "DNS", app.Name)

	app, ok = Classify(67, 123, make([]byte, 48))
	require.True(t, ok)
	assert.Equal(t, "DHCP", app.Name)
}

func TestClassifyUnknown(t *testing.T) {
	_, ok := Classify(443, 51000, []byte{0x16, 0x03, 0x01, 0x00})
	assert.False(t, ok)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "çã", Truncate("çãõ", 2))
	assert.Len(t, []rune(Truncate(strings.Repeat("x", 400), MaxInfoLen)), MaxInfoLen)
}
