package eventlog

import (
	"encoding/csv"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunwatch/internal/models"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVWritesEvents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	sink, err := NewCSV(dir, Rotation{MaxSizeMB: 1})
	require.NoError(t, err)

	ts := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	src := netip.MustParseAddr("172.31.66.10")
	dst := netip.MustParseAddr("8.8.8.8")

	require.NoError(t, sink.Network(models.NetworkEvent{
		Timestamp: ts, Protocol: "ICMP", SrcIP: src, DstIP: dst, IPProto: 1, Info: "ICMP type=8 code=0", Length: 84,
	}))
	require.NoError(t, sink.Transport(models.TransportEvent{
		Timestamp: ts, Protocol: "UDP", SrcIP: src, SrcPort: 40000, DstIP: dst, DstPort: 53, Length: 60,
	}))
	require.NoError(t, sink.App(models.AppEvent{Timestamp: ts, App: "DNS", Info: "DNS tid=1, qr=0"}))
	require.NoError(t, sink.Close())

	internet := readCSV(t, filepath.Join(dir, "internet.csv"))
	require.Len(t, internet, 2)
	assert.Equal(t, networkHeader, internet[0])
	assert.Equal(t, []string{"2026-10-17T12:00:00.000000Z", "ICMP", "172.31.66.10", "8.8.8.8", "1", "ICMP type=8 code=0", "84"}, internet[1])

	transport := readCSV(t, filepath.Join(dir, "transport.csv"))
	require.Len(t, transport, 2)
	assert.Equal(t, []string{"2026-10-17T12:00:00.000000Z", "UDP", "172.31.66.10", "40000", "8.8.8.8", "53", "60"}, transport[1])

	app := readCSV(t, filepath.Join(dir, "application.csv"))
	require.Len(t, app, 2)
	assert.Equal(t, appHeader, app[0])
	assert.Equal(t, "DNS tid=1, qr=0", app[1][2])
}

func TestCSVAppendsWithoutSecondHeader(t *testing.T) {
	dir := t.TempDir()
	ev := models.AppEvent{Timestamp: time.Now(), App: "NTP", Info: "NTP v=4 mode=3"}

	for i := 0; i < 2; i++ {
		sink, err := NewCSV(dir, Rotation{MaxSizeMB: 1})
		require.NoError(t, err)
		require.NoError(t, sink.App(ev))
		require.NoError(t, sink.Close())
	}

	rows := readCSV(t, filepath.Join(dir, "application.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, appHeader, rows[0])
	assert.Equal(t, "NTP", rows[1][1])
	assert.Equal(t, "NTP", rows[2][1])
}

func TestCSVRotationStartsWithHeader(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewCSV(dir, Rotation{MaxSizeMB: 1})
	require.NoError(t, err)

	ev := models.NetworkEvent{
		Timestamp: time.Now(),
		Protocol:  "IPv4",
		SrcIP:     netip.MustParseAddr("1.1.1.1"),
		DstIP:     netip.MustParseAddr("2.2.2.2"),
		Info:      strings.Repeat("x", 250),
		Length:    1500,
	}
	const rows = 5000
	for range rows {
		require.NoError(t, sink.Network(ev))
	}
	require.NoError(t, sink.Close())

	backups, err := filepath.Glob(filepath.Join(dir, "internet-*.csv"))
	require.NoError(t, err)
	require.NotEmpty(t, backups, "more than 1 MB was written")

	total := 0
	for _, path := range append(backups, filepath.Join(dir, "internet.csv")) {
		got := readCSV(t, path)
		require.NotEmpty(t, got, path)
		assert.Equal(t, networkHeader, got[0], "first line of %s", path)
		total += len(got) - 1

		fi, err := os.Stat(path)
		require.NoError(t, err)
		assert.LessOrEqual(t, fi.Size(), int64(1<<20), path)
	}
	assert.Equal(t, rows, total)
}

func TestCSVRotatesFullFileOnOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "internet.csv")
	full := strings.Join(networkHeader, ",") + "\n" + strings.Repeat("y", (1<<20)-200) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(full), 0o644))

	sink, err := NewCSV(dir, Rotation{MaxSizeMB: 1})
	require.NoError(t, err)
	require.NoError(t, sink.Network(models.NetworkEvent{
		Timestamp: time.Now(), Protocol: "IPv6", Info: strings.Repeat("z", 300), Length: 40,
	}))
	require.NoError(t, sink.Close())

	got := readCSV(t, path)
	require.Len(t, got, 2)
	assert.Equal(t, networkHeader, got[0])
	assert.Equal(t, "IPv6", got[1][1])
}

func TestNop(t *testing.T) {
	var s Sink = Nop{}
	assert.NoError(t, s.Network(models.NetworkEvent{}))
	assert.NoError(t, s.Transport(models.TransportEvent{}))
	assert.NoError(t, s.App(models.AppEvent{}))
	assert.NoError(t, s.Close())
}
