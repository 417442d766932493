// Package reporting writes a session summary when monitoring ends.
package reporting

import (
	"fmt"
	"html"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tunwatch/internal/analysis"
)

// Endpoints listed per client in the report.
const reportEndpoints = 10

// Session describes the monitoring run a report covers.
type Session struct {
	Interface string
	Subnet    netip.Prefix
	Started   time.Time
	Ended     time.Time
}

// GenerateSessionReport writes an HTML report of snap into dir and returns
// the file path.
func GenerateSessionReport(snap analysis.Snapshot, sess Session, dir string) (string, error) {
	if sess.Ended.IsZero() {
		sess.Ended = time.Now()
	}
	timestamp := sess.Ended.Format("20060102_150405")
	filename := filepath.Join(dir, fmt.Sprintf("report_%s.html", timestamp))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var b strings.Builder
	fmt.Fprintf(&b, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>tunwatch Session Report - %s</title>
    <style>
        body { font-family: sans-serif; margin: 20px; color: #333; }
        h1, h2, h3 { color: #2c3e50; }
        table { width: 100%%; border-collapse: collapse; margin-bottom: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f2f2f2; }
        tr:nth-child(even) { background-color: #f9f9f9; }
        .summary { background: #eef; padding: 15px; border-radius: 5px; margin-bottom: 20px; }
    </style>
</head>
<body>
    <h1>tunwatch Session Report</h1>
    <div class="summary">
        <p><strong>Date:</strong> %s</p>
        <p><strong>Interface:</strong> %s</p>
        <p><strong>Client Subnet:</strong> %s</p>
        <p><strong>Duration:</strong> %s</p>
        <p><strong>Total Packets:</strong> %d</p>
        <p><strong>Total Data Transferred:</strong> %s</p>
    </div>
`, timestamp, sess.Ended.Format(time.RFC1123), html.EscapeString(sess.Interface), sess.Subnet,
		duration(sess), snap.TotalPackets, formatBytes(snap.TotalBytes))

	b.WriteString(`
    <h2>Protocols</h2>
    <table>
        <thead>
            <tr><th>Protocol</th><th>Packets</th></tr>
        </thead>
        <tbody>
`)
	protos := snap.SortedProtocols()
	if len(protos) == 0 {
		b.WriteString("            <tr><td colspan=\"2\">No client traffic captured.</td></tr>\n")
	}
	for _, p := range protos {
		fmt.Fprintf(&b, "            <tr><td>%s</td><td>%d</td></tr>\n", html.EscapeString(p.Protocol), p.Count)
	}
	b.WriteString(`        </tbody>
    </table>

    <h2>Clients</h2>
    <table>
        <thead>
            <tr><th>Client</th><th>Packets</th><th>Data</th><th>Endpoints</th><th>Protocols</th></tr>
        </thead>
        <tbody>
`)
	clients := snap.ClientAddrs()
	if len(clients) == 0 {
		b.WriteString("            <tr><td colspan=\"5\">No clients seen.</td></tr>\n")
	}
	for _, addr := range clients {
		cs := snap.Clients[addr]
		fmt.Fprintf(&b, "            <tr><td>%s</td><td>%d</td><td>%s</td><td>%d</td><td>%s</td></tr>\n",
			addr, cs.Packets, formatBytes(cs.Bytes), len(cs.Endpoints), html.EscapeString(protocolList(cs.TopProtocols(5))))
	}
	b.WriteString(`        </tbody>
    </table>
`)

	for _, addr := range clients {
		writeEndpoints(&b, addr, snap.Clients[addr])
	}

	b.WriteString(`</body>
</html>`)

	if _, err := file.WriteString(b.String()); err != nil {
		return "", err
	}
	return filename, nil
}

func writeEndpoints(b *strings.Builder, addr netip.Addr, cs analysis.ClientSnapshot) {
	fmt.Fprintf(b, `
    <h3>Top endpoints of %s</h3>
    <table>
        <thead>
            <tr><th>Remote</th><th>Packets</th><th>Data</th><th>TCP Connections</th><th>Ports</th><th>Protocols</th></tr>
        </thead>
        <tbody>
`, addr)
	for _, ep := range cs.TopEndpoints(reportEndpoints) {
		ports := make([]string, len(ep.TopPorts))
		for i, p := range ep.TopPorts {
			ports[i] = fmt.Sprintf("%s (%d)", analysis.PortLabel(p.Port), p.Count)
		}
		fmt.Fprintf(b, "            <tr><td>%s</td><td>%d</td><td>%s</td><td>%d</td><td>%s</td><td>%s</td></tr>\n",
			ep.Remote, ep.Packets, formatBytes(ep.Bytes), ep.TCPConnections,
			html.EscapeString(strings.Join(ports, ", ")), html.EscapeString(protocolList(ep.TopProtocols)))
	}
	b.WriteString(`        </tbody>
    </table>
`)
}

func protocolList(counts []analysis.ProtocolCount) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprintf("%s (%d)", c.Protocol, c.Count)
	}
	return strings.Join(parts, ", ")
}

func duration(s Session) string {
	if s.Started.IsZero() {
		return "-"
	}
	return s.Ended.Sub(s.Started).Round(time.Second).String()
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
