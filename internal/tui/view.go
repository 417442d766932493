package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tunwatch/internal/analysis"
)

// Endpoints listed for the selected client.
const detailEndpoints = 3

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF7DB")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Margin(0, 1)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func (m Model) View() string {
	header := fmt.Sprintf("tunwatch - %s (%s capture) - clients %s", m.opts.Interface, m.opts.Mode, m.opts.Subnet)
	title := titleStyle.Render(header)

	rate := fmt.Sprintf("Bandwidth: %s\nPacket Rate: %.2f PPS\nTotal: %d pkts, %s",
		formatBps(m.bps), m.pps, m.snap.TotalPackets, HumanBytes(m.snap.TotalBytes))
	rateBox := infoStyle.Render(rate)

	var protoLines []string
	for _, p := range m.snap.SortedProtocols() {
		protoLines = append(protoLines, fmt.Sprintf("%s: %d", p.Protocol, p.Count))
	}
	if len(protoLines) == 0 {
		protoLines = append(protoLines, "Waiting for data...")
	}
	protoBox := infoStyle.Render("Protocols:\n" + strings.Join(protoLines, "\n"))

	clientBox := infoStyle.Render(fmt.Sprintf("Clients (%d)\n", len(m.clients)) + m.table.View())

	row1 := lipgloss.JoinHorizontal(lipgloss.Top, rateBox, protoBox)
	body := lipgloss.JoinVertical(lipgloss.Left, title, row1, clientBox, infoStyle.Render(m.detailView()))

	return body + "\n" + dimStyle.Render("↑/↓ select client • q to quit")
}

func (m Model) detailView() string {
	addr, ok := m.selected()
	if !ok {
		return "No client traffic yet"
	}
	cs := m.snap.Clients[addr]

	var b strings.Builder
	fmt.Fprintf(&b, "Top endpoints of %s", addr)
	eps := cs.TopEndpoints(detailEndpoints)
	for _, ep := range eps {
		b.WriteString("\n")
		b.WriteString(endpointLines(ep))
	}
	return b.String()
}

// endpointLines formats one endpoint over up to three lines.
func endpointLines(ep analysis.EndpointStat) string {
	lines := []string{
		fmt.Sprintf("-> %s: pkts=%d bytes=%s conns=%d", ep.Remote, ep.Packets, HumanBytes(ep.Bytes), ep.TCPConnections),
	}
	if len(ep.TopPorts) > 0 {
		ports := make([]string, len(ep.TopPorts))
		for i, p := range ep.TopPorts {
			ports[i] = fmt.Sprintf("%s:%d", analysis.PortLabel(p.Port), p.Count)
		}
		lines = append(lines, "   ports: "+strings.Join(ports, ", "))
	}
	if len(ep.TopProtocols) > 0 {
		lines = append(lines, "   protocols: "+protocolList(ep.TopProtocols, ", "))
	}
	return strings.Join(lines, "\n")
}

func formatBps(bps float64) string {
	if bps >= 1e6 {
		return fmt.Sprintf("%.2f Mbps", bps/1e6)
	}
	if bps >= 1e3 {
		return fmt.Sprintf("%.2f Kbps", bps/1e3)
	}
	return fmt.Sprintf("%.2f bps", bps)
}
