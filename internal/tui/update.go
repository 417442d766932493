package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"tunwatch/internal/analysis"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case refreshMsg:
		return m.refresh(time.Now()), nil

	case TickMsg:
		m = m.refresh(time.Time(msg))
		return m, m.tickCmd()
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) refresh(now time.Time) Model {
	m.snap = m.src.Snapshot()
	if m.opts.OnSnapshot != nil {
		m.opts.OnSnapshot(m.snap)
	}
	m.bps, m.pps = m.rates.Update(now, m.snap)
	m.clients = m.snap.ClientAddrs()

	rows := make([]table.Row, len(m.clients))
	for i, addr := range m.clients {
		cs := m.snap.Clients[addr]
		rows[i] = table.Row{
			addr.String(),
			fmt.Sprintf("%d", cs.Packets),
			HumanBytes(cs.Bytes),
			fmt.Sprintf("%d", len(cs.Endpoints)),
			protocolList(cs.TopProtocols(3), " "),
		}
	}
	m.table.SetRows(rows)
	return m
}

func protocolList(counts []analysis.ProtocolCount, sep string) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprintf("%s:%d", c.Protocol, c.Count)
	}
	return strings.Join(parts, sep)
}
