// Package tui renders aggregator snapshots, either as a bubbletea program or
// as periodic plain text.
package tui

import (
	"context"
	"errors"
	"net/netip"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tunwatch/internal/analysis"
)

// Snapshotter is the read side of the aggregator.
type Snapshotter interface {
	Snapshot() analysis.Snapshot
}

// Options configure both display modes.
type Options struct {
	Interface string
	Mode      string
	Subnet    netip.Prefix
	Interval  time.Duration

	// OnSnapshot, when set, sees every snapshot taken by the display.
	OnSnapshot func(analysis.Snapshot)
}

// TickMsg asks the model to take a fresh snapshot and schedule the next tick.
type TickMsg time.Time

// refreshMsg fills the screen once, right after start.
type refreshMsg struct{}

// Model is the bubbletea model of the live display.
type Model struct {
	src     Snapshotter
	opts    Options
	snap    analysis.Snapshot
	clients []netip.Addr
	rates   RateMeter
	bps     float64
	pps     float64
	table   table.Model
}

// New builds the display model.
func New(src Snapshotter, opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}

	columns := []table.Column{
		{Title: "Client", Width: 18},
		{Title: "Packets", Width: 10},
		{Title: "Bytes", Width: 10},
		{Title: "Endpoints", Width: 9},
		{Title: "Protocols", Width: 30},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return Model{
		src:   src,
		opts:  opts,
		table: t,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(func() tea.Msg { return refreshMsg{} }, m.tickCmd())
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.opts.Interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// selected returns the client under the table cursor.
func (m Model) selected() (netip.Addr, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.clients) {
		return netip.Addr{}, false
	}
	return m.clients[i], true
}

// Run shows the live display until the user quits or ctx is cancelled.
func Run(ctx context.Context, src Snapshotter, opts Options) error {
	p := tea.NewProgram(New(src, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
