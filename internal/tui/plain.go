package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"tunwatch/internal/analysis"
)

// Limits of the plain-text view.
const (
	plainClientProtocols = 6
	plainEndpoints       = 3
)

// RateMeter turns successive snapshot totals into rates.
type RateMeter struct {
	last    time.Time
	packets int64
	bytes   int64
}

// Update records snap taken at now and returns bits and packets per second
// since the previous call. The first call returns zero rates.
func (r *RateMeter) Update(now time.Time, snap analysis.Snapshot) (bps, pps float64) {
	if !r.last.IsZero() {
		if dt := now.Sub(r.last).Seconds(); dt > 0 {
			bps = float64(snap.TotalBytes-r.bytes) * 8 / dt
			pps = float64(snap.TotalPackets-r.packets) / dt
		}
	}
	r.last, r.packets, r.bytes = now, snap.TotalPackets, snap.TotalBytes
	return bps, pps
}

// HumanBytes formats n with a binary unit, e.g. "512B" or "1.5KB".
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	v := float64(n)
	for _, u := range []string{"KB", "MB", "GB", "TB"} {
		v /= unit
		if v < unit {
			return fmt.Sprintf("%.1f%s", v, u)
		}
	}
	return fmt.Sprintf("%.1fPB", v/unit)
}

// Render formats a snapshot as plain text: global protocol totals, then each
// client with its top protocols and top endpoints.
func Render(snap analysis.Snapshot) string {
	lines := []string{"Traffic summary by protocol"}
	if protos := snap.SortedProtocols(); len(protos) > 0 {
		parts := make([]string, len(protos))
		for i, p := range protos {
			parts[i] = fmt.Sprintf("%s:%d", p.Protocol, p.Count)
		}
		lines = append(lines, "  "+strings.Join(parts, "  "))
	} else {
		lines = append(lines, "  (no data)")
	}

	for _, addr := range snap.ClientAddrs() {
		cs := snap.Clients[addr]
		lines = append(lines, "",
			fmt.Sprintf("Client %s: pkts=%d bytes=%s", addr, cs.Packets, HumanBytes(cs.Bytes)))
		if protos := cs.TopProtocols(plainClientProtocols); len(protos) > 0 {
			lines = append(lines, "  Protocols: "+protocolList(protos, ", "))
		}
		for _, ep := range cs.TopEndpoints(plainEndpoints) {
			for _, l := range strings.Split(endpointLines(ep), "\n") {
				lines = append(lines, "  "+l)
			}
		}
	}
	return strings.Join(lines, "\n")
}

// RunPlain writes a rendered snapshot to w every opts.Interval until ctx is
// cancelled. It never emits terminal control codes.
func RunPlain(ctx context.Context, w io.Writer, src Snapshotter, opts Options) error {
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var rates RateMeter
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			snap := src.Snapshot()
			if opts.OnSnapshot != nil {
				opts.OnSnapshot(snap)
			}
			bps, pps := rates.Update(now, snap)
			if _, err := fmt.Fprintf(w, "%s\nRate: %s, %.2f pps\n\n", Render(snap), formatBps(bps), pps); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}
	}
}
