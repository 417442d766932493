package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tunwatch/internal/analysis"
	"tunwatch/internal/capture"
	"tunwatch/internal/config"
	"tunwatch/internal/eventlog"
	tlog "tunwatch/internal/log"
	"tunwatch/internal/metrics"
	"tunwatch/internal/monitor"
	"tunwatch/internal/reporting"
	"tunwatch/internal/tui"
)

func runMonitor(cmd *cobra.Command, _ []string) error {
	applyOptionalFlags(cmd)
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return err
	}

	logger, err := tlog.New(cfg.Log)
	if err != nil {
		return err
	}
	defer tlog.Close(logger)
	log := logrus.NewEntry(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := capture.New(cfg.Interface, capture.Options{
		SnapLen:        cfg.Capture.SnapLen,
		PollTimeout:    cfg.Capture.PollTimeout,
		BufferMB:       cfg.Capture.BufferMB,
		Promiscuous:    cfg.Capture.Promiscuous,
		TunnelPrefixes: cfg.Capture.TunnelPrefixes,
	})
	// Privilege and device errors are fatal.
	if err := src.Open(); err != nil {
		return err
	}
	defer src.Close()

	sink, err := openSink(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.WithError(err).Warn("failed to close event logs")
		}
	}()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path, log.WithField("component", "metrics"))
		if err := srv.Start(); err != nil {
			return err
		}
		defer srv.Stop(context.Background())
	}

	stats := analysis.NewAggregator()
	mon := monitor.New(src, stats, sink, monitor.Options{Subnet: cfg.Subnet(), Logger: log})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	monErr := make(chan error, 1)
	go func() {
		monErr <- mon.Run(ctx)
		// A failed capture also ends the display.
		cancel()
	}()

	started := time.Now()
	useTUI := wantTUI(cfg.UI.Mode)
	opts := tui.Options{
		Interface:  src.Interface(),
		Mode:       src.Mode().String(),
		Subnet:     cfg.Subnet(),
		Interval:   cfg.UI.RefreshInterval,
		OnSnapshot: publishGauges,
	}

	var uiErr error
	if useTUI {
		uiErr = tui.Run(ctx, stats, opts)
	} else {
		uiErr = tui.RunPlain(ctx, os.Stdout, stats, opts)
	}
	cancel()
	runErr := <-monErr

	if cfg.Report.Enabled {
		path, err := reporting.GenerateSessionReport(stats.Snapshot(), reporting.Session{
			Interface: cfg.Interface,
			Subnet:    cfg.Subnet(),
			Started:   started,
		}, cfg.Report.Dir)
		if err != nil {
			log.WithError(err).Error("failed to write session report")
		} else {
			log.WithField("path", path).Info("session report written")
			fmt.Fprintf(os.Stderr, "Session report: %s\n", path)
		}
	}

	return errors.Join(uiErr, runErr)
}

func openSink(cfg *config.Config) (eventlog.Sink, error) {
	if !cfg.Events.Enabled {
		return eventlog.Nop{}, nil
	}
	rot := cfg.Events.Rotation
	sink, err := eventlog.NewCSV(cfg.Events.Dir, eventlog.Rotation{
		MaxSizeMB:  rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAgeDays: rot.MaxAgeDays,
		Compress:   rot.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("open event logs: %w", err)
	}
	return sink, nil
}

// wantTUI resolves ui.mode; "auto" picks the TUI only on a terminal.
func wantTUI(mode string) bool {
	switch mode {
	case "tui":
		return true
	case "plain":
		return false
	default:
		fd := os.Stdout.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
}

func publishGauges(snap analysis.Snapshot) {
	metrics.Clients.Set(float64(len(snap.Clients)))
	metrics.Endpoints.Set(float64(snap.Endpoints))
}
