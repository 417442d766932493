package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tunwatch/internal/capture"
	"tunwatch/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and print the effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(v, configFile)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "interface:      %s (%s capture)\n", cfg.Interface, capture.ModeFor(cfg.Interface, cfg.Capture.TunnelPrefixes))
		fmt.Fprintf(out, "client subnet:  %s\n", cfg.Subnet())
		fmt.Fprintf(out, "ui:             %s, refresh %s\n", cfg.UI.Mode, cfg.UI.RefreshInterval)
		fmt.Fprintf(out, "log:            %s %s -> %s\n", cfg.Log.Level, cfg.Log.Format, logTarget(cfg.Log.File))
		if cfg.Events.Enabled {
			fmt.Fprintf(out, "event logs:     %s\n", cfg.Events.Dir)
		} else {
			fmt.Fprintln(out, "event logs:     disabled")
		}
		if cfg.Metrics.Enabled {
			fmt.Fprintf(out, "metrics:        %s%s\n", cfg.Metrics.Listen, cfg.Metrics.Path)
		} else {
			fmt.Fprintln(out, "metrics:        disabled")
		}
		fmt.Fprintln(out, "configuration is valid")
		return nil
	},
}

func logTarget(file string) string {
	if file == "" {
		return "stderr"
	}
	return file
}
