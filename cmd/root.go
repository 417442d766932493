// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tunwatch/internal/config"
)

var (
	// Global flags
	configFile string

	v = config.New()

	// boundFlags maps config keys to the flags that override them.
	boundFlags = map[string]string{
		"interface":      "interface",
		"client_subnet":  "client-subnet",
		"ui.mode":        "ui",
		"report.enabled": "report",
	}
)

// rootCmd captures on an interface and shows per-client traffic until
// interrupted.
var rootCmd = &cobra.Command{
	Use:   "tunwatch",
	Short: "tunwatch - live per-client traffic monitor for tunnel links",
	Long: `tunwatch captures raw frames on a network interface, decodes the IP, ICMP, TCP and UDP
layers, recognises HTTP, DNS, DHCP and NTP payloads, and attributes traffic to the tunnel
clients of a subnet.

Interfaces named like a tunnel device (tun*) are read at the network layer; any other
interface is captured with libpcap. Raw capture needs root or CAP_NET_RAW.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMonitor,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file path (YAML)")

	f := rootCmd.Flags()
	f.StringP("interface", "i", "tun0", "capture interface")
	f.String("client-subnet", "172.31.66.0/24", "subnet of the tunnel clients")
	f.String("ui", "auto", "display mode: auto, tui or plain")
	f.Duration("refresh", 0, "display refresh interval (default 1s)")
	f.String("log-level", "", "log level: debug, info, warn or error")
	f.String("log-file", "", "log file path (empty keeps the configured value)")
	f.String("events-dir", "", "directory for the CSV event logs")
	f.Bool("no-events", false, "disable the CSV event logs")
	f.String("metrics-listen", "", "serve Prometheus metrics on this address")
	f.Bool("report", false, "write an HTML session report on exit")

	bindFlags(v, boundFlags)

	rootCmd.AddCommand(validateCmd)
}

func bindFlags(v *viper.Viper, keys map[string]string) {
	for key, flag := range keys {
		if err := v.BindPFlag(key, rootCmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// applyOptionalFlags copies flags whose empty value means "not set" into v.
func applyOptionalFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if d, _ := flags.GetDuration("refresh"); d > 0 {
		v.Set("ui.refresh_interval", d)
	}
	if s, _ := flags.GetString("log-level"); s != "" {
		v.Set("log.level", s)
	}
	if flags.Changed("log-file") {
		s, _ := flags.GetString("log-file")
		v.Set("log.file", s)
	}
	if s, _ := flags.GetString("events-dir"); s != "" {
		v.Set("events.dir", s)
	}
	if off, _ := flags.GetBool("no-events"); off {
		v.Set("events.enabled", false)
	}
	if s, _ := flags.GetString("metrics-listen"); s != "" {
		v.Set("metrics.enabled", true)
		v.Set("metrics.listen", s)
	}
}
