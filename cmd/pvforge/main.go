package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Global flags
var (
	configPath   string
	debug        bool
	outputFormat string
	noHeaders    bool
	metricsFile  string
)

func main() {
	// Interrupting stops task polling between attempts.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	// Failed commands are written too, so timeouts show up.
	if werr := writeMetrics(metricsFile); werr != nil && err == nil {
		err = werr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pvforge",
	Short: "pvforge - Proxmox VE VM lifecycle tool",
	Long: `pvforge drives a Proxmox VE cluster through its HTTP API.

It creates, starts, stops and destroys virtual machines and containers from
YAML definition files, waits for every task the cluster starts, and uploads
ISO images, container templates and disk images to cluster storage.

Connection settings are read from ~/.pvforge/config.yaml and PVFORGE_*
environment variables.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (default ~/.pvforge/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, yaml, json")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false, "omit table headers")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit (node exporter textfile format)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(nodesCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(shutdownCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(freeIDCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(storageCmd)
}
