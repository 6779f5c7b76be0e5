// Package cli — команды оператора twctl поверх Console API и сервиса детекции.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	consoleURL string
	backendURL string
	timeout    time.Duration
	asJSON     bool
}

// NewRootCmd собирает дерево команд. Каждый вызов — независимый набор флагов.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "twctl",
		Short: "Operator CLI for the ThreatWatch dashboard",
		Long: `twctl reads the live dashboard view from the console API, triggers refreshes
and prints the locally synthesized fallback charts without any network access.

Quick Start:
  twctl view                                  # Stats cards, source and connection
  twctl refresh                               # Ask the coordinator to pull now
  twctl alerts                                # Newest-first alert feed
  twctl synth --total 100 --normal 90 --suspicious 10
  twctl status                                # Detection service status variant
  twctl fake-backend --addr 127.0.0.1:8000     # Canned detection service for local runs`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.consoleURL, "console", "http://localhost:8090", "Dashboard console API base URL")
	root.PersistentFlags().StringVar(&opts.backendURL, "backend", "http://localhost:8000", "Detection service base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print raw JSON instead of styled output")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newViewCmd(opts),
		newRefreshCmd(opts),
		newAlertsCmd(opts),
		newSynthCmd(opts),
		newStatusCmd(opts),
		newFakeBackendCmd(),
	)
	return root
}
