// Package cli implements relayctl, the command-line client for logrelay.
package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the relayctl command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "relayctl",
		Short: "logrelay CLI",
		Long: `relayctl talks to a running logrelay service.

Send test events through the Elasticsearch/Logstash cascade, read the
configured backend topology, and inspect delivery counters.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	rootCmd.PersistentFlags().String("url", envOr("RELAYCTL_URL", "http://localhost:8080"), "logrelay base URL")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().Duration("timeout", defaultTimeout, "request timeout")

	rootCmd.AddCommand(
		newSendCommand(),
		newHealthCommand(),
		newBackendsCommand(),
		newStatsCommand(),
	)
	return rootCmd
}

// Execute runs relayctl against os.Args.
func Execute() error {
	return NewRootCommand(os.Stdout).Execute()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func clientFromFlags(cmd *cobra.Command) *Client {
	baseURL, _ := cmd.Flags().GetString("url")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return NewClient(baseURL, timeout)
}

func outputFormat(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("output")
	return format
}
