package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/logrelay/internal/config"
	"github.com/telhawk-systems/logrelay/internal/health"
)

func newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show the service's configured backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := clientFromFlags(cmd).Health(cmd.Context())
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), outputFormat(cmd), report)
		},
	}
}

func newBackendsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "Show the backends a config file describes",
		Long:  "Load logrelay configuration locally and print the health snapshot it would serve, without contacting the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			report := health.NewAggregator(cfg.Service.Name, cfg.Service.Environment, cfg.Backends).Report()
			return printReport(cmd.OutOrStdout(), outputFormat(cmd), &report)
		},
	}
	cmd.Flags().String("config", "", "logrelay config file (default: ./config.yaml, /etc/logrelay/config.yaml)")
	return cmd
}

func newStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show delivery counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, _ := cmd.Flags().GetString("service")

			s, err := clientFromFlags(cmd).Stats(cmd.Context(), service)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if s == nil {
				fmt.Fprintln(out, "delivery stats are disabled (service runs without Redis)")
				return nil
			}

			if handled, err := render(out, outputFormat(cmd), s); handled {
				return err
			}

			t := newTable("SERVICE", "PRIMARY", "SECONDARY", "FAILED", "TOTAL", "LAST PATH")
			t.addRow(s.Service,
				strconv.FormatInt(s.Primary, 10),
				strconv.FormatInt(s.Secondary, 10),
				strconv.FormatInt(s.Failed, 10),
				strconv.FormatInt(s.Total, 10),
				s.LastPath,
			)
			t.render(out)
			return nil
		},
	}
	cmd.Flags().String("service", "", "Service to report (default: the relay's own)")
	return cmd
}

func printReport(out io.Writer, format string, report *health.Report) error {
	if handled, err := render(out, format, report); handled {
		return err
	}

	fmt.Fprintf(out, "status: %s  service: %s  environment: %s  at: %s\n\n",
		report.Status, report.Service, report.Environment, report.Timestamp.Format(time.RFC3339))

	t := newTable("BACKEND", "ADDRESS")
	for _, e := range report.Databases {
		t.addRow(e.Name, e.Address)
	}
	t.render(out)
	return nil
}
