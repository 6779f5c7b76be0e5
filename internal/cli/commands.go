package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/threatwatch-dashboard/internal/backend"
	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
	"github.com/xela07ax/threatwatch-dashboard/internal/synth"
)

func newViewCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the current dashboard view",
		RunE: func(cmd *cobra.Command, args []string) error {
			var v domain.View
			c := newConsoleClient(opts.consoleURL, opts.timeout)
			if err := c.do(cmd.Context(), http.MethodGet, "/api/v1/dashboard", &v); err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), v)
			}
			renderView(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newRefreshCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Ask the coordinator to pull session data now",
		Long: `Triggers a manual pull. If a pull is already in flight the request is dropped,
not queued; the command reports that instead of failing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Accepted bool `json:"accepted"`
			}
			c := newConsoleClient(opts.consoleURL, opts.timeout)
			if err := c.do(cmd.Context(), http.MethodPost, "/api/v1/refresh", &res); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Accepted {
				fmt.Fprintln(out, successStyle.Render("✅ Refresh started"))
			} else {
				fmt.Fprintln(out, warningStyle.Render("⚠️  A pull is already in progress, request dropped"))
			}
			return nil
		},
	}
}

func newAlertsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "List recent alerts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var list []domain.Alert
			c := newConsoleClient(opts.consoleURL, opts.timeout)
			if err := c.do(cmd.Context(), http.MethodGet, "/api/v1/alerts", &list); err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}
			renderAlerts(cmd.OutOrStdout(), list)
			return nil
		},
	}
}

func newSynthCmd(opts *options) *cobra.Command {
	var (
		local domain.LocalStats
		at    string
	)
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Print the fallback chart dataset for the given local stats (offline)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !local.Consistent() {
				return fmt.Errorf("--normal + --suspicious exceeds --total")
			}
			now := time.Now()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be RFC3339: %w", err)
				}
				now = t
			}

			ds := synth.Synthesize(local, now)
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), ds)
			}
			renderCharts(cmd.OutOrStdout(), ds)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&local.TotalLogs, "total", 0, "Total logs of the last detection test")
	cmd.Flags().Uint64Var(&local.NormalCount, "normal", 0, "Normal count")
	cmd.Flags().Uint64Var(&local.SuspiciousCount, "suspicious", 0, "Suspicious count")
	cmd.Flags().StringVar(&at, "at", "", "Reference time (RFC3339), defaults to now")
	return cmd
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the detection service status variant",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := backend.NewClient(opts.backendURL, opts.timeout, zap.NewNop())
			if err != nil {
				return err
			}
			st, err := client.FetchStatus(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.asJSON {
				return printJSON(out, map[string]any{"variant": st.Variant(), "status": st})
			}

			fmt.Fprintln(out, sectionStyle.Render("Detection service"))
			fmt.Fprintf(out, "Variant: %s\n", infoStyle.Render(st.Variant()))
			if st.Trained() {
				fmt.Fprintln(out, successStyle.Render("✅ Model trained"))
			} else {
				fmt.Fprintln(out, warningStyle.Render("⚠️  Model not trained"))
			}
			switch s := st.(type) {
			case domain.AdvancedStatus:
				fmt.Fprintf(out, "Version: %s  real data: %t  session based: %t\n", s.Version, s.RealDataEnabled, s.SessionBased)
			case domain.BasicStatus:
				fmt.Fprintf(out, "API: %s  status: %s  endpoints: %d\n", s.APIVersion, s.SystemStatus, len(s.AvailableEndpoints))
			}
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
