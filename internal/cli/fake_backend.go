package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/xela07ax/threatwatch-dashboard/internal/backend"
)

// newFakeBackendCmd поднимает FakeService, чтобы дашборд можно было запустить без сервиса детекции.
func newFakeBackendCmd() *cobra.Command {
	var (
		addr    string
		trained bool
		fail    bool
	)
	cmd := &cobra.Command{
		Use:   "fake-backend",
		Short: "Serve an in-memory detection service for local runs",
		Long: `Starts an HTTP server that answers the detection service endpoints
(/real-time-chart-data, /, /status, /train, /test, /generate-data ...) with canned data.
Point the dashboard at it with BACKEND_BASE_URL. --fail makes every endpoint answer 500,
which exercises the fallback charts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fake := backend.NewFakeService()
			fake.Trained.Store(trained)
			fake.Fail.Store(fail)

			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			return serveFake(cmd.Context(), cmd, lis, fake)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "Listen address")
	cmd.Flags().BoolVar(&trained, "trained", false, "Start with the model already trained")
	cmd.Flags().BoolVar(&fail, "fail", false, "Answer every request with 500")
	return cmd
}

func serveFake(ctx context.Context, cmd *cobra.Command, lis net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(lis) }()
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✅ Fake detection service on http://"+lis.Addr().String()))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
