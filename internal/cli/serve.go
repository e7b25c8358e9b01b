package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/agencydesk/internal/logging"
	"github.com/mesh-intelligence/agencydesk/internal/metrics"
	"github.com/mesh-intelligence/agencydesk/internal/server"
	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the development REST backend",
		Long: `Serve exposes the configured local backend over the REST endpoints under
/api, with sign-in at /api/auth/signin and Prometheus metrics at /metrics.
Point another agencydesk at it with backend: rest and api_url.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if cfg.Backend == types.BackendREST {
				return userError(fmt.Errorf("serve needs a local backend, not %q", cfg.Backend))
			}
			backend, err := a.openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer backend.Close()

			if addr == "" {
				addr = a.v.GetString(cfgKeyServerAddr)
			}
			srv := server.New(server.Options{
				Backend:  backend,
				Token:    a.v.GetString(cfgKeyServerToken),
				Email:    a.v.GetString(cfgKeyServerEmail),
				Password: a.v.GetString(cfgKeyServerPassword),
				Logger:   a.component(logging.ComponentServer),
				Metrics:  metrics.Default(),
			})
			if a.v.GetString(cfgKeyServerToken) == "" {
				fmt.Fprintln(a.out, "bearer token:", srv.Token())
			}
			fmt.Fprintf(a.out, "serving %s backend on http://%s/api\n", cfg.Backend, addr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}

