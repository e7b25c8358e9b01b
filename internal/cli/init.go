package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/agencydesk/internal/postgres"
	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and seed sample records",
		Long: `Init creates the configuration directory with a default config.yaml and
prepares the configured backend. The sqlite backend seeds sample records
into collections that have no data file; the postgres backend seeds
collections that hold no rows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			backend, err := a.openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer backend.Close()

			if pg, ok := backend.(*postgres.Backend); ok {
				seeded, err := pg.SeedSamples(cmd.Context())
				if err != nil {
					return err
				}
				if len(seeded) > 0 {
					fmt.Fprintln(a.out, "seeded:", seeded)
				}
			}

			fmt.Fprintln(a.out, "agencydesk initialized successfully")
			fmt.Fprintln(a.out, "  config: ", a.configDir)
			fmt.Fprintln(a.out, "  backend:", cfg.Backend)
			if cfg.Backend == types.BackendSQLite {
				fmt.Fprintln(a.out, "  data:   ", cfg.DataDir)
			}
			return nil
		},
	}
}
