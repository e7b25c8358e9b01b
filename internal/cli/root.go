// Package cli implements the agencydesk command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/agencydesk/internal/logging"
	"github.com/mesh-intelligence/agencydesk/internal/paths"
	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Version is the release string, set with -ldflags at build time.
var Version = "dev"

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	jsonMode  bool
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags     rootFlags
	configDir string
	v         *viper.Viper
	logger    *zap.Logger
	out       io.Writer
}

// NewRootCmd creates the top-level "agencydesk" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "agencydesk",
		Short: "Browse and edit agency CRM collections",
		Long: `agencydesk lists, filters, sorts, and pages the clients, contacts, projects,
members, and roles of an agency CRM, and runs create, update, and delete
actions against a REST, SQLite, Postgres, or in-memory backend.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory for the sqlite backend (default: platform data dir)")
	root.PersistentFlags().StringVar(&a.flags.backend, "backend", "", "backend: sqlite, rest, postgres, or memory (overrides config)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return userError(err)
	})

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newCollectionsCmd(a),
		newListCmd(a),
		newGetCmd(a),
		newCreateCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newStarCmd(a),
		newStatsCmd(a),
		newFacetsCmd(a),
		newExportCmd(a),
		newServeCmd(a),
		newLoginCmd(a),
	)
	return root
}

// setup resolves directories, loads config.yaml, and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()
	if cmd.Name() == "version" {
		return nil
	}
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	if a.flags.backend != "" {
		v.Set(cfgKeyBackend, a.flags.backend)
	}
	a.configDir = configDir
	a.v = v
	a.logger = logging.New(v.GetString(cfgKeyLogLevel), v.GetString(cfgKeyLogFormat))
	return nil
}

// config returns the validated session config.
func (a *app) config() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	return sessionConfig(a.v, dataDir)
}

func (a *app) component(name string) *zap.SugaredLogger {
	return logging.Component(a.logger, name)
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// cliError marks an error caused by the user's input.
type cliError struct{ err error }

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func userError(err error) error {
	if err == nil {
		return nil
	}
	return &cliError{err: err}
}

// exitCode maps err to exitUserError for bad input, missing records, and
// rejected credentials, and to exitSysError for everything else.
func exitCode(err error) int {
	var ce *cliError
	var ve *types.ValidationError
	var ae *types.AuthError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &ce), errors.As(err, &ve), errors.As(err, &ae),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrCollectionNotFound),
		errors.Is(err, types.ErrUnknownRecord),
		errors.Is(err, types.ErrProtectedRecord),
		errors.Is(err, types.ErrNotToggleable):
		return exitUserError
	default:
		return exitSysError
	}
}
