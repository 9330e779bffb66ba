// Package root contains the root command for the application
package root

import (
	"context"
	"fmt"

	"softetsolutions/mattax/internal/config"
	"softetsolutions/mattax/internal/container"
	"softetsolutions/mattax/internal/logging"

	"github.com/spf13/cobra"
)

var (
	// Log is the shared logger instance for commands
	Log = logging.GetLogger()

	// AppContainer holds the wired dependencies. Commands read it after the
	// persistent pre-run; tests may set it beforehand.
	AppContainer *container.Container

	// ConfigFile is an explicit configuration file, overriding the search path.
	ConfigFile string

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "mattax",
		Short: "Record, edit and review bookkeeping transactions from the command line.",
		Long: `mattax records money in and money out transactions against the mattax backend.
Categories, subcategories, vendors and accounts are matched by name and created on demand,
and receipts can be scanned to pre-fill a transaction.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if AppContainer != nil {
				Log = AppContainer.Logger()
				return nil
			}
			return initContainer(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if AppContainer == nil {
				return
			}
			if err := AppContainer.Close(); err != nil {
				Log.WithError(err).Warn("Failed to close container")
			}
		},
	}
)

// Init initializes the root command flags
func Init() {
	Cmd.PersistentFlags().StringVar(&ConfigFile, "config", "", "Configuration file (default: search $HOME/.mattax, .mattax and .)")
}

func initContainer(cmd *cobra.Command) error {
	if envFile := config.LoadEnv(); envFile != "" {
		Log.Debug("Loaded environment file", logging.F(logging.FieldFile, envFile))
	}

	cfg, err := config.InitializeConfigFrom(ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	c, err := container.NewContainer(Context(cmd), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	AppContainer = c
	Log = c.Logger()
	if l, ok := Log.(*logging.LogrusAdapter); ok {
		// Command output goes to stdout; keep logs off it.
		l.SetOutput(cmd.ErrOrStderr())
	}
	logging.SetDefault(Log)
	return nil
}

// GetContainer returns the application container or an error when the
// persistent pre-run has not built it.
func GetContainer() (*container.Container, error) {
	if AppContainer == nil {
		return nil, fmt.Errorf("container not initialized")
	}
	return AppContainer, nil
}

// SessionContainer is GetContainer for commands that talk to the backend; it
// also checks that a user session is configured.
func SessionContainer() (*container.Container, error) {
	c, err := GetContainer()
	if err != nil {
		return nil, err
	}
	if err := c.Session().Validate(); err != nil {
		return nil, fmt.Errorf("%w (set MATTAX_USER_ID and MATTAX_TOKEN)", err)
	}
	return c, nil
}

// Context returns the command's context, or a background context.
func Context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
