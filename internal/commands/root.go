// Package commands implements the inkcloud command line.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"inkcloud/internal/app"
	"inkcloud/internal/types"
	"inkcloud/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/dig"
)

// NewRootCmd builds the command tree. build provides a fresh dependency container per command.
// Without a subcommand the server is started.
func NewRootCmd(build func() (*dig.Container, error)) *cobra.Command {
	root := &cobra.Command{
		Use:   "inkcloud",
		Short: "inkCloud settings server",
		Long: `inkCloud keeps the Discord bot dashboard settings in one store and
propagates every change to all connected dashboards and processes.

Available Commands:
  serve         Run the settings HTTP server (default)
  export        Write every setting to a JSON file
  import        Load settings from a JSON or HJSON file
  migrate-settings  Re-encrypt sensitive settings with a new key`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), build)
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the settings HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), build)
		},
	})
	root.AddCommand(newExportCmd(build))
	root.AddCommand(newImportCmd(build))
	root.AddCommand(newMigrateSettingsCmd(build))

	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute(build func() (*dig.Container, error)) {
	if err := NewRootCmd(build).Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(ctx context.Context, build func() (*dig.Container, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cont, err := build()
	if err != nil {
		logrus.Fatalf("Failed to build container: %v", err)
	}

	if err := cont.Invoke(func(configManager types.ConfigManager) {
		utils.SetupLogger(configManager)
	}); err != nil {
		logrus.Fatalf("Failed to setup logger: %v", err)
	}

	return cont.Invoke(func(application *app.App) error {
		if err := application.Start(); err != nil {
			return err
		}

		quit, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		<-quit.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), application.ShutdownTimeout())
		defer cancel()
		application.Stop(shutdownCtx)
		return nil
	})
}
