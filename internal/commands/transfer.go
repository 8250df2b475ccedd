package commands

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"inkcloud/internal/services"
	"inkcloud/internal/types"
	"inkcloud/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/dig"
)

// withSettings runs fn against a started settings service and stops it afterwards.
func withSettings(ctx context.Context, build func() (*dig.Container, error), fn func(*services.SettingsService) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cont, err := build()
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}

	return cont.Invoke(func(configManager types.ConfigManager, svc *services.SettingsService) error {
		utils.SetupLogger(configManager)
		defer svc.Backend().Close()

		if err := svc.Start(ctx); err != nil {
			return err
		}
		defer svc.Stop()
		return fn(svc)
	})
}

func newExportCmd(build func() (*dig.Container, error)) *cobra.Command {
	var (
		out      string
		compress bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every setting to a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSettings(cmd.Context(), build, func(svc *services.SettingsService) error {
				data, err := encodeArchive(svc.Export(), compress)
				if err != nil {
					return err
				}

				if out == "" || out == "-" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(out, data, 0o600); err != nil {
					return err
				}
				logrus.WithField("file", out).Info("Settings exported")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", defaultExportName(), "Output file, - for stdout")
	cmd.Flags().BoolVar(&compress, "zstd", false, "Compress the export with zstd")
	return cmd
}

func defaultExportName() string {
	return fmt.Sprintf("inkcloud-settings-%s.json", time.Now().Format("20060102-150405"))
}

func newImportCmd(build func() (*dig.Container, error)) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load settings from a JSON or HJSON file",
		Long: `Load settings from a file written by export, or a hand-written JSON or HJSON
document keyed by domain name, storage key or legacy key. Every entry is validated
before anything is stored.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			values, err := decodeArchive(data)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}

			return withSettings(cmd.Context(), build, func(svc *services.SettingsService) error {
				result, err := svc.Import(cmd.Context(), values)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Applied: %s\n", strings.Join(result.Applied, ", "))
				skipped := make([]string, 0, len(result.Skipped))
				for k, reason := range result.Skipped {
					skipped = append(skipped, fmt.Sprintf("%s (%s)", k, reason))
				}
				sort.Strings(skipped)
				if len(skipped) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Skipped: %s\n", strings.Join(skipped, ", "))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "File to import")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
