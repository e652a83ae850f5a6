package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"AnalystScanner/internal/app"
	"AnalystScanner/internal/config"
	"AnalystScanner/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "analystscanner",
	Short:         "analystscanner collects analyst price target changes from the news feed.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteContext runs the selected subcommand and returns its error.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func newApplication(ctx context.Context) (*app.Application, *slog.Logger, error) {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return application, logger, nil
}
