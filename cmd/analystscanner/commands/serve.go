package commands

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the price target table and refreshes stored announcements on a schedule.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, logger, err := newApplication(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		if err := application.Serve(cmd.Context()); err != nil {
			logger.Error("application stopped", "error", err)
			return err
		}
		return nil
	},
}
