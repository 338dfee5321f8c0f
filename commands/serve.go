package commands

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"busroute-scraper/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the bus route search UI on HTTP_ADDR.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		if cfg.LogLevel != "debug" && logLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		store, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		router, err := ui.NewRouter(ui.NewHandler(store, logger), logger)
		if err != nil {
			return err
		}
		return ui.Serve(cmd.Context(), cfg.HTTPAddr, router, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
