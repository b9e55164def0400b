package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"twine-codec/api"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Avvia il server API con WebSocket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		port := cfg.Server.Port
		if servePort != 0 {
			port = servePort
		}

		server := api.NewServer(api.ServerConfig{
			Port:          port,
			Compiler:      comp,
			Formats:       registry,
			App:           cfg.App,
			StoryOptions:  cfg.StoryOptions(),
			WatchDebounce: cfg.Watch.Debounce,
			EnableCORS:    cfg.Server.EnableCORS,
			Debug:         cfg.Server.Debug,
			Logger:        logger,
		})
		return server.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "porta del server (default dalla configurazione)")
	rootCmd.AddCommand(serveCmd)
}
