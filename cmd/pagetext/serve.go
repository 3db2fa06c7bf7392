package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagetext/pagetext/internal/config"
	"github.com/pagetext/pagetext/internal/home"
	"github.com/pagetext/pagetext/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pagetext server",
	Long: `Start the pagetext HTTP server.

The server provides:
  - /health          - Basic server health check
  - /ready           - Readiness check (includes OCR engine status)
  - /api/extract     - Text extraction from uploaded files
  - /api/languages   - Installed OCR language packs
  - /api/config      - Effective configuration

Configuration is hot-reloaded when the config file changes.

Examples:
  pagetext serve                    # Start on default port 8080
  pagetext serve --port 3000        # Start on custom port
  pagetext serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		// Get home directory
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// Load configuration with hot-reload
		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		mgr.WatchConfig()

		host := serveHost
		port := servePort
		if !cmd.Flags().Changed("host") && mgr.Get().Server.Host != "" {
			host = mgr.Get().Server.Host
		}
		if !cmd.Flags().Changed("port") && mgr.Get().Server.Port != "" {
			port = mgr.Get().Server.Port
		}

		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			ConfigManager: mgr,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
