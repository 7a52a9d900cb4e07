// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dotandev/dlcache/internal/config"
	"github.com/dotandev/dlcache/internal/daemon"
	"github.com/dotandev/dlcache/internal/logger"
)

var (
	servePortFlag      string
	serveAuthTokenFlag string
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "management",
	Short:   "Run a long-lived cache daemon over JSON-RPC",
	Long: `Run the cache as a long-lived HTTP daemon, exposing Ensure, Purge, and
Status over JSON-RPC at /rpc and Prometheus metrics at /metrics.`,
	Example: `  dlcache serve --port 8080
  dlcache serve --port 8080 --auth-token secret123`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		authToken := serveAuthTokenFlag
		if authToken == "" {
			authToken = cfg.FetcherAuthToken
		}

		server, err := daemon.NewServer(daemon.Config{
			CacheRoot:    cfg.CacheRoot,
			MaxSizeBytes: cfg.MaxSizeBytes,
			MaxAge:       cfg.MaxAge(),
			AuthToken:    authToken,
		})
		if err != nil {
			return fmt.Errorf("construct daemon: %w", err)
		}
		defer server.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		logger.Logger.Info("starting cache daemon", "port", servePortFlag, "root", cfg.CacheRoot)
		if err := server.Start(ctx, servePortFlag); err != nil {
			return fmt.Errorf("start daemon: %w", err)
		}

		<-ctx.Done()
		logger.Logger.Info("cache daemon shutting down")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePortFlag, "port", "8080", "Port to listen on")
	serveCmd.Flags().StringVar(&serveAuthTokenFlag, "auth-token", "", "Require this bearer token on RPC calls")
	rootCmd.AddCommand(serveCmd)
}
