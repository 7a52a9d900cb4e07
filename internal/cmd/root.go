// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dlcache",
	Short: "dlcache - content-addressed local mirror for remote artifacts",
	Long: `dlcache maintains a local, size- and age-bounded mirror of artifacts
fetched from a remote object store, keyed by a fingerprint of their URI, so
that concurrent processes share a single fetch per artifact.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Root command initialization
}
