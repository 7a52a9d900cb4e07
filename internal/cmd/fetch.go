// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dotandev/dlcache/internal/cache"
	"github.com/dotandev/dlcache/internal/config"
)

var fetchMaxSizeFlag int64

var fetchCmd = &cobra.Command{
	Use:     "fetch <uri>",
	GroupID: "management",
	Short:   "Ensure an artifact is present in the local cache",
	Long: `Ensure the artifact named by uri is present in the local cache, fetching
it from the remote object store on a cache miss, and print its local path.`,
	Example: `  dlcache fetch gs://bucket/of/awesome`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uri := args[0]

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		maxSize := fetchMaxSizeFlag
		if maxSize == 0 {
			maxSize = cfg.MaxSizeBytes
		}

		c, err := cache.New(cfg.CacheRoot, maxSize, cache.WithMaxAge(cfg.MaxAge()))
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer c.Close()

		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("fetching "+uri),
			progressbar.OptionSpinnerType(14),
		)
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					bar.Add(1)
				}
			}
		}()

		path, err := c.Ensure(context.Background(), uri)
		close(done)
		bar.Finish()
		fmt.Println()
		if err != nil {
			return fmt.Errorf("ensure %s: %w", uri, err)
		}

		fmt.Println(path)
		return nil
	},
}

func init() {
	fetchCmd.Flags().Int64Var(&fetchMaxSizeFlag, "max-size-bytes", 0, "Override the cache's size bound for this call")
	rootCmd.AddCommand(fetchCmd)
}
