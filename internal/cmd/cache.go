// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dotandev/dlcache/internal/cache"
	"github.com/dotandev/dlcache/internal/config"
)

var (
	cacheForceFlag   bool
	purgeMaxSizeFlag int64
	purgeMaxAgeDays  int
)

// getCacheDir returns the configured or default cache directory.
func getCacheDir() string {
	cfg, err := config.Load()
	if err != nil || cfg.CacheRoot == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "."
		}
		return filepath.Join(homeDir, ".dlcache", "cache")
	}
	return cfg.CacheRoot
}

var cacheCmd = &cobra.Command{
	Use:     "cache",
	GroupID: "management",
	Short:   "Inspect and manage the local artifact cache",
	Long: `Inspect and manage the local content-addressed cache.

Cache location: ~/.dlcache/cache (configurable via DLCACHE_ROOT)

Available subcommands:
  status - view cache size and entry count
  purge  - evict entries past the size or age bound
  clear  - delete all cached data`,
	Example: `  # Check cache status
  dlcache cache status

  # Purge entries older than 7 days
  dlcache cache purge --max-age-days 7

  # Clear all cache
  dlcache cache clear --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics",
	Long:  `Display the current cache size and number of cached entries.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := getCacheDir()

		var total int64
		var count int
		entries, err := os.ReadDir(filepath.Join(root, "cache"))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("list cache entries: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			total += info.Size()
			count++
		}

		fmt.Printf("Cache directory: %s\n", root)
		fmt.Printf("Cache size: %s\n", formatBytes(total))
		fmt.Printf("Entries cached: %d\n", count)

		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Evict entries past the size or age bound",
	Long: `Evict entries from the cache that exceed the configured size bound or
have aged past the configured limit, oldest entries first.`,
	Example: `  # Purge using defaults from config
  dlcache cache purge

  # Purge everything older than 7 days
  dlcache cache purge --max-age-days 7

  # Shrink the cache to 100MB
  dlcache cache purge --max-size-bytes 104857600`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		c, err := cache.New(cfg.CacheRoot, cfg.MaxSizeBytes, cache.WithMaxAge(cfg.MaxAge()))
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer c.Close()

		var maxSizeOverride *int64
		if cmd.Flags().Changed("max-size-bytes") {
			maxSizeOverride = &purgeMaxSizeFlag
		}
		var maxAgeOverride *time.Duration
		if cmd.Flags().Changed("max-age-days") {
			d := time.Duration(purgeMaxAgeDays) * 24 * time.Hour
			maxAgeOverride = &d
		}

		stats, err := c.Purge(context.Background(), maxSizeOverride, maxAgeOverride)
		if err != nil {
			return fmt.Errorf("purge cache: %w", err)
		}

		fmt.Printf("Entries evicted: %d\n", stats.EntriesEvicted)
		fmt.Printf("Bytes freed: %s\n", formatBytes(stats.BytesFreed))
		if stats.EntriesSkipped > 0 {
			color.Yellow("Entries skipped (locked by another process): %d\n", stats.EntriesSkipped)
		}

		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached files",
	Long: `Remove all cached files from the cache directory.

Warning: this action cannot be undone. Use --force to skip confirmation.`,
	Example: `  # Clear cache with confirmation
  dlcache cache clear

  # Force clear without prompt
  dlcache cache clear --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := getCacheDir()

		if _, err := os.Stat(root); os.IsNotExist(err) {
			fmt.Println("Cache directory does not exist")
			return nil
		}

		if !cacheForceFlag {
			color.Yellow("This will delete ALL cached files in %s\n", root)
			fmt.Print("Are you sure? (yes/no): ")
			var response string
			if _, err := fmt.Scanln(&response); err != nil {
				return fmt.Errorf("read confirmation input: %w", err)
			}
			if response != "yes" && response != "y" {
				fmt.Println("Cache clear cancelled")
				return nil
			}
		}

		if err := os.RemoveAll(root); err != nil {
			return fmt.Errorf("clear cache directory: %w", err)
		}

		fmt.Println("Cache cleared successfully")
		return nil
	},
}

// formatBytes converts bytes to human-readable format.
func formatBytes(bytes int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(bytes)
	unitIndex := 0

	for size >= 1024 && unitIndex < len(units)-1 {
		size /= 1024
		unitIndex++
	}

	if unitIndex == 0 {
		return fmt.Sprintf("%.0f %s", size, units[unitIndex])
	}
	return fmt.Sprintf("%.2f %s", size, units[unitIndex])
}

func init() {
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheClearCmd.Flags().BoolVarP(&cacheForceFlag, "force", "f", false, "Skip confirmation prompt")
	cachePurgeCmd.Flags().Int64Var(&purgeMaxSizeFlag, "max-size-bytes", 0, "Override the configured size bound for this run (0 empties the cache; omit the flag to use the config default)")
	cachePurgeCmd.Flags().IntVar(&purgeMaxAgeDays, "max-age-days", 0, "Override the configured age bound for this run, in days (0 evicts everything; omit the flag to use the config default)")

	rootCmd.AddGroup(&cobra.Group{ID: "management", Title: "Management Commands:"})
	rootCmd.AddCommand(cacheCmd)
}
