package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackload/internal/config"
	"github.com/matzehuels/stackload/pkg/download"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage downloaded archives",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheInfoCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all downloaded archives and their index",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			dir := c.cfg.DownloadDir()
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo(out, "Cache is empty")
				return nil
			}

			d, err := download.New(dir, download.Options{Logger: c.Logger})
			if err != nil {
				return err
			}
			if _, err := d.Clean(cmd.Context()); err != nil {
				return fmt.Errorf("clear downloads: %w", err)
			}
			if c.cfg.Index.Backend == config.BackendFile {
				if err := os.RemoveAll(c.cfg.IndexDir()); err != nil {
					return fmt.Errorf("clear index: %w", err)
				}
			}

			printSuccess(out, "Cleared downloaded archives")
			printDetail(out, "Directory: %s", dir)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), c.cfg.CacheDir)
			return nil
		},
	}
}

// cacheInfoCommand creates the "cache info" subcommand.
func (c *CLI) cacheInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the effective cache configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			printKeyValue(out, "downloads", c.cfg.DownloadDir())
			printKeyValue(out, "index", c.cfg.Index.Backend)
			switch c.cfg.Index.Backend {
			case config.BackendFile:
				printKeyValue(out, "index dir", c.cfg.IndexDir())
			case config.BackendRedis:
				printKeyValue(out, "redis", c.cfg.Index.RedisAddr+"/"+strconv.Itoa(c.cfg.Index.RedisDB))
			}
			printKeyValue(out, "ttl", c.cfg.Index.TTL.String())
			printKeyValue(out, "workers", strconv.Itoa(c.cfg.Workers))
			return nil
		},
	}
}
