package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackload/internal/config"
	"github.com/matzehuels/stackload/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands
// registered. Persistent flags are bound to the configuration, so a flag
// overrides STACKLOAD_* variables and the config file.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           config.AppName,
		Short:         "Stackload assembles programs from package descriptors",
		Long:          `Stackload resolves a program descriptor into the set of packages it needs, fetching remote archives into a local cache and following package mappings until every reachable package is known.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}
	root.SetVersionTemplate(buildinfo.Template())

	d := config.Default()
	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default: "+config.Dir()+"/config.{yaml,toml,json})")
	flags.String("cache-dir", d.CacheDir, "directory for downloaded archives and the index")
	flags.Bool("clean", d.Clean, "wipe downloaded archives before the first fetch")
	flags.Int("workers", d.Workers, "concurrent package discoveries")
	flags.String("index", d.Index.Backend, "freshness index backend (file, redis, none)")
	flags.Duration("ttl", d.Index.TTL, "age after which a download is revalidated")

	for key, name := range map[string]string{
		"cache_dir":     "cache-dir",
		"clean":         "clean",
		"workers":       "workers",
		"index.backend": "index",
		"index.ttl":     "ttl",
	} {
		_ = c.viper.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(c.assembleCommand())
	root.AddCommand(c.provisionCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())
	registerCompletions(root)

	return root
}
