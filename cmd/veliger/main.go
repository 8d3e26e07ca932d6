package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cebimar/veliger/internal/config"
)

var (
	version = "dev"
	cfgFile string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "veliger",
		Short:         "Catalog and write back metadata of biological imagery",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.ReadFile(viper.GetViper(), cfgFile)
		},
	}
	setupFlags(root)
	root.AddCommand(
		newServeCmd(),
		newImportCmd(),
		newEditCmd(),
		newCommitCmd(),
		newStatusCmd(),
		newRefsCmd(),
	)
	return root
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("cache-dir", defaults.GetString("cache.dir"), "Directory holding the snapshot files")
	cmd.PersistentFlags().String("cache-backend", defaults.GetString("cache.backend"), "Snapshot backend (file, mysql)")
	cmd.PersistentFlags().String("database-dsn", defaults.GetString("database.dsn"), "MySQL DSN for the mysql snapshot backend")
	cmd.PersistentFlags().String("charset", defaults.GetString("metadata.charset"), "IPTC text charset (auto, utf-8, latin-1)")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-file", defaults.GetString("log.file"), "Also write logs to this rotated file")

	bindFlag(cmd, "cache.dir", "cache-dir")
	bindFlag(cmd, "cache.backend", "cache-backend")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "metadata.charset", "charset")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.file", "log-file")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}
