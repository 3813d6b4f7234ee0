package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/javorganize/internal/config"
	"github.com/Nomadcxx/javorganize/internal/database"
	"github.com/Nomadcxx/javorganize/internal/logging"
)

var (
	version = "dev" // Set by build flags: -ldflags="-X main.version=1.0.0"
	cfgFile string
	verbose bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "javorganize",
		Short: "Organize scraped JAV releases into a template-named library",
		Long: `javorganize moves scraped releases out of download folders into a library
laid out by naming templates, bringing subtitles, artwork and .nfo files along,
then deletes leftovers and empty folders.

Metadata comes from the local catalog; populate it with 'javorganize catalog'.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/javorganize/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newOrganizeCmd())
	rootCmd.AddCommand(newCatalogCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "javorganize %s\n", version)
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := cfg.Logging
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return logger, nil
}

func openCatalog(cfg *config.Config) (*database.MediaDB, error) {
	path, err := cfg.DatabasePath()
	if err != nil {
		return nil, fmt.Errorf("cannot resolve catalog path: %w", err)
	}
	db, err := database.OpenPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return db, nil
}
