// Package cmd implements the gpscraper command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"nhs-gp-scraper/config"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var (
	// cfgFile holds the path to an optional configuration file.
	cfgFile string

	v = viper.New()

	rootCmd = &cobra.Command{
		Use:   "gpscraper",
		Short: "Find and rank NHS GP practices near a postcode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}
)

// Execute runs the root command.
func Execute(ctx context.Context) error {
	// Variables from .env never override the real environment.
	_ = godotenv.Load()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml if present)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gpscraper version %s\n", Version)
		},
	})
	rootCmd.AddCommand(crawlCommand())
}

// loadConfig reads the optional config file and returns the validated
// configuration from defaults, file, environment and flags.
func loadConfig() (*config.Config, error) {
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		// The default config file is optional; an explicit one is not.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return config.Load(v)
}

// flagKey maps a flag name to its config key.
func flagKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
