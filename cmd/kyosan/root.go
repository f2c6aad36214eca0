package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/kyosan/pkg/cli"
	"mercator-hq/kyosan/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "kyosan",
	Short: "Kyosan - law-ordered request screening service",
	Long: `Kyosan screens free-text requests against four ordered laws (Zeroth,
First, Second, Third) and stops at the first one that fails.

Approved requests are passed to a registry of ethical analysis systems
whose annotations are attached to the response, and optionally to an
LLM that writes the reply. Every decision can be recorded to an audit
trail.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a status derived from the
// error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads cfgFile with environment overrides. A missing file
// yields the defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg, nil
}
