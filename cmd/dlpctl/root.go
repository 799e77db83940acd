package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"dlpctl/pkg/api"
	"dlpctl/pkg/auth"
	"dlpctl/pkg/config"
	"dlpctl/pkg/logger"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	profileName string
	gatewayURL  string
	pageSize    int
	logLevel    string
	logFile     string

	// Effective configuration, loaded before any command runs
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dlpctl",
	Short: "Search and manage security alerts and file events",
	Long: `dlpctl is a command-line client for the data-loss-prevention gateway.

Features:
  - Checkpointed searches that only return new results on each run
  - Alert state management, single or in bulk from CSV/JSON input
  - Table, CSV, and JSON output, or forwarding to a remote collector
  - Secure credential storage using the system keychain`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		flags := map[string]interface{}{
			"url":       gatewayURL,
			"page-size": pageSize,
			"log-level": logLevel,
			"log-file":  logFile,
		}

		var err error
		cfg, err = config.Load(configFile, flags)
		if err != nil {
			return err
		}

		if err := logger.Initialize(&cfg.Logging); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .dlpctl.yaml or ~/.config/dlpctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "stored credential profile to use")
	rootCmd.PersistentFlags().StringVar(&gatewayURL, "url", "", "gateway API URL")
	rootCmd.PersistentFlags().IntVar(&pageSize, "page-size", 0, "search page size")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a file instead of stderr")

	rootCmd.SetVersionTemplate(`dlpctl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// resolveCredentials fills in client credentials from the stored
// profile when the config does not carry them.
func resolveCredentials() error {
	if profileName == "" && cfg.API.ClientID != "" && cfg.API.ClientSecret != "" {
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	var profile *auth.Profile
	if profileName != "" {
		profile, err = manager.Retrieve(profileName)
	} else {
		profile, err = manager.RetrieveDefault()
	}
	if err != nil {
		return fmt.Errorf("no credentials available, run `dlpctl auth login` first: %w", err)
	}

	cfg.API.ClientID = profile.ClientID
	cfg.API.ClientSecret = profile.ClientSecret
	if cfg.API.URL == "" {
		cfg.API.URL = profile.URL
	}
	return nil
}

// newAPIClient resolves credentials and builds the gateway client.
func newAPIClient() (*api.Client, error) {
	if err := resolveCredentials(); err != nil {
		return nil, err
	}
	return api.NewClient(cfg)
}
