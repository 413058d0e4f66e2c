package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Output    string
}

func DefaultConfig() *Config {
	server := os.Getenv("RPSCTL_SERVER")
	if server == "" {
		server = "http://localhost:8080"
	}
	return &Config{ServerURL: server, Output: "text"}
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg := DefaultConfig()
	var client *Client

	rootCmd := &cobra.Command{
		Use:   "rpsctl",
		Short: "Debug client for the rock-paper-scissors party server",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			client = NewClient(cfg.ServerURL)
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: RPSCTL_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")

	get := func() *Client { return client }
	rootCmd.AddCommand(newHealthCmd(get))
	rootCmd.AddCommand(newRoomsCmd(get, cfg))
	rootCmd.AddCommand(newMatchesCmd(get, cfg))
	rootCmd.AddCommand(newLeaderboardCmd(get, cfg))
	rootCmd.AddCommand(newConnectCmd(cfg))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
