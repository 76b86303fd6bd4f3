// Package cli implements the faucetd command tree.
package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

var envFile string

var rootCmd = &cobra.Command{
	Use:   "faucetd",
	Short: "Testnet faucet backend",
	Long: `faucetd serves the faucet claim API used by the chat front end.

A claim is checked against the requester's cooldown, forwarded to the
partner distribution service and briefly polled for an on-chain hash.
Only confirmed transfers start a new cooldown.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(envFile)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "faucetd %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading configuration")
	rootCmd.AddCommand(versionCmd, serveCmd, statusCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
