// Package cli implements the webgrade command-line interface: the API
// server, one-shot and batch audits, and history inspection.
package cli

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webgrade/webgrade/internal/config"
	"github.com/webgrade/webgrade/internal/logging"
	"github.com/webgrade/webgrade/internal/server"
)

var rootCmd = &cobra.Command{
	Use:     "webgrade",
	Short:   "Audit web pages for performance, security, SEO, accessibility and best practices",
	Version: server.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Bare invocation drops into the interactive prompt.
		return runInteractive(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// Execute runs the CLI. A .env file, when present, is loaded before any
// configuration is read.
func Execute() error {
	_ = godotenv.Load()
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(historyCmd())
}

// envLogger builds the zap logger at the level the environment asks for.
func envLogger(env *config.Env) (*zap.Logger, error) {
	logger, err := logging.New(env.LogLevel())
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
