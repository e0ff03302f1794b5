package main

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "agent",
		Short: "Host LLM agents over the A2A protocol",
		Long: `agent hosts LLM-backed agents and exposes them through the
Agent-to-Agent (A2A) JSON-RPC protocol. The client subcommands talk
to any A2A agent.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env is optional; provider API keys usually come from it in development.
			_ = godotenv.Load()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/agent.yaml", "path to agent configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd, sendCmd, getCmd, cancelCmd, cardCmd)
}

func newLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	if logLevel != "" {
		level = logLevel
	}
	if lvl, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.Warn("unknown log level, using info", "level", level)
	}
	return logger
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
