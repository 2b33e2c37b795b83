package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voice-emotion-go/internal/config"
	"voice-emotion-go/internal/logger"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "analyze",
		Short:        "Run the voice pipeline stages from the command line",
		Long:         "Each stage of the upload pipeline (normalize, transcribe, sentiment, notify) can be run on a local file. Configuration is read from the environment and .env like the server.",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// commands that need a valid config report load errors themselves
			if cfg, err := config.Load(); err == nil {
				logger.Configure(cfg.Environment, cfg.LogLevel, cfg.LogFile)
			}
		},
	}
	rootCmd.PersistentFlags().Bool("json", false, "print results as JSON")

	rootCmd.AddCommand(newNormalizeCmd())
	rootCmd.AddCommand(newTranscribeCmd())
	rootCmd.AddCommand(newSentimentCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newTrainCmd())
	rootCmd.AddCommand(newFeaturesCmd())
	rootCmd.AddCommand(newSummarizeCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
