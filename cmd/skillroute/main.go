package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillroute/pkg/config"
	"github.com/jingkaihe/skillroute/pkg/logger"
	"github.com/jingkaihe/skillroute/pkg/presenter"
)

func init() {
	if err := config.Setup(viper.GetViper()); err != nil {
		presenter.Error(err, "failed to load configuration")
	}
}

var rootCmd = &cobra.Command{
	Use:   "skillroute",
	Short: "Route a request to the personas and skills that should handle it",
	Long: `skillroute loads a directory of persona and skill Markdown documents, ranks them
against a request using the trigger phrases in their descriptions, and assembles the
best matches into a context payload that fits a character budget.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
			return err
		}
		logger.SetLogFormat(viper.GetString("log_format"))
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("corpus", "C", ".", "Directory holding the persona and skill documents")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (fmt, json)")
	rootCmd.PersistentFlags().String("memory", "none", "Memory backend (none, memory, sqlite, files)")
	rootCmd.PersistentFlags().String("memory-path", "", "Database file or directory for the memory backend")

	viper.BindPFlag("corpus.root", rootCmd.PersistentFlags().Lookup("corpus"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("memory.backend", rootCmd.PersistentFlags().Lookup("memory"))
	viper.BindPFlag("memory.path", rootCmd.PersistentFlags().Lookup("memory-path"))
}

func main() {
	ctx := context.Background()

	shutdown, err := initTracing(ctx)
	if err != nil {
		presenter.Error(err, "failed to initialize tracing")
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.G(ctx).WithError(err).Warn("failed to flush traces")
			}
		}()
	}

	rootCmd.AddCommand(withTracing(selectCmd))
	rootCmd.AddCommand(withTracing(routeCmd))
	rootCmd.AddCommand(withTracing(assembleCmd))
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
