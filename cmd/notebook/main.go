// Command notebook runs R code against a remote webR worker and prints the
// console output.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/QuesmaOrg/demo-webr-ggplot/config"
	"github.com/QuesmaOrg/demo-webr-ggplot/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *logging.Logger
)

// errRunFailed marks runs whose code raised an error. The output has already
// been printed, so main only sets the exit code.
var errRunFailed = errors.New("evaluation failed")

var rootCmd = &cobra.Command{
	Use:   "notebook",
	Short: "Run R code in a webR worker",
	Long: `notebook evaluates R code in a remote webR session and prints console
output, messages, warnings and errors the way the browser notebook shows them.
Plots can be written to a directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(logging.Config{Level: level, Format: cfg.Logging.Format})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "notebook.yaml", "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd, replCmd, mcpCmd, historyCmd, filesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
