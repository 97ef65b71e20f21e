package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brensch/electionjson/internal/config"
	"github.com/brensch/electionjson/internal/orchestrator"
)

var (
	// Populated in PersistentPreRunE
	rootLogger *slog.Logger
	appConfig  config.Config
	logFile    *os.File
)

// rootCmd converts the election tables into the JSON tree.
var rootCmd = &cobra.Command{
	Use:   "electionjson <root_path>",
	Short: "Convert election results tables into a pre-aggregated JSON tree.",
	Long: `electionjson reads the election reference tables and every election's protocol
and vote tables, rolls them up section -> municipality -> region -> total, and
writes compact JSON documents under root_path:

  <root_path>/common/...            reference data
  <root_path>/<election_id>/...     one election per directory
  <root_path>/combined/...          every metric as a series over elections
  <root_path>/custom/...            pre-processed section history

Input location, logging, the DuckDB audit and the Parquet export are configured
through ELECTIONJSON_* environment variables.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		appConfig = cfg

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		rootLogger = logger
		slog.SetDefault(rootLogger)
		rootLogger.Debug("Configuration loaded", slog.Any("config", appConfig))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := getLogger()
		if err := orchestrator.Run(cmd.Context(), appConfig, logger, args[0]); err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logFile == nil {
			return nil
		}
		err := logFile.Close()
		logFile = nil
		return err
	},
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var logWriter io.Writer = os.Stderr
	switch out := strings.ToLower(cfg.LogOutput); out {
	case "", "stderr":
	case "stdout":
		logWriter = os.Stdout
	default:
		f, err := os.OpenFile(cfg.LogOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.LogOutput, err)
		}
		logFile = f
		logWriter = f
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.LogFormat) == "json" {
		return slog.New(slog.NewJSONHandler(logWriter, opts)), nil
	}
	return slog.New(slog.NewTextHandler(logWriter, opts)), nil
}

// Execute runs the root command and exits non-zero on failure. Called by
// main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// execute runs rootCmd and, on failure, logs the error and releases the log
// file, since PersistentPostRunE is skipped when RunE fails.
func execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	if rootLogger != nil {
		rootLogger.Error("Command execution failed", "error", err)
	} else {
		fmt.Fprintf(os.Stderr, "Command execution failed: %v\n", err)
	}
	closeLogFile()
	return err
}

func closeLogFile() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func getLogger() *slog.Logger {
	if rootLogger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return rootLogger
}
