package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"accentabx/internal/batch"
	"accentabx/internal/config"
	"accentabx/internal/history"
	"accentabx/internal/layout"
	"accentabx/internal/logging"
	"accentabx/internal/preflight"
	"accentabx/internal/services/converter"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var overrides pathOverrides
	var allowPartial bool
	var jsonOutput bool
	var runPreflight bool

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Run the converter once per configured accent",
		Long: `Run the converter once per configured accent, in order.

Each accent's features and times directories are created before the
converter runs. A failing accent is reported and the batch moves on.
The command exits non-zero when any accent failed unless --allow-partial
is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.resolvedConfig(overrides)
			if err != nil {
				return err
			}

			if runPreflight {
				if failed := preflight.Failed(preflight.RunRequired(cfg)); len(failed) > 0 {
					return preflightError(failed)
				}
			}

			if err := cfg.EnsureStateDir(); err != nil {
				return err
			}
			runID := uuid.NewString()
			runLogPath := runLogFile(cfg, runID, time.Now())
			logger, closeLog, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr(), runLogPath)
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			defer func() { _ = closeLog() }()
			logging.PruneRunLogs(logger, cfg.RunLogDir(), cfg.Logging.RetentionDays, runLogPath)

			client, err := converter.New(cfg.Converter.Binary, cfg.Converter.ModeToken, cfg.Converter.TimeoutSeconds,
				converter.WithLogger(logger))
			if err != nil {
				return err
			}

			opts := []batch.Option{
				batch.WithLogger(logger),
				batch.WithLockPath(cfg.LockPath()),
				batch.WithRunID(runID),
			}
			if store := openHistory(cfg, logger); store != nil {
				defer store.Close()
				opts = append(opts, batch.WithRecorder(store))
			}

			driver, err := batch.NewDriver(
				layout.New(cfg.Paths.BaseDir, cfg.Paths.FeaturesRoot, cfg.Paths.TimesRoot),
				cfg.Categories.Accents,
				client,
				opts...,
			)
			if err != nil {
				return err
			}

			result, runErr := driver.Run(cmd.Context())
			if errors.Is(runErr, batch.ErrLocked) {
				return runErr
			}

			if jsonOutput {
				if err := writeJSON(cmd, newRunView(result, runLogPath)); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), renderRunSummary(result, runLogPath, runErr != nil, shouldColorize(cmd.OutOrStdout())))
			}

			if runErr != nil {
				return runErr
			}
			if !result.OK() && !allowPartial {
				return fmt.Errorf("%w: %s", batch.ErrPartialFailure, strings.Join(result.FailedCategories(), ", "))
			}
			return nil
		},
	}

	overrides.bind(cmd)
	cmd.Flags().BoolVar(&allowPartial, "allow-partial", false, "Exit zero even when some accents failed")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run result as JSON")
	cmd.Flags().BoolVar(&runPreflight, "preflight", false, "Run readiness checks before converting")
	return cmd
}

func runLogFile(cfg *config.Config, runID string, now time.Time) string {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	name := fmt.Sprintf("accentabx-%s-%s.log", now.Format("20060102T150405"), short)
	return filepath.Join(cfg.RunLogDir(), name)
}

func openHistory(cfg *config.Config, logger *slog.Logger) *history.Store {
	if !cfg.History.Enabled {
		return nil
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
			logging.String("path", cfg.HistoryPath()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix or remove the history database"),
			logging.String(logging.FieldImpact, "this run will not be recorded"),
		)
		return nil
	}
	return store
}

func preflightError(failed []preflight.Result) error {
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(parts, "; "))
}
