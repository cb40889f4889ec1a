package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"accentabx/internal/layout"
	"accentabx/internal/logging"
	"accentabx/internal/services"
	"accentabx/internal/services/converter"
)

const (
	stageSetup   = "setup"
	stageConvert = "convert"
)

// Recorder receives finished runs. Recording failures never change outcomes.
type Recorder interface {
	Record(ctx context.Context, result Result) error
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the driver logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logging.NewComponentLogger(logger, "batch")
		}
	}
}

// WithRecorder attaches a run recorder.
func WithRecorder(recorder Recorder) Option {
	return func(d *Driver) {
		d.recorder = recorder
	}
}

// WithLockPath enables the run lock at path.
func WithLockPath(path string) Option {
	return func(d *Driver) {
		d.lockPath = path
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(d *Driver) {
		if id != "" {
			d.newRunID = func() string { return id }
		}
	}
}

// WithMkdirAll replaces directory creation (primarily for tests).
func WithMkdirAll(fn func(string, fs.FileMode) error) Option {
	return func(d *Driver) {
		if fn != nil {
			d.mkdirAll = fn
		}
	}
}

// Driver runs the converter over an ordered list of categories.
type Driver struct {
	layout     layout.Layout
	categories []string
	converter  converter.Converter
	logger     *slog.Logger
	recorder   Recorder
	lockPath   string
	mkdirAll   func(string, fs.FileMode) error
	newRunID   func() string
	now        func() time.Time
}

// NewDriver constructs a driver for categories resolved through paths.
func NewDriver(paths layout.Layout, categories []string, conv converter.Converter, opts ...Option) (*Driver, error) {
	if conv == nil {
		return nil, errors.New("converter required")
	}
	for _, category := range categories {
		if err := layout.ValidateCategory(category); err != nil {
			return nil, err
		}
	}
	d := &Driver{
		layout:     paths,
		categories: append([]string(nil), categories...),
		converter:  conv,
		logger:     logging.NewComponentLogger(nil, "batch"),
		mkdirAll:   os.MkdirAll,
		newRunID:   uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Categories returns the processing order.
func (d *Driver) Categories() []string {
	return append([]string(nil), d.categories...)
}

// Plan resolves every category without touching the filesystem.
func (d *Driver) Plan() []layout.Paths {
	plan := make([]layout.Paths, 0, len(d.categories))
	for _, category := range d.categories {
		plan = append(plan, d.layout.Resolve(category))
	}
	return plan
}

// Run processes every category in order. Per-category failures are recorded
// in the Result and do not stop the run; the returned error is non-nil only
// when the lock is held or ctx is cancelled, in which case the Result holds
// the categories attempted so far.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	if d.lockPath != "" {
		lock, err := AcquireLock(d.lockPath)
		if err != nil {
			return Result{}, err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				d.logger.Warn("failed to release run lock", logging.String("lock", lock.Path()), logging.Error(err))
			}
		}()
	}

	result := Result{
		RunID:    d.newRunID(),
		Started:  d.now(),
		Outcomes: make([]Outcome, 0, len(d.categories)),
	}
	ctx = services.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, d.logger)
	logger.Info("batch conversion started",
		logging.Int("categories", len(d.categories)),
		logging.String("base_dir", d.layout.Base()),
	)

	var runErr error
	for _, category := range d.categories {
		if err := ctx.Err(); err != nil {
			runErr = err
			logging.WarnWithContext(logger, "batch interrupted", "batch_interrupted",
				logging.String("next_category", category),
				logging.Int("remaining", len(d.categories)-len(result.Outcomes)),
				logging.String(logging.FieldErrorHint, "rerun convert; completed categories are safe to repeat"),
				logging.String(logging.FieldImpact, "remaining categories were not converted"),
			)
			break
		}
		result.Outcomes = append(result.Outcomes, d.processCategory(ctx, category))
	}
	result.Finished = d.now()

	d.logSummary(logger, result, runErr)
	d.record(ctx, logger, result)
	return result, runErr
}

func (d *Driver) processCategory(ctx context.Context, category string) Outcome {
	ctx = services.WithCategory(ctx, category)
	paths := d.layout.Resolve(category)
	outcome := Outcome{
		Category: category,
		Paths:    paths,
		ExitCode: -1,
		Started:  d.now(),
	}

	setupLogger := logging.WithContext(services.WithStage(ctx, stageSetup), d.logger)
	setupLogger.Info(fmt.Sprintf("Processing accent: %s", category))

	if err := d.prepareOutputs(paths); err != nil {
		outcome.Status = StatusSetupFailed
		outcome.Error = err.Error()
		outcome.Duration = d.now().Sub(outcome.Started)
		logging.ErrorWithContext(setupLogger, "Error: Setup failed", "setup_failed",
			logging.String("features_dir", paths.Features),
			logging.String("times_dir", paths.Times),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the features and times roots"),
		)
		return outcome
	}

	convertCtx := services.WithStage(ctx, stageConvert)
	convertLogger := logging.WithContext(convertCtx, d.logger)
	convertLogger.Debug("invoking converter",
		logging.String("input", paths.Input),
		logging.String("features_dir", paths.Features),
		logging.String("times_dir", paths.Times),
	)
	res, err := d.converter.Convert(convertCtx, converter.Job{
		Category:    category,
		Input:       paths.Input,
		FeaturesDir: paths.Features,
		TimesDir:    paths.Times,
	})
	outcome.ExitCode = res.ExitCode
	outcome.Duration = d.now().Sub(outcome.Started)
	if err != nil {
		outcome.Status = StatusConversionFailed
		if services.IsConfiguration(err) {
			outcome.Status = StatusSetupFailed
		}
		outcome.Error = err.Error()
		attrs := []logging.Attr{
			logging.Int("exit_code", res.ExitCode),
			logging.String("input", paths.Input),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, errorHint(err)),
		}
		if len(res.OutputTail) > 0 {
			attrs = append(attrs, logging.Strings("output_tail", res.OutputTail))
		}
		logging.ErrorWithContext(convertLogger, "Error: Conversion failed", "conversion_failed", attrs...)
		return outcome
	}

	outcome.Status = StatusSucceeded
	convertLogger.Info("Conversion completed successfully",
		logging.Int("exit_code", res.ExitCode),
		logging.Duration("duration", outcome.Duration),
	)
	return outcome
}

func (d *Driver) prepareOutputs(paths layout.Paths) error {
	for _, dir := range []string{paths.Features, paths.Times} {
		if err := d.mkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrConfiguration, stageSetup, paths.Category,
				fmt.Sprintf("create %s", dir), err)
		}
	}
	return nil
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, services.ErrTimeout):
		return "raise converter.timeout_seconds or inspect the input archive"
	case services.IsConfiguration(err):
		return "check paths and converter settings"
	default:
		return "check that the input archive exists and the converter runs by hand"
	}
}

func (d *Driver) logSummary(logger *slog.Logger, result Result, runErr error) {
	msg := "Batch conversion completed"
	if runErr != nil {
		msg = "Batch conversion stopped early"
	}
	attrs := []logging.Attr{
		logging.Int("total", len(result.Outcomes)),
		logging.Int("succeeded", result.Succeeded()),
		logging.Int("failed", result.Failed()),
		logging.Duration("duration", result.Duration()),
	}
	if failed := result.FailedCategories(); len(failed) > 0 {
		attrs = append(attrs, logging.Strings("failed_categories", failed))
		logging.WarnWithContext(logger, msg, "batch_partial_failure",
			append(attrs,
				logging.String(logging.FieldErrorHint, "see per-category errors above"),
				logging.String(logging.FieldImpact, "failed categories have no fresh features"),
			)...,
		)
		return
	}
	logger.Info(msg, logging.Args(attrs...)...)
}

func (d *Driver) record(ctx context.Context, logger *slog.Logger, result Result) {
	if d.recorder == nil {
		return
	}
	// Partial runs are recorded too.
	if err := d.recorder.Record(context.WithoutCancel(ctx), result); err != nil {
		logging.WarnWithContext(logger, "failed to record run history", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check history.path permissions"),
			logging.String(logging.FieldImpact, "this run will not appear in accentabx history"),
		)
	}
}
