package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"accentabx/internal/logging"
	"accentabx/internal/services"
)

// outputTailLines bounds how many trailing tool lines are kept for diagnostics.
const outputTailLines = 5

// Job describes one conversion: a single category's archive and its two
// output directories.
type Job struct {
	Category    string
	Input       string
	FeaturesDir string
	TimesDir    string
}

// Outcome captures the termination of one converter invocation.
type Outcome struct {
	// ExitCode is the child exit status, or -1 when the tool never started or
	// was terminated by a signal.
	ExitCode   int
	Duration   time.Duration
	OutputTail []string
}

// Converter defines the behaviour required by the batch driver.
type Converter interface {
	Convert(ctx context.Context, job Job) (Outcome, error)
}

// Executor abstracts command execution for testability. It returns the exit
// code of the child process alongside any error.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) (int, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger routes tool output to the provided logger at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "converter")
		}
	}
}

// Client wraps the conversion CLI.
type Client struct {
	binary  string
	mode    string
	timeout time.Duration
	exec    Executor
	logger  *slog.Logger
}

// New constructs a converter client. timeoutSeconds <= 0 disables the
// per-invocation timeout.
func New(binary, mode string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("converter binary required")
	}
	mode = strings.TrimSpace(mode)
	if mode == "" {
		return nil, errors.New("converter mode token required")
	}
	var timeout time.Duration
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	client := &Client{
		binary:  binary,
		mode:    mode,
		timeout: timeout,
		exec:    commandExecutor{},
		logger:  logging.NewComponentLogger(nil, "converter"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured converter executable.
func (c *Client) Binary() string {
	return c.binary
}

// ModeToken returns the backend token passed as the first argument.
func (c *Client) ModeToken() string {
	return c.mode
}

// Args returns the argument vector for job, excluding the binary.
func (c *Client) Args(job Job) []string {
	return []string{c.mode, job.Input, job.FeaturesDir, job.TimesDir}
}

// Convert runs the converter for one job. A nil error means the tool exited
// with status zero.
func (c *Client) Convert(ctx context.Context, job Job) (Outcome, error) {
	if err := job.validate(); err != nil {
		return Outcome{ExitCode: -1}, services.Wrap(services.ErrConfiguration, "convert", job.Category, "invalid job", err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, c.logger)
	args := c.Args(job)
	logger.Debug("converter invocation",
		logging.String("command", c.binary+" "+strings.Join(args, " ")),
	)

	tail := newLineTail(outputTailLines)
	start := time.Now()
	code, err := c.exec.Run(runCtx, c.binary, args, func(line string) {
		tail.add(line)
		logger.Debug("converter output", logging.String("line", line))
	})
	outcome := Outcome{
		ExitCode:   code,
		Duration:   time.Since(start),
		OutputTail: tail.lines(),
	}
	if err == nil && code == 0 {
		return outcome, nil
	}

	if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return outcome, services.Wrap(services.ErrTimeout, "convert", job.Category,
			fmt.Sprintf("converter exceeded %s", c.timeout), err)
	}
	if err == nil {
		err = fmt.Errorf("exit status %d", code)
	}
	return outcome, services.Wrap(services.ErrExternalTool, "convert", job.Category,
		fmt.Sprintf("converter exited with code %d", code), err)
}

func (j Job) validate() error {
	switch {
	case strings.TrimSpace(j.Input) == "":
		return errors.New("input path required")
	case strings.TrimSpace(j.FeaturesDir) == "":
		return errors.New("features directory required")
	case strings.TrimSpace(j.TimesDir) == "":
		return errors.New("times directory required")
	}
	return nil
}

type lineTail struct {
	max  int
	buf  []string
	full bool
	next int
}

func newLineTail(max int) *lineTail {
	return &lineTail{max: max, buf: make([]string, 0, max)}
}

func (t *lineTail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" || t.max <= 0 {
		return
	}
	if !t.full {
		t.buf = append(t.buf, line)
		if len(t.buf) == t.max {
			t.full = true
		}
		return
	}
	t.buf[t.next] = line
	t.next = (t.next + 1) % t.max
}

func (t *lineTail) lines() []string {
	if len(t.buf) == 0 {
		return nil
	}
	if !t.full {
		return append([]string(nil), t.buf...)
	}
	out := make([]string, 0, t.max)
	out = append(out, t.buf[t.next:]...)
	out = append(out, t.buf[:t.next]...)
	return out
}
