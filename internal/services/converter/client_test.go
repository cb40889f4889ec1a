package converter_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"accentabx/internal/services"
	"accentabx/internal/services/converter"
)

type stubExecutor struct {
	lines    []string
	code     int
	err      error
	calls    int
	binaries []string
	args     [][]string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) (int, error) {
	s.calls++
	s.binaries = append(s.binaries, binary)
	s.args = append(s.args, append([]string(nil), args...))
	for _, line := range s.lines {
		onOutput(line)
	}
	return s.code, s.err
}

func sampleJob() converter.Job {
	return converter.Job{
		Category:    "American",
		Input:       "/data/results/dev/American/abx/h5_file.h5f",
		FeaturesDir: "/out/features/American",
		TimesDir:    "/out/times/American",
	}
}

func TestNewRequiresBinaryAndMode(t *testing.T) {
	if _, err := converter.New("", "torch", 0); err == nil {
		t.Fatal("expected error for empty binary")
	}
	if _, err := converter.New("fastabx-convert", "  ", 0); err == nil {
		t.Fatal("expected error for empty mode token")
	}
}

func TestConvertPassesArgumentsInContractOrder(t *testing.T) {
	exec := &stubExecutor{}
	client, err := converter.New("fastabx-convert", "torch", 0, converter.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	outcome, err := client.Convert(context.Background(), sampleJob())
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if outcome.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", outcome.ExitCode)
	}
	if exec.calls != 1 {
		t.Fatalf("expected one invocation, got %d", exec.calls)
	}
	if exec.binaries[0] != "fastabx-convert" {
		t.Fatalf("unexpected binary %q", exec.binaries[0])
	}
	want := []string{"torch", "/data/results/dev/American/abx/h5_file.h5f", "/out/features/American", "/out/times/American"}
	if !equalStrings(exec.args[0], want) {
		t.Fatalf("unexpected args: got %v want %v", exec.args[0], want)
	}
}

func TestConvertNonZeroExitIsExternalToolError(t *testing.T) {
	exec := &stubExecutor{code: 1, err: errors.New("exit status 1"), lines: []string{"loading", "KeyError: 'features'"}}
	client, err := converter.New("fastabx-convert", "torch", 0, converter.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	outcome, err := client.Convert(context.Background(), sampleJob())
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if outcome.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", outcome.ExitCode)
	}
	if len(outcome.OutputTail) != 2 || outcome.OutputTail[1] != "KeyError: 'features'" {
		t.Fatalf("unexpected output tail: %v", outcome.OutputTail)
	}
	if !strings.Contains(err.Error(), "American") {
		t.Fatalf("expected category in error, got %q", err.Error())
	}
}

func TestConvertNonZeroExitWithoutExecutorError(t *testing.T) {
	exec := &stubExecutor{code: 3}
	client, err := converter.New("fastabx-convert", "torch", 0, converter.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Convert(context.Background(), sampleJob()); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestConvertRejectsIncompleteJob(t *testing.T) {
	exec := &stubExecutor{}
	client, err := converter.New("fastabx-convert", "torch", 0, converter.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	job := sampleJob()
	job.TimesDir = ""
	if _, err := client.Convert(context.Background(), job); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if exec.calls != 0 {
		t.Fatalf("expected no invocation for invalid job, got %d", exec.calls)
	}
}

func TestConvertOutputTailKeepsLastLines(t *testing.T) {
	lines := []string{"1", "2", "3", "4", "5", "6", "7"}
	exec := &stubExecutor{lines: lines}
	client, err := converter.New("fastabx-convert", "torch", 0, converter.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	outcome, err := client.Convert(context.Background(), sampleJob())
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	want := []string{"3", "4", "5", "6", "7"}
	if !equalStrings(outcome.OutputTail, want) {
		t.Fatalf("unexpected tail: got %v want %v", outcome.OutputTail, want)
	}
}

func TestCommandExecutorReportsExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	dir := t.TempDir()
	record := filepath.Join(dir, "args.txt")
	script := "#!/bin/sh\necho \"$@\" > " + record + "\necho converting \"$2\"\nexit 4\n"
	stub := filepath.Join(dir, "convert-stub")
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	client, err := converter.New(stub, "torch", 0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	outcome, err := client.Convert(context.Background(), sampleJob())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if outcome.ExitCode != 4 {
		t.Fatalf("expected exit code 4, got %d", outcome.ExitCode)
	}
	data, err := os.ReadFile(record)
	if err != nil {
		t.Fatalf("read recorded args: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != strings.Join(client.Args(sampleJob()), " ") {
		t.Fatalf("unexpected recorded args %q", got)
	}
	if len(outcome.OutputTail) == 0 || !strings.HasPrefix(outcome.OutputTail[0], "converting ") {
		t.Fatalf("expected captured output, got %v", outcome.OutputTail)
	}
}

func convertWithDeadline(t *testing.T, script string) (converter.Outcome, error) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	stub := filepath.Join(t.TempDir(), "convert-stub")
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	client, err := converter.New(stub, "torch", 0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	type result struct {
		outcome converter.Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := client.Convert(context.Background(), sampleJob())
		done <- result{outcome, err}
	}()
	select {
	case r := <-done:
		return r.outcome, r.err
	case <-time.After(15 * time.Second):
		t.Fatal("converter still running after 15s")
		return converter.Outcome{}, nil
	}
}

func TestCommandExecutorSplitsCarriageReturnProgress(t *testing.T) {
	script := "#!/bin/sh\nhead -c 3000000 /dev/zero | tr '\\000' '\\r' >&2\necho done\nexit 0\n"
	outcome, err := convertWithDeadline(t, script)
	if err != nil {
		t.Fatalf("expected success for exit 0, got %v", err)
	}
	if outcome.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", outcome.ExitCode)
	}
	if len(outcome.OutputTail) == 0 || outcome.OutputTail[len(outcome.OutputTail)-1] != "done" {
		t.Fatalf("expected trailing output line, got %v", outcome.OutputTail)
	}
}

func TestCommandExecutorDrainsOversizedLine(t *testing.T) {
	script := "#!/bin/sh\nhead -c 3000000 /dev/zero | tr '\\000' 'x' >&2\necho done\nexit 0\n"
	outcome, err := convertWithDeadline(t, script)
	if err != nil {
		t.Fatalf("expected success for exit 0, got %v", err)
	}
	if outcome.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", outcome.ExitCode)
	}
	var sawDone bool
	for _, line := range outcome.OutputTail {
		if line == "done" {
			sawDone = true
		}
	}
	if !sawDone {
		t.Fatalf("expected stdout line after oversized stderr, got %v", outcome.OutputTail)
	}
}

func TestCommandExecutorMissingBinary(t *testing.T) {
	client, err := converter.New(filepath.Join(t.TempDir(), "does-not-exist"), "torch", 0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	outcome, err := client.Convert(context.Background(), sampleJob())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if outcome.ExitCode != -1 {
		t.Fatalf("expected exit code -1 for missing binary, got %d", outcome.ExitCode)
	}
}

func TestConvertTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	dir := t.TempDir()
	stub := filepath.Join(dir, "slow-stub")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexec sleep 5\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	client, err := converter.New(stub, "torch", 1)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	start := time.Now()
	_, err = client.Convert(context.Background(), sampleJob())
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Fatalf("timeout not enforced, took %s", elapsed)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
