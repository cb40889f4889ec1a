package batch_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"accentabx/internal/batch"
	"accentabx/internal/layout"
	"accentabx/internal/logging"
	"accentabx/internal/services"
	"accentabx/internal/services/converter"
)

type fakeConverter struct {
	calls  []converter.Job
	codes  map[string]int
	onCall func(job converter.Job)
}

func (f *fakeConverter) Convert(_ context.Context, job converter.Job) (converter.Outcome, error) {
	f.calls = append(f.calls, job)
	if f.onCall != nil {
		f.onCall(job)
	}
	code := f.codes[job.Category]
	if code != 0 {
		return converter.Outcome{ExitCode: code}, services.Wrap(services.ErrExternalTool, "convert", job.Category,
			fmt.Sprintf("converter exited with code %d", code), fmt.Errorf("exit status %d", code))
	}
	return converter.Outcome{ExitCode: 0}, nil
}

type recorderFunc func(ctx context.Context, result batch.Result) error

func (f recorderFunc) Record(ctx context.Context, result batch.Result) error { return f(ctx, result) }

type roots struct {
	base     string
	features string
	times    string
}

func newRoots(t *testing.T) roots {
	t.Helper()
	dir := t.TempDir()
	return roots{
		base:     filepath.Join(dir, "data"),
		features: filepath.Join(dir, "features"),
		times:    filepath.Join(dir, "times"),
	}
}

func (r roots) layout() layout.Layout {
	return layout.New(r.base, r.features, r.times)
}

func newDriver(t *testing.T, r roots, categories []string, conv converter.Converter, opts ...batch.Option) *batch.Driver {
	t.Helper()
	driver, err := batch.NewDriver(r.layout(), categories, conv, opts...)
	if err != nil {
		t.Fatalf("NewDriver returned error: %v", err)
	}
	return driver
}

func TestRunInvokesConverterInOrder(t *testing.T) {
	r := newRoots(t)
	conv := &fakeConverter{}
	categories := []string{"American", "British", "Indian"}
	driver := newDriver(t, r, categories, conv)

	result, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(conv.calls) != len(categories) {
		t.Fatalf("expected %d converter calls, got %d", len(categories), len(conv.calls))
	}
	for i, category := range categories {
		job := conv.calls[i]
		want := r.layout().Resolve(category)
		if job.Category != category || job.Input != want.Input || job.FeaturesDir != want.Features || job.TimesDir != want.Times {
			t.Fatalf("call %d: unexpected job %+v", i, job)
		}
	}
	if !result.OK() || result.Succeeded() != 3 {
		t.Fatalf("expected all categories to succeed, got %+v", result.Outcomes)
	}
	if result.RunID == "" {
		t.Fatal("expected a run id")
	}
	if result.Finished.Before(result.Started) {
		t.Fatal("finished before started")
	}
}

func TestRunContinuesAfterFailure(t *testing.T) {
	r := newRoots(t)
	conv := &fakeConverter{codes: map[string]int{"British": 1}}
	categories := []string{"American", "British", "Indian", "Chinese"}
	driver := newDriver(t, r, categories, conv)

	result, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(conv.calls) != 4 {
		t.Fatalf("expected every category attempted, got %d calls", len(conv.calls))
	}
	byCategory := result.ByCategory()
	british := byCategory["British"]
	if british.Status != batch.StatusConversionFailed || british.ExitCode != 1 {
		t.Fatalf("unexpected British outcome: %+v", british)
	}
	if !strings.Contains(british.Error, "exit status 1") {
		t.Fatalf("expected exit status in error text, got %q", british.Error)
	}
	for _, category := range []string{"American", "Indian", "Chinese"} {
		if !byCategory[category].OK() {
			t.Fatalf("expected %s to succeed, got %+v", category, byCategory[category])
		}
	}
	if result.OK() || result.Failed() != 1 {
		t.Fatalf("expected one failure, got %d", result.Failed())
	}
	if got := result.FailedCategories(); len(got) != 1 || got[0] != "British" {
		t.Fatalf("unexpected failed categories: %v", got)
	}
}

func TestRunCreatesDirectoriesEvenWhenConversionFails(t *testing.T) {
	r := newRoots(t)
	conv := &fakeConverter{codes: map[string]int{"Korean": 2}}
	driver := newDriver(t, r, []string{"Korean"}, conv)

	if _, err := driver.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	for _, dir := range []string{filepath.Join(r.features, "Korean"), filepath.Join(r.times, "Korean")} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected %s to exist after failure: %v", dir, err)
		}
	}
}

func TestRunIsIdempotentOnExistingDirectories(t *testing.T) {
	r := newRoots(t)
	conv := &fakeConverter{}
	driver := newDriver(t, r, []string{"Spanish", "Portuguese"}, conv)

	marker := filepath.Join(r.features, "Spanish", "keep.txt")
	if err := os.MkdirAll(filepath.Dir(marker), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(marker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}

	for i := 0; i < 2; i++ {
		result, err := driver.Run(context.Background())
		if err != nil {
			t.Fatalf("run %d returned error: %v", i, err)
		}
		if !result.OK() {
			t.Fatalf("run %d: expected success, got %+v", i, result.Outcomes)
		}
	}
	if len(conv.calls) != 4 {
		t.Fatalf("expected 4 converter calls over two runs, got %d", len(conv.calls))
	}
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("existing content removed: %v", err)
	}
}

func TestRunSetupFailureSkipsConverter(t *testing.T) {
	r := newRoots(t)
	conv := &fakeConverter{}
	blocked := filepath.Join(r.times, "British")
	mkdir := func(path string, perm fs.FileMode) error {
		if path == blocked {
			return &fs.PathError{Op: "mkdir", Path: path, Err: fs.ErrPermission}
		}
		return os.MkdirAll(path, perm)
	}
	driver := newDriver(t, r, []string{"American", "British", "Indian"}, conv, batch.WithMkdirAll(mkdir))

	result, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	british := result.ByCategory()["British"]
	if british.Status != batch.StatusSetupFailed {
		t.Fatalf("expected setup_failed, got %+v", british)
	}
	if british.ExitCode != -1 {
		t.Fatalf("expected exit code -1 for uninvoked converter, got %d", british.ExitCode)
	}
	for _, job := range conv.calls {
		if job.Category == "British" {
			t.Fatal("converter invoked for category whose setup failed")
		}
	}
	if len(conv.calls) != 2 {
		t.Fatalf("expected remaining categories converted, got %d calls", len(conv.calls))
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	r := newRoots(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conv := &fakeConverter{onCall: func(job converter.Job) {
		if job.Category == "British" {
			cancel()
		}
	}}
	driver := newDriver(t, r, []string{"American", "British", "Indian", "Chinese"}, conv)

	result, err := driver.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(result.Outcomes) != 2 {
		t.Fatalf("expected two attempted categories, got %d", len(result.Outcomes))
	}
	if len(conv.calls) != 2 {
		t.Fatalf("expected no calls after cancellation, got %d", len(conv.calls))
	}
}

func TestRunFailsWhenLockHeld(t *testing.T) {
	r := newRoots(t)
	lockPath := filepath.Join(t.TempDir(), "state", "accentabx.lock")
	held, err := batch.AcquireLock(lockPath)
	if err != nil {
		t.Fatalf("AcquireLock returned error: %v", err)
	}
	defer held.Release()

	conv := &fakeConverter{}
	driver := newDriver(t, r, []string{"American"}, conv, batch.WithLockPath(lockPath))
	_, err = driver.Run(context.Background())
	if !errors.Is(err, batch.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if len(conv.calls) != 0 {
		t.Fatal("converter invoked while lock held")
	}

	if err := held.Release(); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if _, err := driver.Run(context.Background()); err != nil {
		t.Fatalf("Run after release returned error: %v", err)
	}
}

func TestRunHandsResultToRecorder(t *testing.T) {
	r := newRoots(t)
	var recorded []batch.Result
	recorder := recorderFunc(func(_ context.Context, result batch.Result) error {
		recorded = append(recorded, result)
		return errors.New("disk full")
	})
	driver := newDriver(t, r, []string{"Japanese"}, &fakeConverter{},
		batch.WithRecorder(recorder), batch.WithRunID("run-fixed"))

	result, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("recorder failure must not fail the run: %v", err)
	}
	if len(recorded) != 1 || recorded[0].RunID != "run-fixed" {
		t.Fatalf("unexpected recorded runs: %+v", recorded)
	}
	if !result.OK() {
		t.Fatal("recorder failure changed outcomes")
	}
}

func TestNewDriverRejectsInvalidCategory(t *testing.T) {
	r := newRoots(t)
	if _, err := batch.NewDriver(r.layout(), []string{"../etc"}, &fakeConverter{}); err == nil {
		t.Fatal("expected invalid category to be rejected")
	}
	if _, err := batch.NewDriver(r.layout(), []string{"American"}, nil); err == nil {
		t.Fatal("expected nil converter to be rejected")
	}
}

func TestPlanResolvesWithoutSideEffects(t *testing.T) {
	r := newRoots(t)
	driver := newDriver(t, r, []string{"Russian"}, &fakeConverter{})
	plan := driver.Plan()
	if len(plan) != 1 || plan[0].Features != filepath.Join(r.features, "Russian") {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if _, err := os.Stat(r.features); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("plan created directories: %v", err)
	}
}

func TestRunEndToEndWithStubConverter(t *testing.T) {
	r := newRoots(t)
	binDir := t.TempDir()
	argsLog := filepath.Join(binDir, "args.log")
	script := filepath.Join(binDir, "fastabx-convert")
	content := fmt.Sprintf("#!/bin/sh\necho \"$@\" >> %q\ncase \"$2\" in\n  */British/*) echo 'bad archive' >&2; exit 1 ;;\nesac\nexit 0\n", argsLog)
	if err := os.WriteFile(script, []byte(content), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	client, err := converter.New(script, "torch", 0)
	if err != nil {
		t.Fatalf("converter.New returned error: %v", err)
	}
	var logs bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &logs})
	if err != nil {
		t.Fatalf("logging.New returned error: %v", err)
	}
	driver := newDriver(t, r, []string{"American", "British"}, client, batch.WithLogger(logger))

	result, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	byCategory := result.ByCategory()
	if byCategory["American"].Status != batch.StatusSucceeded {
		t.Fatalf("unexpected American outcome: %+v", byCategory["American"])
	}
	if byCategory["British"].Status != batch.StatusConversionFailed || byCategory["British"].ExitCode != 1 {
		t.Fatalf("unexpected British outcome: %+v", byCategory["British"])
	}

	recorded, err := os.ReadFile(argsLog)
	if err != nil {
		t.Fatalf("read args log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(recorded)), "\n")
	wantFirst := strings.Join([]string{
		"torch",
		filepath.Join(r.base, "results", "dev", "American", "abx", "h5_file.h5f"),
		filepath.Join(r.features, "American"),
		filepath.Join(r.times, "American"),
	}, " ")
	if len(lines) != 2 || lines[0] != wantFirst {
		t.Fatalf("unexpected converter invocations: %q", lines)
	}

	out := logs.String()
	for _, want := range []string{
		"Processing accent: American",
		"Conversion completed successfully",
		"Processing accent: British",
		"Error: Conversion failed",
		"Batch conversion completed",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Processing accent: American") > strings.Index(out, "Processing accent: British") {
		t.Fatal("categories logged out of order")
	}

	var failureCategories []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		if record["msg"] == "Error: Conversion failed" {
			category, _ := record["category"].(string)
			failureCategories = append(failureCategories, category)
		}
	}
	if len(failureCategories) != 1 || failureCategories[0] != "British" {
		t.Fatalf("expected one failure record naming British, got %v", failureCategories)
	}

	for _, category := range []string{"American", "British"} {
		for _, dir := range []string{filepath.Join(r.features, category), filepath.Join(r.times, category)} {
			info, err := os.Stat(dir)
			if err != nil || !info.IsDir() {
				t.Fatalf("expected directory %s after run: %v", dir, err)
			}
		}
	}
}
