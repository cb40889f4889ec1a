package logs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"accentabx/internal/logging"
)

// ErrNoRunLogs is returned when the log directory holds no run logs.
var ErrNoRunLogs = errors.New("no run logs found")

// List returns run log paths in dir, oldest first.
func List(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, logging.RunLogPattern))
	if err != nil {
		return nil, fmt.Errorf("list run logs: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// Latest returns the most recent run log in dir.
func Latest(dir string) (string, error) {
	matches, err := List(dir)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoRunLogs, dir)
	}
	return matches[len(matches)-1], nil
}

// ForRun returns the run log whose name carries a prefix of runID.
func ForRun(dir, runID string) (string, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return Latest(dir)
	}
	matches, err := List(dir)
	if err != nil {
		return "", err
	}
	for i := len(matches) - 1; i >= 0; i-- {
		name := strings.TrimSuffix(filepath.Base(matches[i]), ".log")
		idx := strings.LastIndexByte(name, '-')
		if idx < 0 {
			continue
		}
		if short := name[idx+1:]; short != "" && strings.HasPrefix(runID, short) {
			return matches[i], nil
		}
	}
	if _, statErr := os.Stat(dir); statErr != nil {
		return "", fmt.Errorf("%w in %s", ErrNoRunLogs, dir)
	}
	return "", fmt.Errorf("%w for run %s", ErrNoRunLogs, runID)
}
