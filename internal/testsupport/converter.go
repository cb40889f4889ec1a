package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"accentabx/internal/config"
)

const (
	converterScriptName = "fastabx-convert"
	converterLogName    = "converter-calls.log"
)

// WriteConverterScript writes a stub converter into dir and returns its path.
// Each invocation appends its arguments to converter-calls.log in dir.
func WriteConverterScript(t testing.TB, dir string, failures map[string]int) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	categories := make([]string, 0, len(failures))
	for category := range failures {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "echo \"$@\" >> %q\n", filepath.Join(dir, converterLogName))
	b.WriteString("case \"$2\" in\n")
	for _, category := range categories {
		fmt.Fprintf(&b, "  */dev/%s/*) echo \"cannot read archive for %s\" >&2; exit %d ;;\n",
			category, category, failures[category])
	}
	b.WriteString("esac\necho \"converted $2\"\nexit 0\n")

	script := filepath.Join(dir, converterScriptName)
	if err := os.WriteFile(script, []byte(b.String()), 0o755); err != nil {
		t.Fatalf("write converter stub: %v", err)
	}
	return script
}

// ConverterCalls returns the argument lines recorded by the stub converter
// configured on cfg.
func ConverterCalls(t testing.TB, cfg *config.Config) []string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(filepath.Dir(cfg.Converter.Binary), converterLogName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read converter log: %v", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}
