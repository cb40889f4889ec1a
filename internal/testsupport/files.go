package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"accentabx/internal/config"
	"accentabx/internal/layout"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := min(int64(chunkSize), remaining)
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteInputArchives creates placeholder input archives for categories under
// the config's base directory and returns their paths.
func WriteInputArchives(t testing.TB, cfg *config.Config, categories ...string) []string {
	t.Helper()

	l := layout.New(cfg.Paths.BaseDir, cfg.Paths.FeaturesRoot, cfg.Paths.TimesRoot)
	paths := make([]string, 0, len(categories))
	for _, category := range categories {
		input := l.Resolve(category).Input
		WriteFile(t, input, 64)
		paths = append(paths, input)
	}
	return paths
}
