package testsupport

import (
	"path/filepath"
	"testing"

	"accentabx/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.BaseDir = filepath.Join(base, "data")
	cfgVal.Paths.FeaturesRoot = filepath.Join(base, "out", "features")
	cfgVal.Paths.TimesRoot = filepath.Join(base, "out", "times")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Logging.RetentionDays = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAccents replaces the category list on the test config.
func WithAccents(accents ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Categories.Accents = append([]string(nil), accents...)
	}
}

// WithHistory enables the run ledger under the state directory.
func WithHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = true
	}
}

// WithStubConverter writes a converter script that records its arguments and
// exits with failures[category] (0 when absent), then points the config at it.
func WithStubConverter(failures map[string]int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Converter.Binary = WriteConverterScript(b.t, filepath.Join(b.baseDir, "bin"), failures)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
