package preflight

import (
	"accentabx/internal/config"
	"accentabx/internal/layout"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
	// Informational results are reported but never fail a run.
	Informational bool `json:"informational,omitempty"`
}

// RunAll executes the required checks followed by the per-category input report.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := RunRequired(cfg)
	return append(results, InputReport(cfg)...)
}

// RunRequired executes only the checks whose failure dooms a batch.
func RunRequired(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckConverter(cfg.Converter.Binary),
		CheckReadableDirectory("Base directory", cfg.Paths.BaseDir),
		CheckOutputRoot("Features root", cfg.Paths.FeaturesRoot),
		CheckOutputRoot("Times root", cfg.Paths.TimesRoot),
	}
}

// InputReport lists, per category, whether the input archive is present.
func InputReport(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	l := layout.New(cfg.Paths.BaseDir, cfg.Paths.FeaturesRoot, cfg.Paths.TimesRoot)
	results := make([]Result, 0, len(cfg.Categories.Accents))
	for _, category := range cfg.Categories.Accents {
		results = append(results, CheckInputArchive(category, l.Resolve(category).Input))
	}
	return results
}

// Failed returns the non-informational results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Informational {
			failed = append(failed, r)
		}
	}
	return failed
}
