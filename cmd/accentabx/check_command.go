package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"accentabx/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var overrides pathOverrides
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the converter, dataset, and output roots are ready",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.resolvedConfig(overrides)
			if err != nil {
				return err
			}
			results := preflight.RunAll(cfg)
			failed := preflight.Failed(results)

			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				if ctx.configSeen {
					fmt.Fprintf(out, "Config: %s\n", ctx.configPath)
				} else {
					fmt.Fprintln(out, "Config: defaults (no file found)")
				}
				for _, line := range renderSectionHeader("Readiness", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, r := range results {
					fmt.Fprintln(out, renderStatusLine(r.Name, checkKind(r), r.Detail, colorize))
				}
			}

			if len(failed) > 0 {
				return fmt.Errorf("%d required check(s) failed", len(failed))
			}
			return nil
		},
	}

	overrides.bind(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

func checkKind(r preflight.Result) statusKind {
	switch {
	case r.Passed:
		return statusOK
	case r.Informational:
		return statusWarn
	default:
		return statusError
	}
}
