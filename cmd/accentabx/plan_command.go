package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"accentabx/internal/layout"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var overrides pathOverrides
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the resolved paths for each accent without running anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.resolvedConfig(overrides)
			if err != nil {
				return err
			}
			l := layout.New(cfg.Paths.BaseDir, cfg.Paths.FeaturesRoot, cfg.Paths.TimesRoot)
			plan := make([]layout.Paths, 0, len(cfg.Categories.Accents))
			for _, category := range cfg.Categories.Accents {
				plan = append(plan, l.Resolve(category))
			}

			if jsonOutput {
				return writeJSON(cmd, plan)
			}

			rows := make([][]string, 0, len(plan))
			for _, p := range plan {
				rows = append(rows, []string{p.Category, p.Input, p.Features, p.Times, p.ItemFile})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Converter: %s %s <input> <features> <times>\n", cfg.Converter.Binary, cfg.Converter.ModeToken)
			fmt.Fprintln(out, renderTable(
				[]string{"Accent", "Input", "Features", "Times", "Item file"},
				rows,
				nil,
			))
			return nil
		},
	}

	overrides.bind(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the plan as JSON")
	return cmd
}
