package main

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"accentabx/internal/config"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

// pathOverrides holds the per-invocation path flags shared by convert and plan.
type pathOverrides struct {
	categories   []string
	baseDir      string
	featuresRoot string
	timesRoot    string
}

func (p *pathOverrides) bind(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&p.categories, "category", nil, "Limit the run to this accent (repeatable)")
	cmd.Flags().StringVar(&p.baseDir, "base-dir", "", "Dataset base directory")
	cmd.Flags().StringVar(&p.featuresRoot, "features-root", "", "Root for per-accent features directories")
	cmd.Flags().StringVar(&p.timesRoot, "times-root", "", "Root for per-accent times directories")
}

// resolvedConfig returns a copy of the loaded config with the flags applied.
// Selected categories keep their configured order.
func (c *commandContext) resolvedConfig(p pathOverrides) (*config.Config, error) {
	base, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	cfg := *base
	cfg.Categories.Accents = append([]string(nil), base.Categories.Accents...)

	selected, err := selectCategories(cfg.Categories.Accents, p.categories)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyOverrides(config.Overrides{
		BaseDir:      p.baseDir,
		FeaturesRoot: p.featuresRoot,
		TimesRoot:    p.timesRoot,
		Accents:      selected,
	}); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func selectCategories(configured, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return nil, nil
	}
	wanted := make(map[string]bool, len(requested))
	for _, name := range requested {
		name = strings.TrimSpace(name)
		if !slices.Contains(configured, name) {
			return nil, fmt.Errorf("unknown accent %q (configured: %s)", name, strings.Join(configured, ", "))
		}
		wanted[name] = true
	}
	selected := make([]string, 0, len(wanted))
	for _, name := range configured {
		if wanted[name] {
			selected = append(selected, name)
		}
	}
	return selected, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
