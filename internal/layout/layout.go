// Package layout maps accent categories onto the dataset's input archive and
// the per-accent output directories.
//
// Everything here is pure string work; nothing touches the filesystem.
package layout

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	inputFileName = "h5_file.h5f"
	itemSuffix    = "_item.item"
)

// ErrInvalidCategory is returned for labels that cannot name a directory
// under the configured roots.
var ErrInvalidCategory = errors.New("invalid category")

// Paths is the resolved set of locations for one category.
type Paths struct {
	Category string `json:"category"`
	Input    string `json:"input"`
	Features string `json:"features"`
	Times    string `json:"times"`
	ItemFile string `json:"item_file"`
}

// Layout resolves category paths against fixed roots.
type Layout struct {
	base         string
	featuresRoot string
	timesRoot    string
}

// New constructs a Layout. Roots are used as given.
func New(base, featuresRoot, timesRoot string) Layout {
	return Layout{base: base, featuresRoot: featuresRoot, timesRoot: timesRoot}
}

// Base returns the dataset root.
func (l Layout) Base() string { return l.base }

// Resolve returns the input archive, output directories, and item file for category.
func (l Layout) Resolve(category string) Paths {
	return Paths{
		Category: category,
		Input:    filepath.Join(l.base, "results", "dev", category, "abx", inputFileName),
		Features: filepath.Join(l.featuresRoot, category),
		Times:    filepath.Join(l.timesRoot, category),
		ItemFile: filepath.Join(l.base, category, "abx", ItemFileName(category)),
	}
}

// ValidateCategory rejects labels that are empty, padded, or would escape
// the output roots.
func ValidateCategory(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty label", ErrInvalidCategory)
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidCategory, name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidCategory, name)
	}
	if name == "." || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q is not a plain directory name", ErrInvalidCategory, name)
	}
	return nil
}

// ItemFileName returns the fastabx item file name for category, e.g.
// "american_item.item". Casers carry state, so each call builds its own.
func ItemFileName(category string) string {
	return cases.Lower(language.Und).String(category) + itemSuffix
}
