package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/harborline/stevedore/internal/config"
	"github.com/harborline/stevedore/internal/descriptor"
	"github.com/harborline/stevedore/internal/envfile"
	"github.com/harborline/stevedore/internal/ui"
)

// resolveProject locates the template and its project. When a template path
// is given explicitly, the project root is discovered from its directory;
// rendering a standalone file outside any project returns a nil config.
func resolveProject(templateArg string) (*config.Config, string, error) {
	if templateArg == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, "", err
		}
		return cfg, cfg.TemplateFile, nil
	}

	abs, err := filepath.Abs(templateArg)
	if err != nil {
		return nil, "", fmt.Errorf("resolve path: %w", err)
	}

	root, err := config.FindRootFrom(filepath.Dir(abs))
	if err != nil {
		return nil, abs, nil
	}
	return config.ForRoot(root), abs, nil
}

// buildDescriptor runs the load, merge, and resolve stages and returns the
// resolved descriptor. Substitution warnings are printed as they are found.
func buildDescriptor(cfg *config.Config, templatePath string, overlays, envFiles []string) (*descriptor.Descriptor, error) {
	d, err := descriptor.LoadFile(templatePath)
	if err != nil {
		return nil, err
	}

	for _, name := range overlays {
		path := name
		if cfg != nil {
			path = cfg.Overlay(name)
		}
		overlay, err := descriptor.LoadOverlayFile(path)
		if err != nil {
			return nil, err
		}
		d = descriptor.Merge(d, overlay)
	}

	sources := envFiles
	if cfg != nil {
		if def := cfg.DefaultEnvFile(); def != "" {
			sources = append([]string{def}, envFiles...)
		}
	}

	vars, err := envfile.LoadAll(sources)
	if err != nil {
		return nil, err
	}

	resolved, warnings, err := descriptor.Resolve(d, vars)
	for _, w := range warnings {
		ui.Warning("%s: %s", w.Variable, w.Detail)
	}
	if err != nil {
		return nil, err
	}

	return resolved, nil
}

// validateDescriptor runs schema validation and prints each violation.
func validateDescriptor(d *descriptor.Descriptor) error {
	err := descriptor.Validate(d)
	if err == nil {
		return nil
	}

	var verr *descriptor.ValidationError
	if errors.As(err, &verr) {
		for _, v := range verr.Violations {
			ui.Error("%s", v.String())
		}
		return fmt.Errorf("%d validation violation(s)", len(verr.Violations))
	}
	return err
}
