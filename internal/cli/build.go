package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/cruciblehq/cruxpkg/internal/logging"
	"github.com/cruciblehq/cruxpkg/internal/recipe"
)

// Represents the 'cruxpkg build' command.
type BuildCmd struct {
	Recipe   string   `arg:"" help:"Name of the recipe to build." placeholder:"RECIPENAME"`
	Packages []string `arg:"" optional:"" help:"Packages to build (default: all packages from the recipe)." placeholder:"PACKAGENAME"`
	Arch     []string `short:"a" name:"arch-name" help:"Only build for the given architecture (can be repeated)." placeholder:"ARCHNAME"`
}

// Executes the build command.
func (c *BuildCmd) Run(ctx context.Context) error {
	s := newSession()
	return s.run(func() error {
		g, err := recipe.Load(filepath.Join(RootCmd.RecipeDir, c.Recipe))
		if err != nil {
			return err
		}

		selection, err := selectArchs(g, c.Arch, c.Packages)
		if err != nil {
			return err
		}
		for _, arch := range c.Arch {
			if g.Recipe(arch) == nil {
				s.logger.Warn("skipping unsupported architecture", logging.Recipe(g.Name), logging.Arch(arch))
			}
		}

		b, err := s.builder(ctx)
		if err != nil {
			return err
		}

		result, err := b.Make(ctx, g, selection)
		if err != nil {
			return err
		}

		s.logger.Info(fmt.Sprintf("Built %d packages in %s", len(result.Packages), result.Duration.Round(time.Millisecond)), logging.Recipe(g.Name))
		return nil
	})
}

// Returns the architecture selection for the requested architectures and
// package names, or nil to build everything. Requested architectures the
// recipe does not support are left out; if none remain, the request is an
// error.
func selectArchs(g *recipe.GenericRecipe, archs, packages []string) (map[string][]string, error) {
	if len(archs) == 0 && len(packages) == 0 {
		return nil, nil
	}

	if len(archs) == 0 {
		archs = g.Archs
	}

	var names []string
	if len(packages) > 0 {
		names = slices.Clone(packages)
	}

	selection := make(map[string][]string)
	for _, arch := range archs {
		if g.Recipe(arch) == nil {
			continue
		}
		selection[arch] = names
	}
	if len(selection) == 0 {
		return nil, fmt.Errorf("recipe %s supports none of the requested architectures (supported: %v)", g.Name, g.Archs)
	}
	return selection, nil
}
