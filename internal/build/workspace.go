package build

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cruciblehq/cruxpkg/internal/paths"
	"github.com/cruciblehq/cruxpkg/internal/recipe"
)

// Build directory of one recipe.
//
//	<root>/src                    fetched and extracted sources
//	<root>/<arch>/src             per-architecture working copy
//	<root>/<arch>/pkg/<package>   staged package tree
type workspace struct {
	root string
}

func (w workspace) src() string {
	return filepath.Join(w.root, "src")
}

func (w workspace) archSrc(arch string) string {
	return filepath.Join(w.root, arch, "src")
}

func (w workspace) pkgBase(arch string) string {
	return filepath.Join(w.root, arch, "pkg")
}

func (w workspace) pkg(arch, name string) string {
	return filepath.Join(w.pkgBase(arch), name)
}

// Creates the recipe's build directory, consulting the conflict policy if it
// already exists.
func (b *Builder) claimWorkspace(logger *slog.Logger, g *recipe.GenericRecipe) (workspace, error) {
	ws := workspace{root: filepath.Join(b.workDir, g.Name)}

	err := os.Mkdir(ws.root, paths.DefaultDirMode)
	if errors.Is(err, fs.ErrExist) {
		action, askErr := b.onConflict(displayPath(ws.root), g.Name)
		if askErr != nil {
			return ws, fmt.Errorf("%w: %w", ErrWorkspaceConflict, askErr)
		}
		logger.Debug("build directory exists", "path", ws.root, "action", action.String())

		switch action {
		case ConflictRemove:
			if err := os.RemoveAll(ws.root); err != nil {
				return ws, fmt.Errorf("%w: %w", ErrFileSystem, err)
			}
			err = os.Mkdir(ws.root, paths.DefaultDirMode)
		case ConflictKeep:
			err = nil
		default:
			return ws, fmt.Errorf("%w: %s", ErrWorkspaceConflict, ws.root)
		}
	}
	if err != nil {
		return ws, fmt.Errorf("%w: %w", ErrFileSystem, err)
	}

	if err := os.MkdirAll(ws.src(), paths.DefaultDirMode); err != nil {
		return ws, fmt.Errorf("%w: %w", ErrFileSystem, err)
	}
	return ws, nil
}

// Returns path relative to the working directory when possible.
func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil {
		return path
	}
	return rel
}
