package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/renameio"

	"github.com/cruciblehq/cruxpkg/internal/fsutil"
	"github.com/cruciblehq/cruxpkg/internal/ipk"
	"github.com/cruciblehq/cruxpkg/internal/logging"
	"github.com/cruciblehq/cruxpkg/internal/paths"
	"github.com/cruciblehq/cruxpkg/internal/recipe"
)

// Writes the archive of pkg from its staged tree and returns its path.
//
// All timestamps inside the archive and the archive's own modification time
// are set to the recipe timestamp, so rebuilding identical inputs yields an
// identical file.
func (b *Builder) archive(_ context.Context, logger *slog.Logger, pkg *recipe.Package, pkgDir string) (string, error) {
	logger.Info("Creating archive")

	registersApps, err := exists(filepath.Join(pkgDir, launcherAppsDir))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileSystem, err)
	}

	functions := effectiveFunctions(pkg, registersApps)
	scripts := installScripts(scriptHeader(pkg, b.installLib), functions)

	logger.Debug("Install scripts:")
	if len(scripts) == 0 {
		logger.Debug("(none)")
	}
	for _, name := range slices.Sorted(maps.Keys(scripts)) {
		logger.Debug(" - " + name)
	}

	epoch := pkg.Parent.Parent.Timestamp
	dest := filepath.Join(b.repoDir, pkg.Filename())

	size, err := writeArchive(dest, epoch, pkgDir, pkg.ControlFields(), scripts)
	if err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrArchive, pkg.Filename(), err)
	}

	logger.Debug("archive written", logging.Path(dest), logging.Size(humanize.Bytes(uint64(size))))
	return dest, nil
}

// Atomically writes an ipk to dest and pins its modification time to epoch.
// Returns the archive size.
func writeArchive(dest string, epoch time.Time, pkgDir, control string, scripts map[string]string) (int64, error) {
	t, err := renameio.TempFile("", dest)
	if err != nil {
		return 0, err
	}
	defer t.Cleanup()

	if err := ipk.Write(t, epoch, pkgDir, control, scripts); err != nil {
		return 0, err
	}
	if err := t.Chmod(paths.DefaultFileMode); err != nil {
		return 0, err
	}

	info, err := t.Stat()
	if err != nil {
		return 0, err
	}

	if err := t.CloseAtomicallyReplace(); err != nil {
		return 0, err
	}
	if err := fsutil.PinFileTime(dest, epoch); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
