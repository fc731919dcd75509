package repo

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"github.com/klauspost/compress/gzip"

	"github.com/cruciblehq/cruxpkg/internal/fsutil"
	"github.com/cruciblehq/cruxpkg/internal/paths"
	"github.com/cruciblehq/cruxpkg/internal/recipe"
)

// Names of the index files in the repository directory.
const (
	IndexFile     = "Packages"
	IndexGzipFile = "Packages.gz"
)

// Writes the plain and compressed index of the archives present in the
// repository. Packages without an archive are skipped.
//
// Both files are written in a single pass and replace any previous index
// atomically.
func (r *Repo) MakeIndex() error {
	r.logger.Info("Generating package index")

	plain, err := renameio.TempFile("", filepath.Join(r.repoDir, IndexFile))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIndex, err)
	}
	defer plain.Cleanup()

	compressed, err := renameio.TempFile("", filepath.Join(r.repoDir, IndexGzipFile))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIndex, err)
	}
	defer compressed.Cleanup()

	gz, err := gzip.NewWriterLevel(compressed, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIndex, err)
	}
	gz.Name = IndexFile

	w := io.MultiWriter(plain, gz)
	count := 0
	err = r.eachPackage(func(_ *recipe.GenericRecipe, _ *recipe.Recipe, pkg *recipe.Package) error {
		written, err := r.writeRecord(w, pkg)
		if written {
			count++
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIndex, err)
	}

	if err := gz.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrIndex, err)
	}
	for _, f := range []*renameio.PendingFile{plain, compressed} {
		if err := f.Chmod(paths.DefaultFileMode); err != nil {
			return fmt.Errorf("%w: %w", ErrIndex, err)
		}
		if err := f.CloseAtomicallyReplace(); err != nil {
			return fmt.Errorf("%w: %w", ErrIndex, err)
		}
	}

	r.logger.Debug(fmt.Sprintf("Indexed %d packages", count))
	return nil
}

// Writes the index record of pkg if its archive is present. Reports whether
// a record was written.
func (r *Repo) writeRecord(w io.Writer, pkg *recipe.Package) (bool, error) {
	filename := pkg.Filename()
	local := filepath.Join(r.repoDir, filename)

	info, err := os.Stat(local)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}

	sum, err := fsutil.FileSHA256(local)
	if err != nil {
		return false, err
	}

	_, err = fmt.Fprintf(w, "%sFilename: %s\nSHA256sum: %s\nSize: %d\n\n", pkg.ControlFields(), filename, sum, info.Size())
	return err == nil, err
}
