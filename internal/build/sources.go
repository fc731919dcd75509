package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"path/filepath"
	"regexp"

	"github.com/dustin/go-humanize"
	"github.com/google/renameio"

	"github.com/cruciblehq/cruxpkg/internal/fsutil"
	"github.com/cruciblehq/cruxpkg/internal/logging"
	"github.com/cruciblehq/cruxpkg/internal/paths"
	"github.com/cruciblehq/cruxpkg/internal/recipe"
)

// Matches sources fetched from the network rather than the recipe directory.
var remoteSource = regexp.MustCompile(`^[a-z]+://`)

// Fetches, verifies and extracts every source of g into dir.
func (b *Builder) fetchSources(ctx context.Context, logger *slog.Logger, g *recipe.GenericRecipe, dir string) error {
	logger.Info("Fetching source files")

	for _, src := range g.Sources {
		local := filepath.Join(dir, path.Base(src.URL))

		if remoteSource.MatchString(src.URL) {
			if err := b.download(ctx, logger, src.URL, local); err != nil {
				return err
			}
		} else {
			if err := fsutil.CopyFile(filepath.Join(g.Path, src.URL), local); err != nil {
				return fmt.Errorf("%w %s: %w", ErrFetch, src.URL, err)
			}
		}

		if src.Checksum != recipe.SkipChecksum {
			sum, err := fsutil.FileSHA256(local)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrFileSystem, err)
			}
			if sum != src.Checksum {
				return fmt.Errorf("%w for source file %s: expected %s, got %s", ErrChecksum, src.URL, src.Checksum, sum)
			}
		}

		if !src.NoExtract {
			extracted, err := fsutil.AutoExtract(local, dir)
			if err != nil {
				return fmt.Errorf("%w: extracting %s: %w", ErrFileSystem, src.URL, err)
			}
			if extracted {
				logger.Debug("extracted source archive", logging.Path(local))
			}
		}
	}
	return nil
}

// Downloads url to dest. Any status other than 200 is an error.
func (b *Builder) download(ctx context.Context, logger *slog.Logger, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrFetch, url, err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w %s: unexpected status code %d", ErrFetch, url, resp.StatusCode)
	}

	t, err := renameio.TempFile("", dest)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystem, err)
	}
	defer t.Cleanup()

	n, err := io.Copy(t, resp.Body)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrFetch, url, err)
	}
	if err := t.Chmod(paths.DefaultFileMode); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystem, err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystem, err)
	}

	logger.Debug("downloaded source file", logging.URL(url), logging.Size(humanize.Bytes(uint64(n))))
	return nil
}
