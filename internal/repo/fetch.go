package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/renameio"

	"github.com/cruciblehq/cruxpkg/internal/logging"
	"github.com/cruciblehq/cruxpkg/internal/metrics"
	"github.com/cruciblehq/cruxpkg/internal/paths"
	"github.com/cruciblehq/cruxpkg/internal/recipe"
)

// Determines which packages still need to be built.
//
// Every package of every recipe is passed to [Repo.FetchPackage]; those it
// cannot provide are reported as missing. An empty remote disables the
// mirror. A transport failure while talking to the mirror aborts the scan.
func (r *Repo) FetchPackages(ctx context.Context, remote string, fetchMissing bool) (Missing, error) {
	r.logger.Info("Scanning for missing packages")

	missing := make(Missing)
	err := r.eachPackage(func(g *recipe.GenericRecipe, rec *recipe.Recipe, pkg *recipe.Package) error {
		ok, err := r.FetchPackage(ctx, pkg, remote, fetchMissing)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		r.logger.Info(fmt.Sprintf("Package %s (%s) is missing", pkg.ID(), g.Name))
		if missing[g.Name] == nil {
			missing[g.Name] = make(map[string][]string)
		}
		missing[g.Name][rec.Arch] = append(missing[g.Name][rec.Arch], pkg.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return missing, nil
}

// Makes a package available in the repository if possible.
//
// Reports true when the archive is already present, without contacting the
// remote. Otherwise, with no remote it reports false; when fetchMissing is
// false it only probes the remote with HEAD; when fetchMissing is true it
// downloads the archive and stamps it with the remote's Last-Modified time.
// Any status other than 200 means the remote does not have the package.
func (r *Repo) FetchPackage(ctx context.Context, pkg *recipe.Package, remote string, fetchMissing bool) (bool, error) {
	filename := pkg.Filename()
	local := filepath.Join(r.repoDir, filename)

	if info, err := os.Stat(local); err == nil && info.Mode().IsRegular() {
		r.recorder.IncFetchResult(metrics.FetchLocal)
		return true, nil
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	if remote == "" {
		r.recorder.IncFetchResult(metrics.FetchMissing)
		return false, nil
	}

	target, err := url.JoinPath(remote, filename)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	var ok bool
	if fetchMissing {
		ok, err = r.download(ctx, target, local)
	} else {
		ok, err = r.probe(ctx, target)
	}
	if err != nil {
		return false, err
	}

	switch {
	case !ok:
		r.recorder.IncFetchResult(metrics.FetchMissing)
	case fetchMissing:
		r.recorder.IncFetchResult(metrics.FetchDownloaded)
	default:
		r.recorder.IncFetchResult(metrics.FetchProbed)
	}
	return ok, nil
}

// Reports whether the remote answers a HEAD request for target with 200.
func (r *Repo) probe(ctx context.Context, target string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w %s: %w", ErrFetch, target, err)
	}
	resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}

// Downloads target to local. Reports false if the remote does not answer 200.
func (r *Repo) download(ctx context.Context, target, local string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w %s: %w", ErrFetch, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}

	t, err := renameio.TempFile("", local)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer t.Cleanup()

	n, err := io.Copy(t, resp.Body)
	if err != nil {
		return false, fmt.Errorf("%w %s: %w", ErrFetch, target, err)
	}
	if err := t.Chmod(paths.DefaultFileMode); err != nil {
		return false, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return false, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	r.logger.Debug("downloaded package", logging.URL(target), logging.Size(humanize.Bytes(uint64(n))))

	modified, err := http.ParseTime(resp.Header.Get("Last-Modified"))
	if err != nil {
		r.logger.Warn("remote did not report a valid Last-Modified time", logging.URL(target))
		return true, nil
	}
	if err := os.Chtimes(local, modified, modified); err != nil {
		return false, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return true, nil
}
