package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/cruciblehq/cruxpkg/internal/build"
	"github.com/cruciblehq/cruxpkg/internal/logging"
)

// Default mirror consulted for already built packages.
const defaultRemote = "https://toltec-dev.org/testing"

// Represents the 'cruxpkg repo' command.
type RepoCmd struct {
	NoFetch bool   `short:"n" help:"Do not fetch missing packages from the remote repository, only check for them."`
	Local   bool   `short:"l" xor:"remote" help:"Rebuild every package missing from the local repository, even if the remote has it."`
	Remote  string `short:"r" name:"remote-repo" xor:"remote" env:"CRUXPKG_REMOTE_REPO" default:"${remote}" help:"Root of a remote repository used to know which packages are already built." placeholder:"URL"`
}

// Executes the repo command.
//
// Packages present on the remote are downloaded (or only probed with
// --no-fetch). The remaining ones are built, one recipe at a time, and the
// index is regenerated. A recipe whose workspace conflict is declined is
// skipped.
func (c *RepoCmd) Run(ctx context.Context) error {
	s := newSession()
	return s.run(func() error {
		r, err := s.repo()
		if err != nil {
			return err
		}

		remote := c.Remote
		if c.Local {
			remote = ""
		}

		missing, err := r.FetchPackages(ctx, remote, !c.NoFetch)
		if err != nil {
			return err
		}

		if missing.Count() > 0 {
			b, err := s.builder(ctx)
			if err != nil {
				return err
			}

			for _, name := range missing.Recipes() {
				_, err := b.Make(ctx, r.Recipe(name), missing[name])
				if errors.Is(err, build.ErrWorkspaceConflict) {
					s.logger.Warn("skipping recipe", logging.Recipe(name), logging.Error(err))
					continue
				}
				if err != nil {
					return fmt.Errorf("recipe %s: %w", name, err)
				}
			}
		}

		return r.MakeIndex()
	})
}

// Represents the 'cruxpkg index' command.
type IndexCmd struct{}

// Executes the index command.
func (c *IndexCmd) Run(ctx context.Context) error {
	s := newSession()
	return s.run(func() error {
		r, err := s.repo()
		if err != nil {
			return err
		}
		return r.MakeIndex()
	})
}
