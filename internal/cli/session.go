package cli

import (
	"context"
	"log/slog"
	"os"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/cruciblehq/cruxpkg/internal/build"
	"github.com/cruciblehq/cruxpkg/internal/metrics"
	"github.com/cruciblehq/cruxpkg/internal/prompt"
	"github.com/cruciblehq/cruxpkg/internal/repo"
	"github.com/cruciblehq/cruxpkg/internal/runtime"
)

// Collaborators shared by the commands of one invocation.
type session struct {
	logger   *slog.Logger
	registry *prom.Registry // Nil unless metrics are exported.
	recorder metrics.Recorder
}

// Creates a session from the global flags.
func newSession() *session {
	s := &session{
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	if RootCmd.MetricsFile != "" {
		s.registry = prom.NewRegistry()
		s.recorder = metrics.NewPrometheusRecorder(s.registry)
	}
	return s
}

// Opens the repository described by the global flags.
func (s *session) repo() (*repo.Repo, error) {
	return repo.New(RootCmd.RecipeDir, RootCmd.RepoDir, repo.Options{
		Logger:   s.logger,
		Recorder: s.recorder,
	})
}

// Creates a builder backed by containerd. An unreachable daemon is an error.
func (s *session) builder(ctx context.Context) (*build.Builder, error) {
	rt := runtime.New(runtime.Config{
		Address:     RootCmd.ContainerdAddress,
		Namespace:   RootCmd.Namespace,
		Snapshotter: RootCmd.Snapshotter,
		Logger:      s.logger,
	})
	if err := rt.Check(ctx); err != nil {
		return nil, err
	}

	onConflict, err := s.conflictPolicy(RootCmd.OnConflict)
	if err != nil {
		return nil, err
	}

	return build.New(build.Options{
		WorkDir:      RootCmd.WorkDir,
		RepoDir:      RootCmd.RepoDir,
		Containers:   rt,
		OnConflict:   onConflict,
		Logger:       s.logger,
		Recorder:     s.recorder,
		ImagePrefix:  RootCmd.ImagePrefix,
		DefaultImage: RootCmd.DefaultImage,
	})
}

// Returns the workspace conflict policy named by the flag. Asking requires
// an interactive standard input; otherwise the build is cancelled.
func (s *session) conflictPolicy(name string) (build.ConflictFunc, error) {
	if name == "ask" {
		if !prompt.Interactive(os.Stdin) {
			s.logger.Debug("standard input is not a terminal, existing workspaces cancel the build")
			return build.Always(build.ConflictCancel), nil
		}
		return build.Ask(os.Stdin, os.Stderr), nil
	}

	action, err := build.ParseConflictAction(name)
	if err != nil {
		return nil, err
	}
	return build.Always(action), nil
}

// Writes the collected metrics, if requested.
func (s *session) flush() error {
	if s.registry == nil {
		return nil
	}
	return metrics.WriteTextfile(s.registry, RootCmd.MetricsFile)
}

// Runs fn and flushes metrics, returning the first error.
func (s *session) run(fn func() error) error {
	err := fn()
	if ferr := s.flush(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}
