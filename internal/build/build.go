package build

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/cruciblehq/cruxpkg/internal/bash"
	"github.com/cruciblehq/cruxpkg/internal/logging"
	"github.com/cruciblehq/cruxpkg/internal/metrics"
	"github.com/cruciblehq/cruxpkg/internal/paths"
	"github.com/cruciblehq/cruxpkg/internal/recipe"
	"github.com/cruciblehq/cruxpkg/internal/runtime"
)

const (

	// Registry prefix of every build image.
	DefaultImagePrefix = "ghcr.io/toltec-dev/"

	// Image used for tasks that do not depend on the recipe, such as stripping.
	DefaultImage = "base:v1.2.2"
)

// Helper functions appended to every maintainer script.
//
//go:embed install-lib.sh
var installLib string

// Runs scripts on the host.
type LocalRunner interface {
	Run(ctx context.Context, script string, vars bash.Variables) (*bash.Logs, error)
}

// Runs scripts inside containers.
type ContainerRunner interface {
	RunScript(ctx context.Context, s runtime.Script) (*bash.Logs, error)
}

// Configures a [Builder].
type Options struct {
	WorkDir      string           // Directory holding one build directory per recipe.
	RepoDir      string           // Directory receiving the archives.
	Local        LocalRunner      // Runner for prepare and package, defaults to bash.Local.
	Containers   ContainerRunner  // Runner for build and strip.
	OnConflict   ConflictFunc     // Decides what to do with an existing build directory, defaults to cancelling.
	Logger       *slog.Logger     // Destination of progress messages, defaults to slog.Default.
	Recorder     metrics.Recorder // Metrics sink, defaults to a no-op recorder.
	HTTPClient   *http.Client     // Client for source downloads, defaults to http.DefaultClient.
	ImagePrefix  string           // Registry prefix of build images, defaults to [DefaultImagePrefix].
	DefaultImage string           // Image for recipe-independent tasks, defaults to [DefaultImage].
	UID          int              // Owner given back the working copy after a container build, defaults to the current user.
	GID          int              // Group given back the working copy after a container build, defaults to the current user's.
}

// Builds recipes into archives.
type Builder struct {
	workDir      string
	repoDir      string
	local        LocalRunner
	containers   ContainerRunner
	onConflict   ConflictFunc
	logger       *slog.Logger
	recorder     metrics.Recorder
	client       *http.Client
	imagePrefix  string
	defaultImage string
	uid          int
	gid          int
	installLib   string
}

// Returned after a successful [Builder.Make].
type Result struct {
	Archives []string      // Paths of the written archives, in build order.
	Packages []string      // Identifiers of the built packages, in build order.
	Duration time.Duration // Wall time of the whole call.
}

// One architecture of a recipe and the packages to build for it.
type target struct {
	recipe   *recipe.Recipe
	packages []*recipe.Package
}

// Creates a builder, creating its work and repository directories.
func New(opts Options) (*Builder, error) {
	for _, dir := range []string{opts.WorkDir, opts.RepoDir} {
		if dir == "" {
			return nil, fmt.Errorf("%w: work and repository directories are required", ErrFileSystem)
		}
		if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFileSystem, err)
		}
	}

	b := &Builder{
		workDir:      opts.WorkDir,
		repoDir:      opts.RepoDir,
		local:        opts.Local,
		containers:   opts.Containers,
		onConflict:   opts.OnConflict,
		logger:       logging.Ensure(opts.Logger),
		recorder:     metrics.Ensure(opts.Recorder),
		client:       opts.HTTPClient,
		imagePrefix:  opts.ImagePrefix,
		defaultImage: opts.DefaultImage,
		uid:          opts.UID,
		gid:          opts.GID,
		installLib:   stripComments(installLib),
	}

	if b.local == nil {
		b.local = bash.Local{}
	}
	if b.onConflict == nil {
		b.onConflict = Always(ConflictCancel)
	}
	if b.client == nil {
		b.client = http.DefaultClient
	}
	if b.imagePrefix == "" {
		b.imagePrefix = DefaultImagePrefix
	}
	if b.defaultImage == "" {
		b.defaultImage = DefaultImage
	}
	if b.uid == 0 && b.gid == 0 {
		b.uid, b.gid = os.Getuid(), os.Getgid()
	}

	return b, nil
}

// Builds packages of a recipe and stores their archives in the repository.
//
// archPackages selects the packages to build for each architecture. A nil map
// builds every package for every declared architecture; a nil or empty list
// builds every package of that architecture. Architectures are processed in the
// recipe's declaration order. Unknown architectures and packages are
// reported before any work starts, so a failing selection produces no
// archive.
//
// If the build directory exists and the conflict policy cancels, the error
// is [ErrWorkspaceConflict].
func (b *Builder) Make(ctx context.Context, g *recipe.GenericRecipe, archPackages map[string][]string) (*Result, error) {
	start := time.Now()
	logger := b.logger.With(logging.Recipe(g.Name))

	result, err := b.make(ctx, logger, g, archPackages)

	duration := time.Since(start)
	b.recorder.ObserveBuildDuration(duration)
	switch {
	case err == nil:
		b.recorder.IncBuildOutcome(metrics.ResultSuccess)
		result.Duration = duration
	case errors.Is(err, ErrWorkspaceConflict):
		b.recorder.IncBuildOutcome(metrics.ResultCanceled)
	default:
		b.recorder.IncBuildOutcome(metrics.ResultFailed)
	}
	return result, err
}

func (b *Builder) make(ctx context.Context, logger *slog.Logger, g *recipe.GenericRecipe, archPackages map[string][]string) (*Result, error) {
	targets, err := selectTargets(g, archPackages)
	if err != nil {
		return nil, err
	}

	ws, err := b.claimWorkspace(logger, g)
	if err != nil {
		return nil, err
	}

	if err := b.stage(metrics.StageSources, func() error {
		return b.fetchSources(ctx, logger, g, ws.src())
	}); err != nil {
		return nil, err
	}

	result := &Result{}
	for _, t := range targets {
		if err := b.makeArch(ctx, logger, ws, t, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Resolves the requested architectures and packages against the recipe.
func selectTargets(g *recipe.GenericRecipe, archPackages map[string][]string) ([]target, error) {
	for arch := range archPackages {
		if g.Recipe(arch) == nil {
			return nil, fmt.Errorf("%w: %q is not supported by recipe %s (supported: %s)",
				ErrUnknownArch, arch, g.Name, strings.Join(g.Archs, ", "))
		}
	}

	var targets []target
	for _, arch := range g.Archs {
		names, selected := archPackages[arch]
		if archPackages != nil && !selected {
			continue
		}

		r := g.Recipe(arch)
		if len(names) == 0 {
			targets = append(targets, target{recipe: r, packages: r.PackageList()})
			continue
		}

		t := target{recipe: r}
		for _, name := range names {
			pkg, ok := r.Packages[name]
			if !ok {
				return nil, fmt.Errorf("%w: package %q does not exist in recipe %s", ErrUnknownPackage, name, g.Name)
			}
			if !slices.Contains(t.packages, pkg) {
				t.packages = append(t.packages, pkg)
			}
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// Times fn and records its outcome under the given stage name.
func (b *Builder) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	b.recorder.ObserveStageDuration(name, time.Since(start))
	if err != nil {
		b.recorder.IncStageResult(name, metrics.ResultFailed)
		return err
	}
	b.recorder.IncStageResult(name, metrics.ResultSuccess)
	return nil
}

// Removes comment lines, keeping everything else verbatim.
func stripComments(script string) string {
	var b strings.Builder
	for line := range strings.Lines(script) {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}
