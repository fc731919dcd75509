package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cruciblehq/cruxpkg/internal/bash"
	"github.com/cruciblehq/cruxpkg/internal/fsutil"
	"github.com/cruciblehq/cruxpkg/internal/logging"
	"github.com/cruciblehq/cruxpkg/internal/metrics"
	"github.com/cruciblehq/cruxpkg/internal/paths"
	"github.com/cruciblehq/cruxpkg/internal/recipe"
	"github.com/cruciblehq/cruxpkg/internal/runtime"
)

// Mount point of the working copy inside build containers.
const containerSrc = "/src"

// Builds one architecture and archives its selected packages.
func (b *Builder) makeArch(ctx context.Context, logger *slog.Logger, ws workspace, t target, result *Result) error {
	r := t.recipe
	logger = logger.With(logging.Arch(r.Arch))

	src := ws.archSrc(r.Arch)
	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystem, err)
	}
	if err := os.MkdirAll(filepath.Dir(src), paths.DefaultDirMode); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystem, err)
	}
	if err := fsutil.CopyTree(ws.src(), src); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystem, err)
	}

	if err := b.stage(metrics.StagePrepare, func() error { return b.prepare(ctx, logger, r, src) }); err != nil {
		return err
	}

	if err := os.MkdirAll(ws.pkgBase(r.Arch), paths.DefaultDirMode); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystem, err)
	}

	if err := b.stage(metrics.StageBuild, func() error { return b.build(ctx, logger, r, src) }); err != nil {
		return err
	}
	if err := b.stage(metrics.StageStrip, func() error { return b.strip(ctx, logger, r, src) }); err != nil {
		return err
	}

	for _, pkg := range t.packages {
		pkgLogger := logger.With(logging.Package(pkg.Name))
		pkgDir := ws.pkg(r.Arch, pkg.Name)

		if err := os.MkdirAll(pkgDir, paths.DefaultDirMode); err != nil {
			return fmt.Errorf("%w: %w", ErrFileSystem, err)
		}
		if err := b.stage(metrics.StagePackage, func() error { return b.pack(ctx, pkgLogger, pkg, src, pkgDir) }); err != nil {
			return err
		}

		var archive string
		if err := b.stage(metrics.StageArchive, func() error {
			var err error
			archive, err = b.archive(ctx, pkgLogger, pkg, pkgDir)
			return err
		}); err != nil {
			return err
		}

		b.recorder.IncPackagesBuilt(r.Arch)
		result.Archives = append(result.Archives, archive)
		result.Packages = append(result.Packages, pkg.ID())
	}
	return nil
}

// Runs the recipe's prepare function on the host.
func (b *Builder) prepare(ctx context.Context, logger *slog.Logger, r *recipe.Recipe, src string) error {
	script := r.Functions[recipe.FuncPrepare]
	if script == "" {
		logger.Debug("Skipping prepare (nothing to do)")
		return nil
	}

	logger.Info("Preparing source files")
	vars := r.Scope().With(bash.Variables{"srcdir": bash.String(src)}).Resolve()
	return b.runLocal(ctx, logger, recipe.FuncPrepare, script, vars)
}

// Runs the recipe's build function inside its container image.
//
// Source timestamps are pinned to the recipe timestamp first, so that build
// outputs do not depend on when the sources were fetched. Ownership of the
// working copy is handed back to the builder's user afterwards.
func (b *Builder) build(ctx context.Context, logger *slog.Logger, r *recipe.Recipe, src string) error {
	script := r.Functions[recipe.FuncBuild]
	if script == "" {
		logger.Debug("Skipping build (nothing to do)")
		return nil
	}

	logger.Info("Building artifacts")

	if err := fsutil.PinTimes(src, r.Parent.Timestamp); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystem, err)
	}

	body := strings.Join([]string{
		fmt.Sprintf("cd %q", containerSrc),
		strings.TrimRight(script, "\n"),
		fmt.Sprintf("chown -R %d:%d %q", b.uid, b.gid, containerSrc),
	}, "\n")

	vars := r.Scope().With(bash.Variables{"srcdir": bash.String(containerSrc)}).Resolve()
	return b.runContainer(ctx, logger, recipe.FuncBuild, r, b.imagePrefix+r.Image, src, vars, body)
}

// Strips debugging symbols from every executable in the working copy, first
// with the target toolchain and then with the host one.
func (b *Builder) strip(ctx context.Context, logger *slog.Logger, r *recipe.Recipe, src string) error {
	if r.HasFlag(recipe.FlagNoStrip) {
		logger.Debug("Not stripping binaries (nostrip flag set)")
		return nil
	}

	logger.Info("Stripping binaries")

	body := strings.Join([]string{
		fmt.Sprintf(`find %q -type f -executable -print0 | xargs --no-run-if-empty --null "${CROSS_COMPILE}strip" --strip-all || true`, containerSrc),
		fmt.Sprintf(`find %q -type f -executable -print0 | xargs --no-run-if-empty --null strip --strip-all || true`, containerSrc),
	}, "\n")

	return b.runContainer(ctx, logger, "", nil, b.imagePrefix+b.defaultImage, src, nil, body)
}

// Runs the package function on the host to stage the package tree.
func (b *Builder) pack(ctx context.Context, logger *slog.Logger, pkg *recipe.Package, src, pkgDir string) error {
	logger.Info("Packaging build artifacts")

	vars := pkg.Scope().With(bash.Variables{
		"srcdir": bash.String(src),
		"pkgdir": bash.String(pkgDir),
	}).Resolve()

	if err := b.runLocal(ctx, logger, recipe.FuncPackage, pkg.Function(recipe.FuncPackage), vars); err != nil {
		return err
	}

	empty, err := fsutil.IsEmptyDir(pkgDir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystem, err)
	}
	if empty {
		logger.Warn("Package function staged no files")
		return nil
	}

	files, err := fsutil.ListTree(pkgDir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystem, err)
	}

	logger.Debug("Resulting tree:")
	for _, f := range files {
		rel, err := filepath.Rel(pkgDir, f)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrFileSystem, err)
		}
		logger.Debug(" - " + filepath.Join("/", rel))
	}
	return nil
}

// Runs a script on the host and relays its output.
func (b *Builder) runLocal(ctx context.Context, logger *slog.Logger, function, script string, vars bash.Variables) error {
	logs, err := b.local.Run(ctx, script, vars)
	if err != nil {
		return fmt.Errorf("%w: %s(): %w", ErrBuild, function, err)
	}
	if err := printLogs(ctx, logger, logs, function+"()"); err != nil {
		return fmt.Errorf("%w: %s(): %w", ErrBuild, function, err)
	}
	return nil
}

// Runs a script in a container with src mounted at [containerSrc] and relays
// its output. An empty function name omits it from failure messages.
func (b *Builder) runContainer(ctx context.Context, logger *slog.Logger, function string, r *recipe.Recipe, image, src string, vars bash.Variables, body string) error {
	if b.containers == nil {
		return ErrNoContainers
	}

	abs, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystem, err)
	}

	s := runtime.Script{
		Image:     image,
		Mounts:    []runtime.Mount{{Source: abs, Target: containerSrc}},
		Variables: vars,
		Body:      body,
	}
	if r != nil {
		s.Platform = r.Platform
	}

	label := "strip"
	if function != "" {
		label = function + "()"
	}

	logs, err := b.containers.RunScript(ctx, s)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBuild, label, err)
	}

	shown := ""
	if function != "" {
		shown = label
	}
	if err := printLogs(ctx, logger, logs, shown); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBuild, label, err)
	}
	return nil
}
