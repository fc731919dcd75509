package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/cruciblehq/cruxpkg/internal"
	"github.com/cruciblehq/cruxpkg/internal/build"
	"github.com/cruciblehq/cruxpkg/internal/logging"
	"github.com/cruciblehq/cruxpkg/internal/paths"
)

// Level shared by every logger installed by the CLI.
var level slog.LevelVar

// Represents the root command for cruxpkg.
var RootCmd struct {
	Quiet     bool   `short:"q" env:"CRUXPKG_QUIET" help:"Suppress informational output."`
	Verbose   bool   `short:"v" env:"CRUXPKG_VERBOSE" help:"Prefix log lines with a timestamp."`
	Debug     bool   `short:"d" env:"CRUXPKG_DEBUG" help:"Stream the output of every build script."`
	LogFormat string `env:"CRUXPKG_LOG_FORMAT" enum:"text,json" default:"text" help:"Log output format (${enum})."`
	EnvFile   string `env:"CRUXPKG_ENV_FILE" help:"Load environment variables from this file." placeholder:"PATH"`

	WorkDir   string `env:"CRUXPKG_WORK_DIR" default:"${work_dir}" help:"Directory holding build workspaces." placeholder:"PATH"`
	RepoDir   string `env:"CRUXPKG_REPO_DIR" default:"${repo_dir}" help:"Directory holding archives and the package index." placeholder:"PATH"`
	RecipeDir string `env:"CRUXPKG_RECIPE_DIR" default:"${recipe_dir}" help:"Directory holding recipes." placeholder:"PATH"`

	ContainerdAddress string `env:"CRUXPKG_CONTAINERD_ADDRESS" default:"${containerd_address}" help:"Path of the containerd socket." placeholder:"PATH"`
	Namespace         string `env:"CRUXPKG_NAMESPACE" default:"${namespace}" help:"containerd namespace for images and build containers."`
	Snapshotter       string `env:"CRUXPKG_SNAPSHOTTER" help:"containerd snapshotter (default: platform default)."`
	ImagePrefix       string `env:"CRUXPKG_IMAGE_PREFIX" default:"${image_prefix}" help:"Registry prefix of build images."`
	DefaultImage      string `env:"CRUXPKG_DEFAULT_IMAGE" default:"${default_image}" help:"Image used for stripping binaries."`

	OnConflict  string `env:"CRUXPKG_ON_CONFLICT" enum:"ask,cancel,remove,keep" default:"ask" help:"What to do with an existing build workspace (${enum})."`
	MetricsFile string `env:"CRUXPKG_METRICS_FILE" help:"Write Prometheus metrics to this file on exit." placeholder:"PATH"`

	Build   BuildCmd   `cmd:"" help:"Build packages from a recipe."`
	Repo    RepoCmd    `cmd:"" help:"Build missing packages and create the package index."`
	Index   IndexCmd   `cmd:"" help:"Regenerate the package index."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := loadEnvFiles(os.Args[1:]); err != nil {
		return err
	}

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Builds ipk packages from recipes.\n\nBuild steps run in containers managed by containerd."),
		kong.UsageOnError(),
		kong.Vars{
			"version":            internal.VersionString(),
			"work_dir":           paths.Work(),
			"repo_dir":           paths.Repo(),
			"recipe_dir":         paths.DefaultRecipeDir,
			"containerd_address": paths.DefaultContainerdAddress,
			"namespace":          paths.DefaultContainerdNamespace,
			"image_prefix":       build.DefaultImagePrefix,
			"default_image":      build.DefaultImage,
			"remote":             defaultRemote,
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Reconfigures the global logger based on CLI flags.
func configureLogger() {
	internal.SetDebug(RootCmd.Debug || internal.IsDebug())
	internal.SetQuiet(RootCmd.Quiet || internal.IsQuiet())
	internal.SetVerbose(RootCmd.Verbose || internal.IsVerbose())

	level.Set(logLevel())

	format := logging.FormatText
	if RootCmd.LogFormat == string(logging.FormatJSON) {
		format = logging.FormatJSON
	}

	slog.SetDefault(logging.New(format, os.Stderr, &level, internal.IsVerbose()))
}

// Returns the log level derived from the current modes.
func logLevel() slog.Level {
	if internal.IsDebug() {
		return slog.LevelDebug
	}
	if internal.IsQuiet() {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
