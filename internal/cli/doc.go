// Parses flags, loads configuration and runs the cruxpkg commands.
//
// The command tree is:
//
//	cruxpkg build RECIPE [PACKAGE...]   Build packages from a recipe.
//	cruxpkg repo                        Build missing packages and index the repository.
//	cruxpkg index                       Regenerate the package index.
//	cruxpkg version                     Show version information.
//
// Global flags:
//
//	-q, --quiet               Suppress informational output.
//	-v, --verbose             Prefix log lines with a timestamp.
//	-d, --debug               Stream the output of every build script.
//	    --log-format          Log output format (text or json).
//	    --work-dir            Directory holding build workspaces.
//	    --repo-dir            Directory holding archives and the index.
//	    --recipe-dir          Directory holding recipes.
//	    --containerd-address  Path of the containerd socket.
//	    --namespace           containerd namespace.
//	    --snapshotter         containerd snapshotter.
//	    --image-prefix        Registry prefix of build images.
//	    --default-image       Image used for stripping binaries.
//	    --on-conflict         What to do with an existing workspace (ask, cancel, remove, keep).
//	    --metrics-file        Write Prometheus metrics to this file on exit.
//	    --env-file            Load environment variables from this file.
//
// Every flag can also be set through a CRUXPKG_* environment variable. Before
// parsing, environment files are loaded: the one named by --env-file or
// CRUXPKG_ENV_FILE, then .env in the working directory, then the env file in
// the user configuration directory. Variables already present in the
// environment are never overridden.
//
// Flags override build-time defaults set via linker flags. After parsing, the
// global logger is reconfigured to reflect the final level and format before
// the command runs.
package cli
